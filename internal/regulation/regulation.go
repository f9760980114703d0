// Package regulation retrieves regulatory text relevant to a transaction.
//
// Retrieval is vector-based: regulation snippets are embedded offline (see
// cmd/ingest), persisted to a flat index, and searched by embedding the
// caller's query. When no index has been built the package degrades to a
// small canonical fallback set so risk explanations always have regulatory
// grounding.
package regulation

import (
	"context"
	"errors"
)

var (
	// ErrIndexUnavailable means no index is built or loadable. Callers may
	// substitute the fallback regulation set.
	ErrIndexUnavailable = errors.New("regulation index unavailable")

	// ErrRetrievalFailed means the index is present but the search failed.
	// This is never silently converted to fallback results.
	ErrRetrievalFailed = errors.New("regulation retrieval failed")
)

// Document is a retrieved regulation snippet with its provenance.
type Document struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Searcher is the orchestrator-facing retrieval interface.
type Searcher interface {
	SearchRegulations(ctx context.Context, query string, topK int) ([]Document, error)
}

// FallbackRegulations returns the canonical regulation set used when the
// vector index is unavailable.
func FallbackRegulations() []string {
	return []string{
		"RBI Guidelines: All high-value transactions over ₹10 lakhs require enhanced due diligence.",
		"FATF Travel Rule: Financial institutions must collect and transmit originator and beneficiary information for cross-border transactions.",
		"KYC Requirements: Customer identification must be completed before opening accounts.",
		"AML Compliance: Suspicious transactions must be reported to FIU within 7 days.",
	}
}

// FallbackDocuments wraps FallbackRegulations as Documents.
func FallbackDocuments() []Document {
	texts := FallbackRegulations()
	docs := make([]Document, len(texts))
	for i, t := range texts {
		docs[i] = Document{Content: t, Source: "fallback"}
	}
	return docs
}

// Package analysis orchestrates the full transaction analysis flow:
// risk assessment, regulation retrieval, and compliance explanation.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/theadiisingh/finpol/internal/compliance"
	"github.com/theadiisingh/finpol/internal/idgen"
	"github.com/theadiisingh/finpol/internal/logging"
	"github.com/theadiisingh/finpol/internal/metrics"
	"github.com/theadiisingh/finpol/internal/regulation"
	"github.com/theadiisingh/finpol/internal/risk"
	"github.com/theadiisingh/finpol/internal/traces"
	"github.com/theadiisingh/finpol/internal/transaction"
)

// Response is the outcome of a full transaction analysis.
type Response struct {
	TransactionID         string     `json:"transactionId"`
	RiskScore             int        `json:"riskScore"`
	RiskLevel             risk.Level `json:"riskLevel"`
	Factors               []string   `json:"riskFactors"`
	Recommendations       []string   `json:"recommendations"`
	ShouldApprove         bool       `json:"shouldApprove"`
	RequiresReview        bool       `json:"requiresReview"`
	ComplianceExplanation string     `json:"complianceExplanation,omitempty"`
}

// Analyzer wires the risk engine, the regulation retriever, and the
// compliance generator into a single Analyze operation.
type Analyzer struct {
	engine    *risk.Engine
	retriever regulation.Searcher
	generator *compliance.Generator
	topK      int
}

// NewAnalyzer creates an analyzer. retriever and generator may be nil or
// unconfigured; Analyze degrades to the fallback explanation in that case.
func NewAnalyzer(engine *risk.Engine, retriever regulation.Searcher, generator *compliance.Generator, topK int) *Analyzer {
	if topK <= 0 {
		topK = regulation.DefaultTopK
	}
	return &Analyzer{
		engine:    engine,
		retriever: retriever,
		generator: generator,
		topK:      topK,
	}
}

// Analyze runs the full flow for one transaction:
//
//  1. Validate and normalize, assigning an ID when absent.
//  2. Assess risk.
//  3. If the level is above Low, retrieve regulations and generate a
//     compliance explanation. Enrichment failures degrade, never fail the
//     analysis: retrieval errors shrink the regulation set to empty, and
//     generation errors substitute the canonical fallback text.
//
// A cancelled context aborts enrichment and returns ctx.Err() so callers
// never see a partial response.
func (a *Analyzer) Analyze(ctx context.Context, tx *transaction.Transaction) (*Response, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	tx.Normalize()
	if tx.ID == "" {
		tx.ID = idgen.WithPrefix("txn_")
	}

	ctx, span := traces.StartSpan(ctx, "analysis.analyze", traces.TransactionID(tx.ID))
	defer span.End()

	assessment := a.engine.Assess(ctx, tx)
	span.SetAttributes(traces.RiskLevel(string(assessment.Level)))
	metrics.AnalysesTotal.WithLabelValues(string(assessment.Level)).Inc()

	resp := &Response{
		TransactionID:   tx.ID,
		RiskScore:       assessment.Score,
		RiskLevel:       assessment.Level,
		Factors:         assessment.Factors,
		Recommendations: assessment.Recommendations,
		ShouldApprove:   assessment.Level == risk.LevelLow,
		RequiresReview:  assessment.Level != risk.LevelLow,
	}

	if assessment.Level == risk.LevelLow {
		return resp, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	regulations := a.retrieve(ctx, tx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp.ComplianceExplanation = a.explain(ctx, tx, assessment.Factors, regulations)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logging.L(ctx).Info("transaction analyzed",
		"transaction_id", tx.ID,
		"level", string(assessment.Level),
		"approve", resp.ShouldApprove,
	)
	return resp, nil
}

// retrieve fetches regulation texts for the transaction's retrieval query.
// Errors degrade to an empty set; the index-unavailable fallback is handled
// inside SearchRegulations.
func (a *Analyzer) retrieve(ctx context.Context, tx *transaction.Transaction) []string {
	if a.retriever == nil {
		return nil
	}

	query := RetrievalQuery(tx)
	ctx, span := traces.StartSpan(ctx, "analysis.retrieve", traces.Query(query))
	defer span.End()

	docs, err := a.retriever.SearchRegulations(ctx, query, a.topK)
	if err != nil {
		logging.L(ctx).Warn("regulation retrieval failed", "error", err)
		metrics.RetrievalsTotal.WithLabelValues("error").Inc()
		return nil
	}
	span.SetAttributes(traces.ResultCount(len(docs)))

	outcome := "hit"
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
		if d.Source == "fallback" {
			outcome = "fallback"
		}
	}
	metrics.RetrievalsTotal.WithLabelValues(outcome).Inc()
	return texts
}

// explain generates the compliance explanation, substituting the fallback
// text when the generator is missing or fails.
func (a *Analyzer) explain(ctx context.Context, tx *transaction.Transaction, factors, regulations []string) string {
	if a.generator == nil || !a.generator.Configured() {
		metrics.GenerationsTotal.WithLabelValues("fallback").Inc()
		return compliance.FallbackExplanation
	}

	ctx, span := traces.StartSpan(ctx, "analysis.generate", traces.TransactionID(tx.ID))
	defer span.End()

	start := time.Now()
	text, err := a.generator.Generate(ctx, tx, factors, regulations)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logging.L(ctx).Warn("compliance generation failed", "error", err)
		metrics.GenerationsTotal.WithLabelValues("fallback").Inc()
		return compliance.FallbackExplanation
	}
	metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	return text
}

// CreateRecord assesses a transaction and persists the annotated record.
// Unlike Analyze it skips the compliance enrichment; explanations for stored
// transactions are produced on demand via the compliance report endpoint.
func (a *Analyzer) CreateRecord(ctx context.Context, tx *transaction.Transaction, store transaction.Store) (*transaction.Record, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	tx.Normalize()
	if tx.ID == "" {
		tx.ID = idgen.WithPrefix("txn_")
	}

	assessment := a.engine.Assess(ctx, tx)
	metrics.AnalysesTotal.WithLabelValues(string(assessment.Level)).Inc()

	rec := &transaction.Record{
		Transaction: *tx,
		RiskScore:   assessment.Score,
		RiskLevel:   string(assessment.Level),
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.Create(ctx, rec); err != nil {
		return nil, err
	}

	logging.L(ctx).Info("transaction created",
		"transaction_id", tx.ID,
		"level", string(assessment.Level),
	)
	return rec, nil
}

// RetrievalQuery builds the regulation search query for a transaction.
func RetrievalQuery(tx *transaction.Transaction) string {
	return fmt.Sprintf("transaction risk %s %s", tx.Country, tx.MerchantType)
}

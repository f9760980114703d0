package regulation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/theadiisingh/finpol/internal/logging"
)

// DefaultTopK is the number of snippets returned when the caller passes
// a non-positive top_k.
const DefaultTopK = 3

// Embedder turns text into a vector in the same space the index was built in.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever searches the regulation index, loading it lazily on first use.
type Retriever struct {
	indexPath string
	embedder  Embedder

	mu    sync.Mutex
	index *Index
}

// NewRetriever creates a retriever over the index at indexPath. The embedder
// may be nil, in which case every search reports ErrIndexUnavailable and
// callers fall back to the canonical regulation set.
func NewRetriever(indexPath string, embedder Embedder) *Retriever {
	return &Retriever{indexPath: indexPath, embedder: embedder}
}

// load returns the index, loading it from disk on first call. Concurrent
// first calls are serialized so the file is read at most once.
func (r *Retriever) load(ctx context.Context) (*Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index != nil {
		return r.index, nil
	}
	if r.indexPath == "" {
		return nil, ErrIndexUnavailable
	}

	ix, err := LoadIndex(r.indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.L(ctx).Warn("regulation index not found", "path", r.indexPath)
			return nil, ErrIndexUnavailable
		}
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}

	logging.L(ctx).Info("regulation index loaded", "path", r.indexPath, "snippets", ix.Len())
	r.index = ix
	return ix, nil
}

// Search returns the topK regulation snippets closest to query, ascending by
// distance. ErrIndexUnavailable when no index is built; ErrRetrievalFailed
// when the index is present but embedding or search fails.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.embedder == nil {
		return nil, ErrIndexUnavailable
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	ix, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrRetrievalFailed, err)
	}

	hits, err := ix.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}

	logging.L(ctx).Info("regulations retrieved", "query", truncate(query, 50), "count", len(hits))
	return hits, nil
}

// SearchRegulations wraps Search into documents and applies the fallback
// policy: an unavailable index yields the canonical fallback set, a failed
// retrieval propagates as an error.
func (r *Retriever) SearchRegulations(ctx context.Context, query string, topK int) ([]Document, error) {
	hits, err := r.Search(ctx, query, topK)
	if err != nil {
		if errors.Is(err, ErrIndexUnavailable) {
			return FallbackDocuments(), nil
		}
		return nil, err
	}

	docs := make([]Document, len(hits))
	for i, h := range hits {
		docs[i] = Document{Content: h.Content, Source: h.Source}
	}
	return docs, nil
}

// Stats reports retriever state for health and debug endpoints.
func (r *Retriever) Stats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := map[string]any{
		"initialized": r.index != nil,
		"index_path":  r.indexPath,
	}
	if r.index != nil {
		stats["snippets"] = r.index.Len()
	}
	return stats
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

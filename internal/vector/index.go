// Package vector provides vector index and similarity search.
package vector

import "context"

// Index defines vector storage and similarity search over chunk embeddings.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns the top-k vectors nearest to query by cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	// SearchFiltered is Search restricted to ids accepted by allow
	// (e.g. chunks of a single template). A nil allow matches everything.
	SearchFiltered(ctx context.Context, query []float32, k int, allow func(id string) bool) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single vector search hit.
type Result struct {
	ID    string
	Score float64 // cosine similarity, clamped to [0,1] for normalized vectors
}

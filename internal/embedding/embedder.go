// Package embedding provides text embedding via a remote model, with batching and caching.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ErrDimensionMismatch reports an embedding whose length does not match the
// configured dimension. This is a fatal configuration error: the model and
// the index disagree, and no result derived from it may be persisted.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// TransientError wraps a retryable failure at the embedding call boundary
// (timeout, unavailable). Exhausted retries surface as a failed classification
// for the affected document only.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("embedding temporarily unavailable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

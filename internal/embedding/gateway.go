package embedding

import "context"

// Gateway batches texts through an underlying Embedder in groups of at most
// batchSize, preserving input order. Batch boundaries never change results:
// the gateway only partitions the input. Empty strings map to a zero vector
// without a model call, and repeated texts are served from an LRU cache.
type Gateway struct {
	embedder  Embedder
	batchSize int
	cache     *Cache
}

// NewGateway wraps embedder with batching and an optional cache
// (cacheSize <= 0 disables caching).
func NewGateway(embedder Embedder, batchSize, cacheSize int) *Gateway {
	if batchSize <= 0 {
		batchSize = 32
	}
	var cache *Cache
	if cacheSize > 0 {
		cache = NewCache(cacheSize)
	}
	return &Gateway{embedder: embedder, batchSize: batchSize, cache: cache}
}

// Embed returns the embedding for one text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, order-preserving and same length as the input.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// resolve empty strings and cache hits first
	var pending []int
	for i, text := range texts {
		if text == "" {
			out[i] = make([]float32, g.embedder.Dimensions())
			continue
		}
		if g.cache != nil {
			if vec, ok := g.cache.Get(text); ok {
				out[i] = vec
				continue
			}
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += g.batchSize {
		end := start + g.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := make([]string, 0, end-start)
		for _, idx := range pending[start:end] {
			batch = append(batch, texts[idx])
		}
		vecs, err := g.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for j, idx := range pending[start:end] {
			out[idx] = vecs[j]
			if g.cache != nil {
				g.cache.Set(texts[idx], vecs[j])
			}
		}
	}
	return out, nil
}

// Dimensions returns the underlying embedder's dimension.
func (g *Gateway) Dimensions() int {
	return g.embedder.Dimensions()
}

// Close closes the underlying embedder.
func (g *Gateway) Close() error {
	return g.embedder.Close()
}

var _ Embedder = (*Gateway)(nil)

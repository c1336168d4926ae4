package embedding

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
)

// countingEmbedder wraps MockEmbedder and counts batch calls and sizes.
type countingEmbedder struct {
	*MockEmbedder
	calls    atomic.Int64
	maxBatch int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	if len(texts) > c.maxBatch {
		c.maxBatch = len(texts)
	}
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestGatewayBatchSizeInvariant(t *testing.T) {
	ctx := context.Background()
	texts := []string{"первый", "второй", "третий", "четвертый", "пятый"}

	small := NewGateway(NewMockEmbedder(16), 1, 0)
	large := NewGateway(NewMockEmbedder(16), 16, 0)

	a, err := small.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := large.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		for j := range a[i] {
			if math.Abs(float64(a[i][j]-b[i][j])) > 1e-6 {
				t.Fatalf("vector %d differs between batch sizes at dim %d", i, j)
			}
		}
	}
}

func TestGatewayRespectsBatchSize(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	g := NewGateway(inner, 2, 0)
	texts := []string{"a", "b", "c", "d", "e"}
	if _, err := g.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatal(err)
	}
	if inner.maxBatch > 2 {
		t.Errorf("batch of %d exceeds configured size 2", inner.maxBatch)
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("expected 3 batches for 5 texts, got %d", got)
	}
}

func TestGatewayEmptyString(t *testing.T) {
	g := NewGateway(NewMockEmbedder(4), 8, 0)
	vecs, err := g.EmbedBatch(context.Background(), []string{"", "текст"})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vecs[0] {
		if v != 0 {
			t.Errorf("empty string embedding dim %d = %f, want 0", i, v)
		}
	}
	if len(vecs) != 2 || len(vecs[1]) != 4 {
		t.Errorf("unexpected output shape")
	}
}

func TestGatewayCacheHit(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	g := NewGateway(inner, 8, 100)
	ctx := context.Background()
	if _, err := g.EmbedBatch(ctx, []string{"повтор"}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.EmbedBatch(ctx, []string{"повтор"}); err != nil {
		t.Fatal(err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("expected 1 model call with cache, got %d", got)
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "договор поставки")
	b, _ := e.Embed(ctx, "договор поставки")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("mock embedder is not deterministic")
		}
	}
	var norm float64
	for _, v := range a {
		norm += float64(v * v)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("mock embedding not unit length: %f", norm)
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry missing")
	}
}

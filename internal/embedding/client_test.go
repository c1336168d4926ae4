package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contraudit/contraudit/internal/config"
)

func testClientConfig(url string) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		BaseURL:    url,
		APIKeyEnv:  "CONTRAUDIT_TEST_EMBEDDING_KEY",
		Model:      "test-model",
		Dimensions: 3,
		MaxRetries: 2,
		Timeout:    5 * time.Second,
	}
}

type apiEmbedding struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

func writeEmbeddings(w http.ResponseWriter, data []apiEmbedding) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func TestClientEmbedBatchNormalizesAndReorders(t *testing.T) {
	t.Setenv("CONTRAUDIT_TEST_EMBEDDING_KEY", "secret")
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Input) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		// Out of order and not unit length.
		writeEmbeddings(w, []apiEmbedding{
			{Index: 1, Embedding: []float32{0, 0, 2}},
			{Index: 0, Embedding: []float32{3, 4, 0}},
		})
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	vecs, err := c.EmbedBatch(context.Background(), []string{"первый", "второй"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if math.Abs(float64(vecs[0][0])-0.6) > 1e-6 || math.Abs(float64(vecs[0][1])-0.8) > 1e-6 {
		t.Errorf("vector 0 not normalized/reordered: %v", vecs[0])
	}
	if math.Abs(float64(vecs[1][2])-1.0) > 1e-6 {
		t.Errorf("vector 1 not normalized: %v", vecs[1])
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeEmbeddings(w, []apiEmbedding{{Index: 0, Embedding: []float32{1, 0, 0}}})
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	if _, err := c.Embed(context.Background(), "текст"); err != nil {
		t.Fatalf("Embed after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClientTransientAfterExhaustedRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	_, err := c.Embed(context.Background(), "текст")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Errorf("error not transient: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls.Load())
	}
}

func TestClientBadRequestIsNotTransient(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	_, err := c.Embed(context.Background(), "текст")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Errorf("client error misreported as transient: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 400)", calls.Load())
	}
}

func TestClientDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, []apiEmbedding{{Index: 0, Embedding: []float32{1, 0}}})
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	_, err := c.Embed(context.Background(), "текст")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

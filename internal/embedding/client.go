package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/cenkalti/backoff/v4"

	"github.com/contraudit/contraudit/internal/config"
	"github.com/contraudit/contraudit/pkg/utils"
)

// Client calls an OpenAI-compatible /embeddings endpoint. Timeouts and
// transient server errors are retried with exponential backoff up to the
// configured attempt count; anything else fails immediately.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxRetries uint64
	client     *http.Client
}

// NewClient creates an embeddings client from cfg. The API key is read from
// the environment variable named by cfg.APIKeyEnv; an empty key is allowed
// for local model servers.
func NewClient(cfg config.EmbeddingConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxRetries: uint64(cfg.MaxRetries),
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns embeddings for texts, order-preserving and same length
// as the input. The whole slice is sent as one request; callers control batch
// size (see Gateway).
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var resp embeddingResponse
	var permanent bool
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			permanent = true
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		httpResp, err := c.client.Do(req)
		if err != nil {
			return err // network/timeout: retryable
		}
		defer httpResp.Body.Close()
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			return fmt.Errorf("embedding api status %s", httpResp.Status)
		}
		if httpResp.StatusCode != http.StatusOK {
			permanent = true
			return backoff.Permanent(fmt.Errorf("embedding api status %s", httpResp.Status))
		}
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			permanent = true
			return backoff.Permanent(fmt.Errorf("decode embedding response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if permanent {
			return nil, err
		}
		return nil, &TransientError{Err: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding api returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding api returned out-of-range index %d", d.Index)
		}
		if len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(d.Embedding), c.dimensions)
		}
		// Not every model serves unit vectors; cosine scoring assumes them.
		utils.NormalizeL2(d.Embedding)
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embedding api returned no vector for input %d", i)
		}
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op for the HTTP client.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

var _ Embedder = (*Client)(nil)

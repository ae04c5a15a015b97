// Package cohere provides a client for the Cohere embeddings API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// InputType tells the API how the texts will be used, which changes the
// embedding space they are projected into.
type InputType string

const (
	// InputTypeDocument embeds texts that will be searched against.
	InputTypeDocument InputType = "search_document"
	// InputTypeQuery embeds texts used to search documents.
	InputTypeQuery InputType = "search_query"
)

// Client defines the Cohere embedding operations.
type Client interface {
	// Embed returns one embedding vector per input text, in input order.
	// Inputs are batched and paced internally; the result is all-or-nothing.
	Embed(ctx context.Context, texts []string, inputType InputType) ([][]float64, error)
}

type embedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type embedResponse struct {
	Embeddings struct {
		Float [][]float64 `json:"float"`
	} `json:"embeddings"`
}

// Option configures the Cohere client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithBatchSize sets how many texts are sent per request.
func WithBatchSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithMaxAttempts sets how many times a failed batch request is attempted.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the initial backoff between retries; it doubles on
// each subsequent attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.retryDelay = d
	}
}

// WithBatchDelay sets the minimum spacing between batch requests. Zero
// disables pacing.
func WithBatchDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.batchDelay = d
	}
}

// WithMinDimension sets the smallest vector length accepted from the API.
func WithMinDimension(n int) Option {
	return func(c *httpClient) {
		c.minDimension = n
	}
}

type httpClient struct {
	apiKey       string
	baseURL      string
	model        string
	batchSize    int
	maxAttempts  int
	retryDelay   time.Duration
	batchDelay   time.Duration
	minDimension int
	http         *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a new Cohere embeddings client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:       apiKey,
		baseURL:      "https://api.cohere.com",
		model:        "embed-v4.0",
		batchSize:    90,
		maxAttempts:  3,
		retryDelay:   1 * time.Second,
		batchDelay:   2 * time.Second,
		minDimension: 100,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Inf
	if c.batchDelay > 0 {
		limit = rate.Every(c.batchDelay)
	}
	c.limiter = rate.NewLimiter(limit, 1)

	return c
}

func (c *httpClient) Embed(ctx context.Context, texts []string, inputType InputType) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, 0, len(texts))
	dimension := 0

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "cohere: wait for rate limit")
		}

		vectors, err := c.embedBatch(ctx, batch, inputType)
		if err != nil {
			return nil, err
		}

		for _, v := range vectors {
			if len(v) < c.minDimension {
				return nil, eris.Errorf("cohere: embedding dimension %d below minimum %d", len(v), c.minDimension)
			}
			if dimension == 0 {
				dimension = len(v)
			}
			if len(v) != dimension {
				return nil, eris.Errorf("cohere: inconsistent embedding dimensions %d and %d", dimension, len(v))
			}
		}

		out = append(out, vectors...)
	}

	return out, nil
}

// embedBatch sends one batch and validates the vector count.
func (c *httpClient) embedBatch(ctx context.Context, texts []string, inputType InputType) ([][]float64, error) {
	payload, err := json.Marshal(embedRequest{
		Model:          c.model,
		Texts:          texts,
		InputType:      string(inputType),
		EmbeddingTypes: []string{"float"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "cohere: marshal request")
	}

	body, statusCode, err := c.retryDo(ctx, payload)
	if err != nil {
		return nil, eris.Wrap(err, "cohere: embed request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("cohere: unexpected status %d: %s", statusCode, string(body))
	}

	var result embedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "cohere: unmarshal response")
	}

	if len(result.Embeddings.Float) != len(texts) {
		return nil, eris.Errorf("cohere: got %d embeddings for %d texts", len(result.Embeddings.Float), len(texts))
	}

	return result.Embeddings.Float, nil
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an embed request with exponential backoff retries on
// transient failures (429, 500, 502, 503). Returns the response body and
// status code on success, or the last error after exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, payload []byte) ([]byte, int, error) {
	backoff := c.retryDelay

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/embed", bytes.NewReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "cohere: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "cohere: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < c.maxAttempts {
			lastErr = eris.Errorf("cohere: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

// Package httpembed implements modelgateway.Embedder against a generic
// HTTP embedding endpoint returning a vector of the configured dimension D.
// It is the default Embedder for production deployments;
// modelgateway/embedder/mock and modelgateway/embedder/onnx cover testing
// and on-device use respectively.
package httpembed

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Config configures the HTTP embedding client.
type Config struct {
	// BaseURL is the embedding service root, e.g. "https://models.internal".
	BaseURL string

	// Path is the embedding endpoint path, appended to BaseURL.
	// Default: "/v1/embeddings".
	Path string

	// ModelID identifies which embedding model to request.
	ModelID string

	// Dimensions is the configured embedding dimension D (default 768).
	Dimensions int

	// APIKey, when set, is sent as a Bearer token. Secrets arrive only via
	// this configuration struct — this package never reads the process
	// environment.
	APIKey string
}

// Embedder calls a remote embedding endpoint over HTTP.
type Embedder struct {
	client     *resty.Client
	path       string
	modelID    string
	dimensions int
}

// New builds an Embedder from cfg.
func New(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httpembed: BaseURL is required")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}
	path := cfg.Path
	if path == "" {
		path = "/v1/embeddings"
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Embedder{
		client:     client,
		path:       path,
		modelID:    cfg.ModelID,
		dimensions: cfg.Dimensions,
	}, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed calls the configured endpoint and validates the returned vector's
// dimension matches the configured D.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: e.modelID, Input: text}).
		SetResult(&out).
		Post(e.path)
	if err != nil {
		return nil, fmt.Errorf("httpembed: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("httpembed: embedding service returned status %d", resp.StatusCode())
	}
	if len(out.Embedding) != e.dimensions {
		return nil, fmt.Errorf("httpembed: dimension mismatch: got %d, want %d", len(out.Embedding), e.dimensions)
	}
	return out.Embedding, nil
}

// Dimensions returns the configured embedding dimension D.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

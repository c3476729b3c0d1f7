// Package openai implements the remote embedder against an OpenAI-compatible
// embeddings API (OpenAI, Nebius, HF inference gateways).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/coldcase-labs/detective/internal/domain"
	"github.com/coldcase-labs/detective/internal/metrics"
)

// Embedder is a remote embedding provider.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

var _ domain.Embedder = (*Embedder)(nil)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates a remote embedder. Fails when no credential or model
// is configured; connectivity is not checked here.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is not set: %w", domain.ErrEmbeddingUnavailable)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is not set: %w", domain.ErrEmbeddingUnavailable)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// Embed vectorizes a single query text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch vectorizes texts in one request. Providers that return a
// per-token matrix for an input (HF feature-extraction behind an
// OpenAI-compatible gateway) are mean-pooled to a single vector per input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingRequestFailed)
	}

	vectors, err := poolByInput(resp.Data, len(texts))
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		return nil, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(e.model)).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	e.logger.Debug("Embedding request completed",
		zap.String("model", string(e.model)),
		zap.Int("texts", len(texts)),
		zap.Duration("duration", duration),
	)

	return vectors, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// poolByInput buckets response rows by input index and averages each bucket,
// yielding exactly one vector per input text.
func poolByInput(data []openai.Embedding, inputs int) ([][]float64, error) {
	sums := make([][]float64, inputs)
	counts := make([]int, inputs)

	for _, row := range data {
		i := row.Index
		if i < 0 || i >= inputs {
			return nil, fmt.Errorf("embedding row for unknown input %d: %w",
				i, domain.ErrEmbeddingRequestFailed)
		}
		if sums[i] == nil {
			sums[i] = make([]float64, len(row.Embedding))
		} else if len(sums[i]) != len(row.Embedding) {
			return nil, fmt.Errorf("inconsistent embedding width for input %d: %w",
				i, domain.ErrEmbeddingRequestFailed)
		}
		for j, v := range row.Embedding {
			sums[i][j] += float64(v)
		}
		counts[i]++
	}

	for i := range sums {
		if counts[i] == 0 {
			return nil, fmt.Errorf("no embedding returned for input %d: %w",
				i, domain.ErrEmbeddingRequestFailed)
		}
		if counts[i] > 1 {
			for j := range sums[i] {
				sums[i][j] /= float64(counts[i])
			}
		}
	}
	return sums, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors wrap domain.ErrEmbeddingRequestFailed for 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingRequestFailed

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request: %v: %w", err, wrap)
}

// extractDetail pulls the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}

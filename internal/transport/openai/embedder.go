package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
	"github.com/chefmate-cloud/chefmate/internal/metrics"
)

// Embedder is an embedding provider using an OpenAI-compatible API.
// Google's Gemini embedding models are reachable through the same wire
// format via the BaseURL override.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// EmbedderConfig holds the embedding provider settings.
type EmbedderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
// A missing API key is allowed at construction; Embed reports it.
func NewEmbedder(cfg *EmbedderConfig) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and token usage
// with transport-level metrics. No retry here: standalone embed calls
// surface failures immediately, retry belongs to the orchestrator.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
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
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(e.model), errorType(err)).Inc()
		return domain.EmbeddingResult{}, classifyAPIError(err, "embedding")
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(e.model)).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// classifyAPIError maps an API failure onto the domain error taxonomy.
// 429 with an insufficient_quota code is quota exhaustion; any other
// 429 is a rate limit; the rest is a generic provider error.
func classifyAPIError(err error, op string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			if code, ok := apiErr.Code.(string); ok && strings.Contains(code, "insufficient_quota") {
				return fmt.Errorf("%s API error 429: %s: %w", op, apiErr.Message, domain.ErrQuotaExceeded)
			}
			if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
				return fmt.Errorf("%s API error 429: %s: %w", op, apiErr.Message, domain.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s API error 429: %s: %w", op, apiErr.Message, domain.ErrRateLimited)
		}
		return fmt.Errorf("%s API error %d: %s: %w", op, apiErr.HTTPStatusCode, apiErr.Message, domain.ErrProviderError)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 {
			return fmt.Errorf("%s API error 429: %w", op, domain.ErrRateLimited)
		}
		return fmt.Errorf("%s API error %d: %s: %w",
			op, reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrProviderError)
	}

	// Preserve the chain so context deadline errors stay detectable upstream.
	return fmt.Errorf("%s request failed: %w: %w", op, err, domain.ErrProviderError)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "api_error"
	}
}

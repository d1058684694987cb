package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint for Gemini models.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Provider is an LLM provider speaking the OpenAI-compatible chat API.
// Both variants (gemini, openai) run through this client; only the
// base URL, models, and name differ. Implements domain.Provider.
type Provider struct {
	client      *openai.Client
	name        string
	hasKey      bool
	recipeModel string
	chatModel   string

	maxOutputTokens int
	temperature     float32
	chatTemperature float32

	recipeSchema *jsonschema.Definition
	logger       *zap.Logger
}

var _ domain.Provider = (*Provider)(nil)

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Name            string
	APIKey          string
	BaseURL         string
	RecipeModel     string
	ChatModel       string
	MaxOutputTokens int
	Temperature     float32
	ChatTemperature float32
	Logger          *zap.Logger
}

// NewProvider creates an OpenAI-compatible LLM provider. Missing
// credentials never fail construction; IsAvailable reports them and
// invocation surfaces ErrProviderUnavailable.
func NewProvider(cfg *ProviderConfig) (*Provider, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	schema, err := jsonschema.GenerateSchemaForType(domain.Recipe{})
	if err != nil {
		return nil, fmt.Errorf("generate recipe schema: %w", err)
	}

	return &Provider{
		client:          openai.NewClientWithConfig(clientCfg),
		name:            cfg.Name,
		hasKey:          cfg.APIKey != "",
		recipeModel:     cfg.RecipeModel,
		chatModel:       cfg.ChatModel,
		maxOutputTokens: cfg.MaxOutputTokens,
		temperature:     cfg.Temperature,
		chatTemperature: cfg.ChatTemperature,
		recipeSchema:    schema,
		logger:          cfg.Logger,
	}, nil
}

// NewGemini creates the gemini variant pointed at Google's
// OpenAI-compatible endpoint.
func NewGemini(cfg *ProviderConfig) (*Provider, error) {
	cfg.Name = "gemini"
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	return NewProvider(cfg)
}

// NewOpenAI creates the openai variant on the default endpoint.
func NewOpenAI(cfg *ProviderConfig) (*Provider, error) {
	cfg.Name = "openai"
	return NewProvider(cfg)
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return p.name }

// IsAvailable reflects only whether credentials are present.
func (p *Provider) IsAvailable() bool { return p.hasKey }

// GenerateRecipe requests a schema-constrained recipe completion and
// decodes it. An undecodable payload wraps ErrMalformedRecipe so the
// orchestrator can treat it as a transient formatting glitch.
func (p *Provider) GenerateRecipe(ctx context.Context, prompt string) (domain.Recipe, error) {
	if !p.hasKey {
		return domain.Recipe{}, fmt.Errorf("%s: %w", p.name, domain.ErrProviderUnavailable)
	}

	req := openai.ChatCompletionRequest{
		Model:       p.recipeModel,
		Temperature: p.temperature,
		MaxTokens:   p.maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "recipe",
				Schema: p.recipeSchema,
				Strict: true,
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Recipe{}, classifyAPIError(err, p.name)
	}
	if len(resp.Choices) == 0 {
		return domain.Recipe{}, fmt.Errorf("%s: empty completion: %w", p.name, domain.ErrMalformedRecipe)
	}

	var recipe domain.Recipe
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &recipe); err != nil {
		return domain.Recipe{}, fmt.Errorf("%s: decode structured output: %v: %w",
			p.name, err, domain.ErrMalformedRecipe)
	}

	return recipe, nil
}

// Chat runs a free-form conversational completion over the given turns.
func (p *Provider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if !p.hasKey {
		return "", fmt.Errorf("%s: %w", p.name, domain.ErrProviderUnavailable)
	}

	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Temperature: p.chatTemperature,
		MaxTokens:   1024,
		Messages:    msgs,
	})
	if err != nil {
		return "", classifyAPIError(err, p.name)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion: %w", p.name, domain.ErrProviderError)
	}

	return resp.Choices[0].Message.Content, nil
}

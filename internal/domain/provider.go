package domain

import "context"

// ChatRole identifies the author of a chat message.
type ChatRole string

// Chat message roles.
const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Provider is the polymorphic LLM contract. Two variants exist (gemini,
// openai), selected once at startup from configuration, never branched
// on per request. Constructing a provider with absent credentials must
// not fail; only invoking it does.
type Provider interface {
	// GenerateRecipe asks for a schema-constrained structured recipe.
	// The returned recipe is NOT validated here; validation and retry
	// belong to the orchestrator.
	GenerateRecipe(ctx context.Context, prompt string) (Recipe, error)
	// Chat runs a free-form conversational completion over the given turns.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	// Name returns the provider identifier for logs and error messages.
	Name() string
	// IsAvailable reflects only credential presence, not live connectivity.
	IsAvailable() bool
}

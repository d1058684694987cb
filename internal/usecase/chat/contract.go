package chat

import (
	"context"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// History is the persistence contract for conversation memory.
type History interface {
	Append(ctx context.Context, userID string, msg domain.ChatMessage) error
	History(ctx context.Context, userID string) ([]domain.ChatMessage, error)
	Len(ctx context.Context, userID string) (int64, error)
	Clear(ctx context.Context, userID string) (bool, error)
}

// RecipeSearcher looks up stored recipes for chat augmentation.
type RecipeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.RecipeDocument, error)
	IsAvailable() bool
}

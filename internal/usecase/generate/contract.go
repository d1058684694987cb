package generate

import (
	"context"

	"github.com/chefmate-cloud/chefmate/internal/domain"
	"github.com/chefmate-cloud/chefmate/internal/usecase/rag"
)

// ContextBuilder retrieves prompt context from similar stored recipes.
type ContextBuilder interface {
	RetrieveContext(ctx context.Context, dishName string, categories []string) rag.Result
}

// RecipeStore persists generated recipes for future retrieval.
type RecipeStore interface {
	AddRecipe(ctx context.Context, rec *domain.Recipe, categories []string, language string) (domain.StoreOutcome, error)
	IsAvailable() bool
}

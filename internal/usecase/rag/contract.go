package rag

import (
	"context"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// Repository defines the retrieval contract for the context builder.
type Repository interface {
	SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]domain.ScoredDocument, error)
	IsAvailable() bool
}

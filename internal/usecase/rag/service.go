package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
	"github.com/chefmate-cloud/chefmate/internal/metrics"
)

// overFetchFactor compensates for near-duplicate documents collapsing
// during deduplication.
const overFetchFactor = 3

// DegradedReason says why retrieval returned no context despite the
// request being otherwise healthy. Empty means retrieval ran cleanly.
type DegradedReason string

const (
	// DegradedDisabled means the vector store was never configured.
	DegradedDisabled DegradedReason = "disabled"
	// DegradedQuota means embedding quota ran out during retrieval.
	DegradedQuota DegradedReason = "quota"
	// DegradedError means retrieval failed for a non-quota reason.
	DegradedError DegradedReason = "error"
)

// Result is the outcome of context retrieval. Degradation is part of
// the result rather than an error: retrieval failure must never abort
// recipe generation.
type Result struct {
	Context      string
	RecipesFound int
	TopResults   []domain.RecipeDocument
	Degraded     DegradedReason
}

// Config holds retrieval tuning.
type Config struct {
	TopK         int
	ContextLimit int
}

// Service builds prompt-injectable context from similar stored recipes.
type Service struct {
	repo   Repository
	cfg    Config
	logger *zap.Logger
}

// New creates a RAG context builder.
func New(repo Repository, cfg Config, logger *zap.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, logger: logger}
}

// RetrieveContext searches for recipes similar to the dish name,
// deduplicates them by dish name keeping the most similar instance, and
// formats the top matches into a context block. Never returns an error:
// an unavailable store, an empty index and a failed retrieval all
// degrade to an empty context.
func (s *Service) RetrieveContext(ctx context.Context, dishName string, categories []string) Result {
	if !s.repo.IsAvailable() {
		s.logger.Warn("vector store not available, skipping retrieval")
		metrics.RAGRetrievalsTotal.WithLabelValues("disabled").Inc()
		return Result{Degraded: DegradedDisabled}
	}

	candidates, err := s.repo.SearchSimilar(ctx, dishName, s.cfg.TopK*overFetchFactor, -1)
	if err != nil {
		reason := DegradedError
		if domain.IsQuota(err) {
			reason = DegradedQuota
			s.logger.Error("embedding quota exceeded during retrieval",
				zap.String("dish_name", dishName),
				zap.String("suggestion", "switch the embedding provider or wait for quota reset"))
		} else {
			s.logger.Error("retrieval failed",
				zap.String("dish_name", dishName), zap.Error(err))
		}
		metrics.RAGRetrievalsTotal.WithLabelValues("degraded").Inc()
		return Result{Degraded: reason}
	}

	if len(candidates) == 0 {
		s.logger.Info("no recipes above threshold, generating from scratch",
			zap.String("dish_name", dishName))
		metrics.RAGRetrievalsTotal.WithLabelValues("miss").Inc()
		return Result{}
	}

	deduped := dedupeByDishName(candidates)
	if len(deduped) > s.cfg.ContextLimit {
		deduped = deduped[:s.cfg.ContextLimit]
	}

	s.logger.Info("retrieved similar recipes",
		zap.String("dish_name", dishName),
		zap.Int("candidates", len(candidates)),
		zap.Int("used", len(deduped)))
	metrics.RAGRetrievalsTotal.WithLabelValues("hit").Inc()

	docs := make([]domain.RecipeDocument, len(deduped))
	for i, d := range deduped {
		docs[i] = d.Document
	}

	return Result{
		Context:      formatContext(deduped),
		RecipesFound: len(deduped),
		TopResults:   docs,
	}
}

// dedupeByDishName collapses candidates sharing a dish name to the one
// with the lowest distance, preserving the input's best-first order.
func dedupeByDishName(candidates []domain.ScoredDocument) []domain.ScoredDocument {
	index := make(map[string]int, len(candidates))
	deduped := make([]domain.ScoredDocument, 0, len(candidates))

	for _, c := range candidates {
		key := c.Document.Metadata.DishName
		if key == "" {
			key = "unknown"
		}
		if pos, seen := index[key]; seen {
			if c.Distance < deduped[pos].Distance {
				deduped[pos] = c
			}
			continue
		}
		index[key] = len(deduped)
		deduped = append(deduped, c)
	}

	return deduped
}

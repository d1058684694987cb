package reindex

import (
	"context"

	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// Repository defines the storage contract for reindexing.
type Repository interface {
	Keys(ctx context.Context) ([]string, error)
	Documents(ctx context.Context, keys []string) ([]domain.RecipeDocument, error)
	ReindexDocument(ctx context.Context, doc *domain.RecipeDocument) error
}

// Service re-embeds every stored recipe under the current weighting
// configuration.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a bulk reindex service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Run reindexes all documents: one batched read, then one rebuild per
// document. A single document's failure is counted and logged, never
// aborting the batch: partial success is a reportable outcome. Listing
// and batch-load failures are the only batch errors.
func (s *Service) Run(ctx context.Context) (domain.ReindexReport, error) {
	keys, err := s.repo.Keys(ctx)
	if err != nil {
		return domain.ReindexReport{}, err
	}
	if len(keys) == 0 {
		return domain.ReindexReport{}, nil
	}

	docs, err := s.repo.Documents(ctx, keys)
	if err != nil {
		return domain.ReindexReport{}, err
	}

	report := domain.ReindexReport{Total: len(docs)}
	for i := range docs {
		if err := s.repo.ReindexDocument(ctx, &docs[i]); err != nil {
			report.Failed++
			s.logger.Error("reindex failed for document",
				zap.String("id", docs[i].ID), zap.Error(err))
			continue
		}
		report.Success++
	}

	s.logger.Info("reindex complete",
		zap.Int("total", report.Total),
		zap.Int("success", report.Success),
		zap.Int("failed", report.Failed))
	return report, nil
}

package recipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/chefmate-cloud/chefmate/internal/db"
	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// indexDefinition builds the FT schema for recipe documents: tag fields
// for exact lookups and an HNSW cosine vector field for similarity.
func indexDefinition(name, keyPrefix string, dimensions int) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     name,
		Prefixes: []string{keyPrefix + "recipe:"},
		Fields: []db.IndexField{
			{Name: fieldDishName, Type: db.IndexFieldTag},
			{Name: fieldCategories, Type: db.IndexFieldTag, TagSeparator: tagSeparator},
			{Name: fieldLanguage, Type: db.IndexFieldTag},
			{Name: fieldText, Type: db.IndexFieldText},
			{
				Name:           fieldVector,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      dimensions,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
}

// EnsureIndex creates the recipe index if it does not exist yet.
// Idempotent across restarts.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def := indexDefinition(r.cfg.IndexName, r.cfg.KeyPrefix, r.cfg.Dimensions)
	if err := r.store.CreateIndex(ctx, def); err != nil {
		// Another instance may have created it between the existence
		// check and now.
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

// RecreateIndex drops the index and creates it with the current schema.
// Needed when the embedding dimensions change: FT.CREATE fixes DIM, so
// a dimension change invalidates the old index. Stored documents are
// hashes and survive the drop; the new index picks them up by prefix.
func (r *Repo) RecreateIndex(ctx context.Context) error {
	if r.store == nil {
		return domain.ErrStoreUnavailable
	}

	if err := r.store.DropIndex(ctx, r.cfg.IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.cfg.IndexName, err)
	}

	def := indexDefinition(r.cfg.IndexName, r.cfg.KeyPrefix, r.cfg.Dimensions)
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

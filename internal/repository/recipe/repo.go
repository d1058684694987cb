package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chefmate-cloud/chefmate/internal/db"
	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// store is the consumer interface for recipe persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Config holds key layout and retrieval defaults for the repository.
type Config struct {
	KeyPrefix  string
	IndexName  string
	Dimensions int

	TopK      int
	Threshold float64

	Text TextPolicy
}

// Repo is the vector store adapter for recipe documents. A nil store is
// the supported disabled state: writes report it, reads fail fast, and
// callers are expected to check IsAvailable first.
type Repo struct {
	cfg      Config
	store    store
	embedder domain.Embedder
	now      func() time.Time
}

// New creates a recipe repository. Pass a nil store when no database is
// configured; the repository then reports unavailable instead of
// failing construction.
func New(cfg Config, s store, emb domain.Embedder) *Repo {
	return &Repo{cfg: cfg, store: s, embedder: emb, now: time.Now}
}

// IsAvailable reports whether the backing store was configured.
func (r *Repo) IsAvailable() bool {
	return r.store != nil
}

// AddRecipe builds the weighted document text, embeds it and persists
// the document. Embedding-quota exhaustion skips the write and reports
// it through the outcome instead of failing the caller; every other
// embedding or store error propagates.
func (r *Repo) AddRecipe(ctx context.Context, rec *domain.Recipe, categories []string, language string) (domain.StoreOutcome, error) {
	if r.store == nil {
		return domain.StoreOutcomeUnavailable, nil
	}

	text := r.cfg.Text.buildText(
		rec.DishName, categories, rec.Description, ingredientList(rec.Ingredients),
	)

	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		if domain.IsQuota(err) {
			return domain.StoreOutcomeSkippedQuota, nil
		}
		return "", fmt.Errorf("embed recipe %q: %w", rec.DishName, err)
	}

	doc := domain.RecipeDocument{
		ID:        uuid.NewString(),
		Text:      text,
		Embedding: emb.Embedding,
		Metadata: domain.RecipeMetadata{
			DishName:    rec.DishName,
			Description: rec.Description,
			Categories:  categories,
			Language:    language,
			PrepTime:    rec.PrepTime,
			CookTime:    rec.CookTime,
			Servings:    rec.Servings,
			CreatedAt:   r.now().UTC().Format(time.RFC3339),
		},
	}

	key := r.docKey(doc.ID)
	if err := r.store.HSet(ctx, key, docToHash(&doc)); err != nil {
		return "", fmt.Errorf("hset %s: %w", key, err)
	}
	return domain.StoreOutcomeStored, nil
}

// SearchSimilar embeds the query, runs a top-limit KNN search, converts
// each distance to similarity and drops candidates below threshold.
// Results keep the index's best-first order. Pass limit <= 0 or a
// negative threshold to use the configured defaults.
func (r *Repo) SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]domain.ScoredDocument, error) {
	if r.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = r.cfg.TopK
	}
	if threshold < 0 {
		threshold = r.cfg.Threshold
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Vector:       emb.Embedding,
		K:            limit,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]domain.ScoredDocument, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		scored := domain.ScoredDocument{
			Document: docFromHash(r.docID(entry.Key), entry.Fields),
			Distance: entry.Score,
		}
		if scored.Similarity() < threshold {
			continue
		}
		results = append(results, scored)
	}
	return results, nil
}

// Search runs a plain top-limit similarity search without threshold
// filtering or scores, for user-facing search. Fails fast when the
// store was never initialized.
func (r *Repo) Search(ctx context.Context, query string, limit int) ([]domain.RecipeDocument, error) {
	if r.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = r.cfg.TopK
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Vector:       emb.Embedding,
		K:            limit,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	docs := make([]domain.RecipeDocument, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docs = append(docs, docFromHash(r.docID(entry.Key), entry.Fields))
	}
	return docs, nil
}

// Reindex locates a document by dish name and rebuilds its weighted
// text and embedding under the current policy, updating text, embedding
// and updated_at in place. created_at stays untouched.
func (r *Repo) Reindex(ctx context.Context, dishName string) error {
	if r.store == nil {
		return domain.ErrStoreUnavailable
	}

	query := fmt.Sprintf("@%s:{%s}", fieldDishName, escapeTag(dishName))
	sr, err := r.store.SearchList(ctx, r.cfg.IndexName, query, 0, 1, []string{fieldDishName})
	if err != nil {
		return fmt.Errorf("lookup recipe %q: %w", dishName, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return fmt.Errorf("recipe %q: %w", dishName, domain.ErrRecipeNotFound)
	}

	return r.ReindexKey(ctx, sr.Entries[0].Key)
}

// ReindexKey rebuilds a single document addressed by its store key.
func (r *Repo) ReindexKey(ctx context.Context, key string) error {
	if r.store == nil {
		return domain.ErrStoreUnavailable
	}

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall %s: %w", key, err)
	}

	doc := docFromHash(r.docID(key), fields)
	return r.reindexDocument(ctx, key, doc)
}

// Documents loads the stored documents behind the given keys in one
// batched read. A missing key yields a document with empty metadata
// rather than failing the batch.
func (r *Repo) Documents(ctx context.Context, keys []string) ([]domain.RecipeDocument, error) {
	if r.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if len(keys) == 0 {
		return nil, nil
	}

	fieldMaps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}

	docs := make([]domain.RecipeDocument, len(fieldMaps))
	for i, fields := range fieldMaps {
		docs[i] = docFromHash(r.docID(keys[i]), fields)
	}
	return docs, nil
}

// ReindexDocument rebuilds an already-loaded document, for bulk
// reindex over a batched read.
func (r *Repo) ReindexDocument(ctx context.Context, doc *domain.RecipeDocument) error {
	if r.store == nil {
		return domain.ErrStoreUnavailable
	}
	return r.reindexDocument(ctx, r.docKey(doc.ID), *doc)
}

// reindexDocument rebuilds the weighted text and embedding under the
// current policy, updating text, embedding and updated_at in place.
// The ingredient portion is recovered from the old stored text, since
// ingredients are not persisted separately.
func (r *Repo) reindexDocument(ctx context.Context, key string, doc domain.RecipeDocument) error {
	if doc.Metadata.DishName == "" {
		return fmt.Errorf("document %s: %w", key, domain.ErrRecipeNotFound)
	}

	text := r.cfg.Text.buildText(
		doc.Metadata.DishName, doc.Metadata.Categories,
		doc.Metadata.Description, doc.IngredientFragment(),
	)

	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed reindexed %q: %w", doc.Metadata.DishName, err)
	}

	update := map[string]string{
		fieldText:      text,
		fieldVector:    string(vectorToBytes(emb.Embedding)),
		fieldUpdatedAt: r.now().UTC().Format(time.RFC3339),
	}
	if err := r.store.HSet(ctx, key, update); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored recipe document key, for bulk reindex.
func (r *Repo) Keys(ctx context.Context) ([]string, error) {
	if r.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	keys, err := r.store.Scan(ctx, r.cfg.KeyPrefix+"recipe:*")
	if err != nil {
		return nil, fmt.Errorf("scan recipe keys: %w", err)
	}
	return keys, nil
}

// Count returns the number of stored recipe documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, domain.ErrStoreUnavailable
	}
	n, err := r.store.SearchCount(ctx, r.cfg.IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.cfg.IndexName, err)
	}
	return n, nil
}

func (r *Repo) docKey(id string) string {
	return r.cfg.KeyPrefix + "recipe:" + id
}

func (r *Repo) docID(key string) string {
	return strings.TrimPrefix(key, r.cfg.KeyPrefix+"recipe:")
}

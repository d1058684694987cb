package domain

import "strings"

// RecipeMetadata is the per-document metadata stored alongside the
// embedding. Timing fields are free text, never parsed.
type RecipeMetadata struct {
	DishName    string
	Description string
	Categories  []string
	Language    string
	PrepTime    string
	CookTime    string
	Servings    string
	CreatedAt   string // ISO timestamp, write-once
	UpdatedAt   string // set only by reindex
}

// RecipeDocument is the unit of storage and retrieval. Text is the
// compressed weighted representation used as embedding input, not the
// full recipe.
type RecipeDocument struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  RecipeMetadata
}

// IngredientFragment recovers the best-effort ingredient list from the
// stored weighted text: everything after the last ". " separator.
// Ingredient names are joined with ", " and never contain the
// separator, while description sentences may, so splitting from the
// front would swallow the description's tail. Lossy when truncation
// cut into the tail, which is tolerated. Ingredients are not persisted
// separately, so this split is the only way back to them.
func (d RecipeDocument) IngredientFragment() string {
	i := strings.LastIndex(d.Text, ". ")
	if i < 0 {
		return ""
	}
	return d.Text[i+2:]
}

// ScoredDocument pairs a document with its raw distance score.
// Lower distance means more similar.
type ScoredDocument struct {
	Document RecipeDocument
	Distance float64
}

// Similarity converts the distance score to a similarity in [0,1].
// Valid for normalized cosine distance; the single conversion point
// keeps threshold comparisons consistent across the codebase.
func (s ScoredDocument) Similarity() float64 {
	return 1 - s.Distance
}

// StoreOutcome reports what happened to a recipe write. Quota-skips are
// deliberate degradation, surfaced so callers and tests can assert on them.
type StoreOutcome string

const (
	// StoreOutcomeStored means the document was embedded and persisted.
	StoreOutcomeStored StoreOutcome = "stored"
	// StoreOutcomeSkippedQuota means embedding quota ran out and the write
	// was skipped without failing the caller.
	StoreOutcomeSkippedQuota StoreOutcome = "skipped_quota"
	// StoreOutcomeUnavailable means the store was never initialized.
	StoreOutcomeUnavailable StoreOutcome = "unavailable"
	// StoreOutcomeFailed means the write errored and was absorbed so
	// the user-visible request could still succeed.
	StoreOutcomeFailed StoreOutcome = "failed"
)

// ReindexReport is the outcome of a bulk reindex run. Partial success is
// expected and reportable, not an error for the batch as a whole.
type ReindexReport struct {
	Total   int
	Success int
	Failed  int
}

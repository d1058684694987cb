package recipe

import (
	"context"
	"testing"

	"github.com/chefmate-cloud/chefmate/internal/db"
	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn   func(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	searchCountFn  func(ctx context.Context, index, query string) (int, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn    func(ctx context.Context, name string) error
	indexExistsFn  func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(
	ctx context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, index, query, offset, limit, fields)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

// mockEmbedder implements domain.Embedder for tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: testVector(4)}, nil
}

func testConfig() Config {
	return Config{
		KeyPrefix:  "chefmate:",
		IndexName:  "recipes_idx",
		Dimensions: 4,
		TopK:       5,
		Threshold:  0.15,
		Text: TextPolicy{
			MaxTextLength:  500,
			DishNameWeight: 3,
			CategoryWeight: 2,
		},
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore, *mockEmbedder) {
	t.Helper()
	ms := &mockStore{}
	me := &mockEmbedder{}
	return New(testConfig(), ms, me), ms, me
}

func testVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}
	return vec
}

func testRecipe() *domain.Recipe {
	return &domain.Recipe{
		DishName:    "Bún Chả",
		Description: "Bún chả Hà Nội truyền thống với thịt nướng than hoa",
		PrepTime:    "30 phút",
		CookTime:    "20 phút",
		Servings:    "4 người",
		Ingredients: []domain.Ingredient{
			{Name: "thịt ba chỉ", Quantity: "500g"},
			{Name: "bún tươi", Quantity: "1kg"},
			{Name: "nước mắm", Quantity: "3 thìa"},
			{Name: "đường", Quantity: "2 thìa"},
		},
		Steps: []domain.Step{
			{StepNumber: 1, Description: "Ướp thịt"},
			{StepNumber: 2, Description: "Nướng thịt"},
			{StepNumber: 3, Description: "Pha nước chấm"},
		},
	}
}

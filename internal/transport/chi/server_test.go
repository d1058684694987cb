package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
	chatuc "github.com/chefmate-cloud/chefmate/internal/usecase/chat"
	generateuc "github.com/chefmate-cloud/chefmate/internal/usecase/generate"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, req *generateuc.Request) (*generateuc.Response, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req *generateuc.Request) (*generateuc.Response, error) {
	return m.generateFn(ctx, req)
}

type mockSearcher struct {
	searchFn    func(ctx context.Context, query string, limit int) ([]domain.RecipeDocument, error)
	countFn     func(ctx context.Context) (int, error)
	availableFn func() bool
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]domain.RecipeDocument, error) {
	return m.searchFn(ctx, query, limit)
}

func (m *mockSearcher) Count(ctx context.Context) (int, error) { return m.countFn(ctx) }
func (m *mockSearcher) IsAvailable() bool                      { return m.availableFn() }

type mockChatter struct {
	chatFn     func(ctx context.Context, userID, message string) (*chatuc.Reply, error)
	historyFn  func(ctx context.Context, userID string) (chatuc.HistoryResult, error)
	clearFn    func(ctx context.Context, userID string) (bool, error)
	sessionsFn func() []chatuc.SessionInfo
}

func (m *mockChatter) Chat(ctx context.Context, userID, message string) (*chatuc.Reply, error) {
	return m.chatFn(ctx, userID, message)
}

func (m *mockChatter) HistoryOf(ctx context.Context, userID string) (chatuc.HistoryResult, error) {
	return m.historyFn(ctx, userID)
}

func (m *mockChatter) ClearSession(ctx context.Context, userID string) (bool, error) {
	return m.clearFn(ctx, userID)
}

func (m *mockChatter) Sessions() []chatuc.SessionInfo { return m.sessionsFn() }

func newTestRouter(gen *mockGenerator, search *mockSearcher, chat *mockChatter) http.Handler {
	s := NewServer(gen, search, chat, "recipes_idx", zap.NewNop())
	r := chi.NewRouter()
	s.Register(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func TestGenerateRecipe(t *testing.T) {
	var got *generateuc.Request
	gen := &mockGenerator{
		generateFn: func(_ context.Context, req *generateuc.Request) (*generateuc.Response, error) {
			got = req
			return &generateuc.Response{
				Recipe: domain.Recipe{
					DishName:    "Phở Gà",
					Ingredients: []domain.Ingredient{{Name: "gà", Quantity: "1 con"}},
					Steps:       []domain.Step{{StepNumber: 1, Description: "Luộc gà."}},
				},
				DurationMS:   1234,
				Attempts:     2,
				RAGUsed:      true,
				RAGRecipes:   3,
				StoreOutcome: domain.StoreOutcomeStored,
			}, nil
		},
	}
	h := newTestRouter(gen, nil, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/generate-recipe",
		`{"dishName":"Phở Gà","categories":["quick"],"language":"vi","servingSize":4}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	recipe := body["recipe"].(map[string]any)
	if recipe["dishName"] != "Phở Gà" {
		t.Errorf("recipe.dishName = %v", recipe["dishName"])
	}
	meta := body["meta"].(map[string]any)
	if meta["duration"] != "1234ms" {
		t.Errorf("meta.duration = %v, want 1234ms", meta["duration"])
	}
	if meta["ragUsed"] != true || meta["ragRecipes"] != float64(3) {
		t.Errorf("meta rag fields = %v / %v", meta["ragUsed"], meta["ragRecipes"])
	}
	if meta["stored"] != "stored" {
		t.Errorf("meta.stored = %v, want stored", meta["stored"])
	}

	if got.DishName != "Phở Gà" || got.ServingSize != 4 {
		t.Errorf("request passed through wrong: %+v", got)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "quick" {
		t.Errorf("categories = %v", got.Categories)
	}
}

func TestGenerateRecipe_CategoryAlias(t *testing.T) {
	var got *generateuc.Request
	gen := &mockGenerator{
		generateFn: func(_ context.Context, req *generateuc.Request) (*generateuc.Response, error) {
			got = req
			return &generateuc.Response{Recipe: domain.Recipe{DishName: "x"}}, nil
		},
	}
	h := newTestRouter(gen, nil, nil)

	rec, _ := doJSON(t, h, http.MethodPost, "/generate-recipe",
		`{"dishName":"Bún Bò","category":"healthy"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "healthy" {
		t.Errorf("singular category not promoted to list: %v", got.Categories)
	}
}

func TestGenerateRecipe_MissingDishName(t *testing.T) {
	h := newTestRouter(&mockGenerator{}, nil, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/generate-recipe", `{"language":"vi"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(body["error"].(string), "dishName") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestGenerateRecipe_UnsupportedLanguage(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(_ context.Context, _ *generateuc.Request) (*generateuc.Response, error) {
			return nil, domain.ErrUnsupportedLanguage
		},
	}
	h := newTestRouter(gen, nil, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/generate-recipe",
		`{"dishName":"Phở","language":"fr"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(body["error"].(string), "Language không hợp lệ") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestGenerateRecipe_QuotaMapsTo402(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(_ context.Context, _ *generateuc.Request) (*generateuc.Response, error) {
			return nil, domain.ErrQuotaExceeded
		},
	}
	h := newTestRouter(gen, nil, nil)

	rec, _ := doJSON(t, h, http.MethodPost, "/generate-recipe", `{"dishName":"Phở"}`)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}

func TestSearchRecipes(t *testing.T) {
	search := &mockSearcher{
		availableFn: func() bool { return true },
		searchFn: func(_ context.Context, query string, limit int) ([]domain.RecipeDocument, error) {
			if query != "phở" || limit != 5 {
				t.Errorf("search(%q, %d), want (phở, 5)", query, limit)
			}
			return []domain.RecipeDocument{{
				Metadata: domain.RecipeMetadata{
					DishName:    "Phở Bò",
					Description: "Phở truyền thống",
					Categories:  []string{"món chính"},
					Language:    "vi",
					PrepTime:    "30 phút",
					Servings:    "4 người",
					CreatedAt:   "2025-01-01T00:00:00Z",
				},
			}}, nil
		},
	}
	h := newTestRouter(nil, search, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/search-recipes", `{"query":"phở"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["count"] != float64(1) || body["query"] != "phở" {
		t.Errorf("count/query = %v / %v", body["count"], body["query"])
	}
	recipes := body["recipes"].([]any)
	first := recipes[0].(map[string]any)
	if first["dishName"] != "Phở Bò" || first["prepTime"] != "30 phút" {
		t.Errorf("recipe summary = %v", first)
	}
	if _, hasText := first["text"]; hasText {
		t.Error("weighted text leaked into search response")
	}
}

func TestSearchRecipes_MissingQuery(t *testing.T) {
	h := newTestRouter(nil, &mockSearcher{availableFn: func() bool { return true }}, nil)

	rec, _ := doJSON(t, h, http.MethodPost, "/search-recipes", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchRecipes_StoreUnavailable(t *testing.T) {
	h := newTestRouter(nil, &mockSearcher{availableFn: func() bool { return false }}, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/search-recipes", `{"query":"phở"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(body["error"].(string), "không khả dụng") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestVectorStoreStatus(t *testing.T) {
	search := &mockSearcher{
		availableFn: func() bool { return true },
		countFn:     func(_ context.Context) (int, error) { return 42, nil },
	}
	h := newTestRouter(nil, search, nil)

	rec, body := doJSON(t, h, http.MethodGet, "/vector-store-status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["initialized"] != true || body["recipeCount"] != float64(42) {
		t.Errorf("body = %v", body)
	}
	if body["indexName"] != "recipes_idx" {
		t.Errorf("indexName = %v", body["indexName"])
	}
}

func TestVectorStoreStatus_Disabled(t *testing.T) {
	h := newTestRouter(nil, &mockSearcher{availableFn: func() bool { return false }}, nil)

	rec, body := doJSON(t, h, http.MethodGet, "/vector-store-status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["initialized"] != false {
		t.Errorf("initialized = %v, want false", body["initialized"])
	}
}

func TestChat(t *testing.T) {
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	chat := &mockChatter{
		chatFn: func(_ context.Context, userID, message string) (*chatuc.Reply, error) {
			if userID != "u1" || message != "xin chào" {
				t.Errorf("chat(%q, %q)", userID, message)
			}
			return &chatuc.Reply{Message: "Chào bạn!", CreatedAt: created, MessageCount: 2}, nil
		},
	}
	h := newTestRouter(nil, nil, chat)

	rec, body := doJSON(t, h, http.MethodPost, "/chat", `{"userId":"u1","message":"xin chào"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["message"] != "Chào bạn!" || body["userId"] != "u1" {
		t.Errorf("body = %v", body)
	}
	info := body["sessionInfo"].(map[string]any)
	if info["messageCount"] != float64(2) {
		t.Errorf("messageCount = %v", info["messageCount"])
	}
}

func TestChat_MissingFields(t *testing.T) {
	h := newTestRouter(nil, nil, &mockChatter{})

	rec, body := doJSON(t, h, http.MethodPost, "/chat", `{"userId":"u1"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(body["error"].(string), "'userId' và 'message'") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestChatHistory(t *testing.T) {
	chat := &mockChatter{
		historyFn: func(_ context.Context, userID string) (chatuc.HistoryResult, error) {
			return chatuc.HistoryResult{
				Exists: true,
				Messages: []domain.ChatMessage{
					{Role: domain.RoleUser, Content: "hi"},
					{Role: domain.RoleAssistant, Content: "chào"},
				},
			}, nil
		},
	}
	h := newTestRouter(nil, nil, chat)

	rec, body := doJSON(t, h, http.MethodGet, "/chat/history/u1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["exists"] != true || body["messageCount"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	history := body["history"].([]any)
	first := history[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "hi" {
		t.Errorf("first message = %v", first)
	}
}

func TestChatHistory_NoSession(t *testing.T) {
	chat := &mockChatter{
		historyFn: func(_ context.Context, _ string) (chatuc.HistoryResult, error) {
			return chatuc.HistoryResult{Exists: false}, nil
		},
	}
	h := newTestRouter(nil, nil, chat)

	rec, body := doJSON(t, h, http.MethodGet, "/chat/history/nobody", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["exists"] != false {
		t.Errorf("exists = %v, want false", body["exists"])
	}
	if history := body["history"].([]any); len(history) != 0 {
		t.Errorf("history = %v, want empty", history)
	}
}

func TestClearChatHistory(t *testing.T) {
	chat := &mockChatter{
		clearFn: func(_ context.Context, userID string) (bool, error) { return true, nil },
	}
	h := newTestRouter(nil, nil, chat)

	rec, body := doJSON(t, h, http.MethodDelete, "/chat/history/u1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["deleted"] != true || body["message"] != "Đã xóa lịch sử chat" {
		t.Errorf("body = %v", body)
	}
}

func TestClearChatHistory_NotFound(t *testing.T) {
	chat := &mockChatter{
		clearFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
	}
	h := newTestRouter(nil, nil, chat)

	_, body := doJSON(t, h, http.MethodDelete, "/chat/history/nobody", "")

	if body["deleted"] != false || body["message"] != "Không tìm thấy session" {
		t.Errorf("body = %v", body)
	}
}

func TestChatSessions(t *testing.T) {
	chat := &mockChatter{
		sessionsFn: func() []chatuc.SessionInfo {
			return []chatuc.SessionInfo{{UserID: "a"}, {UserID: "b"}}
		},
	}
	h := newTestRouter(nil, nil, chat)

	rec, body := doJSON(t, h, http.MethodGet, "/chat/sessions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["totalSessions"] != float64(2) {
		t.Errorf("totalSessions = %v", body["totalSessions"])
	}
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(nil, &mockSearcher{availableFn: func() bool { return false }}, nil)

	rec, body := doJSON(t, h, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
	checks := body["checks"].(map[string]any)
	if checks["vector_store"] != "disabled" {
		t.Errorf("vector_store = %v, want disabled", checks["vector_store"])
	}
}

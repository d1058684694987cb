package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// mockProvider implements domain.Provider for tests.
type mockProvider struct {
	chatFn func(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

func (m *mockProvider) GenerateRecipe(context.Context, string) (domain.Recipe, error) {
	return domain.Recipe{}, nil
}

func (m *mockProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, messages)
	}
	return "ok", nil
}

func (m *mockProvider) Name() string      { return "gemini" }
func (m *mockProvider) IsAvailable() bool { return true }

// mockHistory implements History with an in-memory map.
type mockHistory struct {
	messages map[string][]domain.ChatMessage
}

func newMockHistory() *mockHistory {
	return &mockHistory{messages: make(map[string][]domain.ChatMessage)}
}

func (m *mockHistory) Append(_ context.Context, userID string, msg domain.ChatMessage) error {
	m.messages[userID] = append(m.messages[userID], msg)
	return nil
}

func (m *mockHistory) History(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	return m.messages[userID], nil
}

func (m *mockHistory) Len(_ context.Context, userID string) (int64, error) {
	return int64(len(m.messages[userID])), nil
}

func (m *mockHistory) Clear(_ context.Context, userID string) (bool, error) {
	_, existed := m.messages[userID]
	delete(m.messages, userID)
	return existed, nil
}

// mockSearcher implements RecipeSearcher for tests.
type mockSearcher struct {
	searchFn    func(ctx context.Context, query string, limit int) ([]domain.RecipeDocument, error)
	unavailable bool
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]domain.RecipeDocument, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockSearcher) IsAvailable() bool { return !m.unavailable }

func newTestService(p *mockProvider, searcher *mockSearcher) (*Service, *mockHistory) {
	history := newMockHistory()
	svc := New(p, history, searcher, Config{SessionTimeout: 30 * time.Minute}, zap.NewNop())
	return svc, history
}

func TestChat_PersistsBothSides(t *testing.T) {
	p := &mockProvider{
		chatFn: func(_ context.Context, messages []domain.ChatMessage) (string, error) {
			if messages[0].Role != domain.RoleSystem {
				t.Errorf("first message role = %q, expected system", messages[0].Role)
			}
			return "Chào bạn!", nil
		},
	}
	svc, history := newTestService(p, &mockSearcher{})

	reply, err := svc.Chat(context.Background(), "user-1", "xin chào")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if reply.Message != "Chào bạn!" {
		t.Errorf("reply = %q", reply.Message)
	}
	if reply.MessageCount != 2 {
		t.Errorf("messageCount = %d, expected 2", reply.MessageCount)
	}

	persisted := history.messages["user-1"]
	if len(persisted) != 2 {
		t.Fatalf("expected user and assistant messages persisted, got %d", len(persisted))
	}
	if persisted[0].Role != domain.RoleUser || persisted[1].Role != domain.RoleAssistant {
		t.Errorf("unexpected persisted roles: %+v", persisted)
	}
}

func TestChat_HistoryFlowsIntoProvider(t *testing.T) {
	var seen []domain.ChatMessage
	p := &mockProvider{
		chatFn: func(_ context.Context, messages []domain.ChatMessage) (string, error) {
			seen = messages
			return "ok", nil
		},
	}
	svc, _ := newTestService(p, &mockSearcher{})

	if _, err := svc.Chat(context.Background(), "user-1", "câu hỏi một"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if _, err := svc.Chat(context.Background(), "user-1", "câu hỏi hai"); err != nil {
		t.Fatalf("second turn failed: %v", err)
	}

	// system + first user + first assistant + second user
	if len(seen) != 4 {
		t.Fatalf("expected 4 messages on second turn, got %d", len(seen))
	}
	if seen[1].Content != "câu hỏi một" {
		t.Errorf("history not replayed: %+v", seen)
	}
}

func TestChat_RecipeAugmentation(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, query string, limit int) ([]domain.RecipeDocument, error) {
			if limit != 3 {
				t.Errorf("limit = %d, expected 3", limit)
			}
			return []domain.RecipeDocument{
				{Metadata: domain.RecipeMetadata{DishName: "Phở Bò", Description: "Phở truyền thống"}},
			}, nil
		},
	}

	var enhanced string
	p := &mockProvider{
		chatFn: func(_ context.Context, messages []domain.ChatMessage) (string, error) {
			enhanced = messages[len(messages)-1].Content
			return "ok", nil
		},
	}
	svc, _ := newTestService(p, searcher)

	if _, err := svc.Chat(context.Background(), "user-1", "gợi ý công thức phở"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if !strings.Contains(enhanced, "Thông tin từ cơ sở dữ liệu") {
		t.Errorf("message not augmented: %q", enhanced)
	}
	if !strings.Contains(enhanced, "Phở Bò: Phở truyền thống") {
		t.Errorf("augmentation missing recipe: %q", enhanced)
	}
}

func TestChat_NoAugmentationForSmallTalk(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(context.Context, string, int) ([]domain.RecipeDocument, error) {
			t.Fatal("search must not run for non-recipe messages")
			return nil, nil
		},
	}
	svc, _ := newTestService(&mockProvider{}, searcher)

	if _, err := svc.Chat(context.Background(), "user-1", "thời tiết hôm nay thế nào"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
}

func TestHistoryOf_NoSession(t *testing.T) {
	svc, history := newTestService(&mockProvider{}, &mockSearcher{})
	history.messages["user-1"] = []domain.ChatMessage{{Role: domain.RoleUser, Content: "cũ"}}

	result, err := svc.HistoryOf(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("HistoryOf failed: %v", err)
	}
	if result.Exists {
		t.Error("no active session must report Exists=false")
	}
	if len(result.Messages) != 0 {
		t.Errorf("expected empty history without session, got %d", len(result.Messages))
	}
}

func TestClearSession(t *testing.T) {
	svc, history := newTestService(&mockProvider{}, &mockSearcher{})

	if _, err := svc.Chat(context.Background(), "user-1", "xin chào"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	existed, err := svc.ClearSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if !existed {
		t.Error("expected the session to exist")
	}
	if len(history.messages["user-1"]) != 0 {
		t.Error("persisted history not cleared")
	}
	if len(svc.Sessions()) != 0 {
		t.Error("session still listed after clear")
	}
}

func TestClearSession_PersistedHistoryOnly(t *testing.T) {
	svc, history := newTestService(&mockProvider{}, &mockSearcher{})

	// The session was evicted but the persisted list lives on.
	history.messages["user-1"] = []domain.ChatMessage{{Role: domain.RoleUser, Content: "cũ"}}

	existed, err := svc.ClearSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if !existed {
		t.Error("clearing persisted history without a session must still report deletion")
	}
	if len(history.messages["user-1"]) != 0 {
		t.Error("persisted history not cleared")
	}
}

func TestClearSession_Nothing(t *testing.T) {
	svc, _ := newTestService(&mockProvider{}, &mockSearcher{})

	existed, err := svc.ClearSession(context.Background(), "user-absent")
	if err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if existed {
		t.Error("no session and no history must report nothing deleted")
	}
}

func TestEvictInactive(t *testing.T) {
	svc, _ := newTestService(&mockProvider{}, &mockSearcher{})

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.Chat(context.Background(), "user-1", "xin chào"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	// 31 minutes of silence crosses the 30-minute timeout.
	svc.now = func() time.Time { return base.Add(31 * time.Minute) }
	svc.evictInactive()

	if len(svc.Sessions()) != 0 {
		t.Error("inactive session not evicted")
	}
}

func TestEvictInactive_KeepsActive(t *testing.T) {
	svc, _ := newTestService(&mockProvider{}, &mockSearcher{})

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.Chat(context.Background(), "user-1", "xin chào"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	svc.evictInactive()

	if len(svc.Sessions()) != 1 {
		t.Error("active session wrongly evicted")
	}
}

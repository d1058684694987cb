package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

const systemPrompt = `Bạn là Chef AI - trợ lý ảo chuyên về nấu ăn.

NHIỆM VỤ:
- Tư vấn món ăn, nguyên liệu, kỹ thuật nấu
- Gợi ý công thức phù hợp với sở thích user
- Trả lời câu hỏi về dinh dưỡng, thời gian nấu
- Nhớ preferences và ngữ cảnh cuộc trò chuyện
- Gợi ý món ăn dựa trên nguyên liệu có sẵn

HƯỚNG DẪN API:
- Muốn công thức chi tiết → Gợi ý dùng /generate-recipe
- Muốn tìm món tương tự → Gợi ý dùng /search-recipes

PHONG CÁCH: Thân thiện, nhiệt tình, chuyên nghiệp.
NGÔN NGỮ: Tự động detect và trả lời bằng ngôn ngữ user dùng.`

// augmentLimit caps how many stored recipes enrich a chat turn.
const augmentLimit = 3

// session tracks one user's in-memory conversation state. The message
// history itself lives in the store; the session only carries activity
// timestamps for eviction.
type session struct {
	createdAt    time.Time
	lastActivity time.Time
}

// SessionInfo is the externally visible session summary.
type SessionInfo struct {
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Reply is one chat turn's outcome.
type Reply struct {
	Message      string
	CreatedAt    time.Time
	MessageCount int64
}

// HistoryResult is a user's persisted conversation plus session state.
type HistoryResult struct {
	Exists       bool
	Messages     []domain.ChatMessage
	CreatedAt    time.Time
	LastActivity time.Time
}

// Config bounds session lifetime.
type Config struct {
	// SessionTimeout evicts sessions idle longer than this.
	SessionTimeout time.Duration
}

// Service manages per-user chat sessions with persisted memory and
// optional retrieval augmentation.
type Service struct {
	provider domain.Provider
	history  History
	search   RecipeSearcher
	cfg      Config
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session

	now func() time.Time
}

// New creates a chat service.
func New(provider domain.Provider, history History, search RecipeSearcher, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		history:  history,
		search:   search,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Run evicts inactive sessions until the context is canceled. Meant to
// be started once from the composition root.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SessionTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictInactive()
		}
	}
}

func (s *Service) evictInactive() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, sess := range s.sessions {
		if now.Sub(sess.lastActivity) > s.cfg.SessionTimeout {
			delete(s.sessions, userID)
			s.logger.Info("chat session evicted", zap.String("user_id", userID))
		}
	}
}

// Chat runs one conversation turn: touch the session, optionally enrich
// the message with stored recipes, call the provider with the persisted
// history, and persist both sides of the turn.
func (s *Service) Chat(ctx context.Context, userID, message string) (*Reply, error) {
	sess := s.touchSession(userID)

	enhanced := message
	if extra := s.augment(ctx, message); extra != "" {
		enhanced = message + extra
	}

	previous, err := s.history.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}

	messages := make([]domain.ChatMessage, 0, len(previous)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, previous...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: enhanced})

	answer, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("chat with %s: %w", s.provider.Name(), err)
	}

	if err := s.history.Append(ctx, userID, domain.ChatMessage{Role: domain.RoleUser, Content: enhanced}); err != nil {
		s.logger.Error("failed to persist user message",
			zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.history.Append(ctx, userID, domain.ChatMessage{Role: domain.RoleAssistant, Content: answer}); err != nil {
		s.logger.Error("failed to persist assistant message",
			zap.String("user_id", userID), zap.Error(err))
	}

	count, err := s.history.Len(ctx, userID)
	if err != nil {
		count = 0
	}

	return &Reply{
		Message:      answer,
		CreatedAt:    sess.createdAt,
		MessageCount: count,
	}, nil
}

// augment searches stored recipes when the message asks about them and
// formats the hits as extra context. Failures degrade to no
// augmentation.
func (s *Service) augment(ctx context.Context, message string) string {
	if !s.search.IsAvailable() || !mentionsRecipes(message) {
		return ""
	}

	docs, err := s.search.Search(ctx, message, augmentLimit)
	if err != nil {
		s.logger.Warn("chat augmentation failed", zap.Error(err))
		return ""
	}
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nThông tin từ cơ sở dữ liệu:\n")
	for i, doc := range docs {
		desc := doc.Metadata.Description
		if desc == "" {
			desc = truncateRunes(doc.Text, 100)
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, doc.Metadata.DishName, desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func mentionsRecipes(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "công thức") ||
		strings.Contains(lower, "món") ||
		strings.Contains(lower, "recipe")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// HistoryOf returns a user's persisted conversation. A user without an
// active session reports Exists false with empty history.
func (s *Service) HistoryOf(ctx context.Context, userID string) (HistoryResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return HistoryResult{}, nil
	}

	messages, err := s.history.History(ctx, userID)
	if err != nil {
		return HistoryResult{}, fmt.Errorf("load history for %s: %w", userID, err)
	}

	return HistoryResult{
		Exists:       true,
		Messages:     messages,
		CreatedAt:    sess.createdAt,
		LastActivity: sess.lastActivity,
	}, nil
}

// ClearSession drops a user's session and persisted history. Reports
// whether either existed: a persisted conversation can outlive its
// evicted in-memory session.
func (s *Service) ClearSession(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	_, existed := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	removed, err := s.history.Clear(ctx, userID)
	if err != nil {
		return existed, fmt.Errorf("clear history for %s: %w", userID, err)
	}
	return existed || removed, nil
}

// Sessions lists active sessions ordered by user ID.
func (s *Service) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for userID, sess := range s.sessions {
		out = append(out, SessionInfo{
			UserID:       userID,
			CreatedAt:    sess.createdAt,
			LastActivity: sess.lastActivity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *Service) touchSession(userID string) session {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{createdAt: now}
		s.sessions[userID] = sess
		s.logger.Info("chat session created", zap.String("user_id", userID))
	}
	sess.lastActivity = now
	return *sess
}

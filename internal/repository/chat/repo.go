package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// store is the consumer interface for chat history (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Config holds key layout and retention for persisted conversations.
type Config struct {
	KeyPrefix    string
	HistoryLimit int
	// TTL bounds how long an idle conversation stays persisted.
	// Refreshed on every append; zero disables expiry.
	TTL time.Duration
}

// Repo persists per-user conversation history as a Redis list of
// JSON-encoded messages, oldest first. A nil store is the supported
// disabled state: chat still works per session, nothing survives a
// restart.
type Repo struct {
	cfg   Config
	store store
}

// New creates a chat history repository.
func New(cfg Config, s store) *Repo {
	return &Repo{cfg: cfg, store: s}
}

// Append adds a message to the user's history and refreshes retention.
func (r *Repo) Append(ctx context.Context, userID string, msg domain.ChatMessage) error {
	if r.store == nil {
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := r.historyKey(userID)
	if err := r.store.RPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}

	if r.cfg.TTL > 0 {
		if err := r.store.Expire(ctx, key, r.cfg.TTL); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

// History returns the most recent messages for a user, oldest first,
// bounded by the configured history limit. Entries that fail to decode
// are skipped rather than failing the whole read.
func (r *Repo) History(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	if r.store == nil {
		return nil, nil
	}

	key := r.historyKey(userID)

	start := int64(0)
	if r.cfg.HistoryLimit > 0 {
		start = -int64(r.cfg.HistoryLimit)
	}

	raw, err := r.store.LRange(ctx, key, start, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	messages := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Len returns the total number of persisted messages for a user.
func (r *Repo) Len(ctx context.Context, userID string) (int64, error) {
	if r.store == nil {
		return 0, nil
	}

	key := r.historyKey(userID)
	n, err := r.store.LLen(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	return n, nil
}

// Clear removes a user's entire persisted history and reports whether
// any was present. The caller's session may have been evicted while the
// persisted list lives on; deletion is acknowledged either way.
func (r *Repo) Clear(ctx context.Context, userID string) (bool, error) {
	if r.store == nil {
		return false, nil
	}

	key := r.historyKey(userID)
	existed, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	if !existed {
		return false, nil
	}

	if err := r.store.Del(ctx, key); err != nil {
		return true, fmt.Errorf("del %s: %w", key, err)
	}
	return true, nil
}

func (r *Repo) historyKey(userID string) string {
	return r.cfg.KeyPrefix + "chat:" + userID
}

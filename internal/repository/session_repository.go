package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

const sessionKeyPrefix = "conversation:"

// SessionRepository stores conversation state between turns.
type SessionRepository interface {
	Get(ctx context.Context, id string) (domain.ConversationState, error)
	Save(ctx context.Context, state domain.ConversationState) error
	Delete(ctx context.Context, id string) error
}

func checkSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrInvalidSessionID
	}
	return nil
}

type memoryEntry struct {
	state   domain.ConversationState
	savedAt time.Time
}

type memorySessionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemorySessionRepository keeps sessions in process memory. Entries older
// than ttl are treated as missing; ttl <= 0 keeps them forever.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return &memorySessionRepository{ttl: ttl, sessions: make(map[string]memoryEntry), now: time.Now}
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (domain.ConversationState, error) {
	if err := checkSessionID(id); err != nil {
		return domain.ConversationState{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return domain.ConversationState{}, domain.ErrSessionNotFound
	}
	if r.ttl > 0 && r.now().Sub(entry.savedAt) > r.ttl {
		delete(r.sessions, id)
		return domain.ConversationState{}, domain.ErrSessionNotFound
	}
	return entry.state.Clone(), nil
}

func (r *memorySessionRepository) Save(_ context.Context, state domain.ConversationState) error {
	if err := checkSessionID(state.SessionID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[state.SessionID] = memoryEntry{state: state.Clone(), savedAt: r.now()}
	return nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	if err := checkSessionID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

type redisSessionRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSessionRepository stores each session as JSON under
// conversation:<id>, expiring after ttl of inactivity.
func NewRedisSessionRepository(client redis.UniversalClient, ttl time.Duration) SessionRepository {
	return &redisSessionRepository{client: client, ttl: ttl}
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (domain.ConversationState, error) {
	var state domain.ConversationState
	if err := checkSessionID(id); err != nil {
		return state, err
	}
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return state, domain.ErrSessionNotFound
		}
		return state, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

func (r *redisSessionRepository) Save(ctx context.Context, state domain.ConversationState) error {
	if err := checkSessionID(state.SessionID); err != nil {
		return err
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+state.SessionID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := checkSessionID(id); err != nil {
		return err
	}
	return r.client.Del(ctx, sessionKeyPrefix+id).Err()
}

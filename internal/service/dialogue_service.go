package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/events"
	"github.com/spec-kit/voice-scheduler/internal/observability"
	"github.com/spec-kit/voice-scheduler/internal/repository"
)

// Replier produces free-form replies for utterances the state machine does
// not handle.
type Replier interface {
	Reply(ctx context.Context, history []domain.Turn, utterance string) (string, error)
}

// DialogueDependencies bundles collaborators for the dialogue service.
type DialogueDependencies struct {
	Engine     *ConversationEngine
	Sessions   repository.SessionRepository
	Replier    Replier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// DialogueService runs turns for many concurrent sessions. Turns of one
// session are serialized.
type DialogueService struct {
	engine     *ConversationEngine
	sessions   repository.SessionRepository
	replier    Replier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	locks      *keyedMutex
	now        func() time.Time
}

// NewDialogueService builds the service. Replier may be nil.
func NewDialogueService(deps DialogueDependencies) (*DialogueService, error) {
	if deps.Engine == nil {
		return nil, errors.New("conversation engine required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session repository required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DialogueService{
		engine:     deps.Engine,
		sessions:   deps.Sessions,
		replier:    deps.Replier,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}, nil
}

// Greeting returns the opening line for a new caller.
func (s *DialogueService) Greeting() string {
	return greetingReply(s.engine.StoreInfo().Name)
}

// StoreInfo returns the store the assistant answers for.
func (s *DialogueService) StoreInfo() domain.StoreInfo {
	return s.engine.StoreInfo()
}

// HandleUtterance runs one turn for the session and persists the result.
// When the booking could not be persisted the result still carries a reply
// alongside the returned error.
func (s *DialogueService) HandleUtterance(ctx context.Context, sessionID, text string) (TurnResult, error) {
	// The id outlives the call as a map key and in events.
	sessionID = strings.Clone(strings.TrimSpace(sessionID))
	if sessionID == "" {
		return TurnResult{}, domain.ErrInvalidSessionID
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if strings.TrimSpace(text) == "" {
		s.metrics.RecordTurn(string(OutcomeEmpty))
		return TurnResult{Reply: replyNotHeard, Outcome: OutcomeEmpty, Phase: s.currentPhase(ctx, sessionID)}, nil
	}

	state, err := s.sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		state = domain.NewConversationState(sessionID)
	case err != nil:
		return TurnResult{}, err
	}

	next, res, turnErr := s.engine.HandleTurn(ctx, state, text)
	if turnErr != nil && !errors.Is(turnErr, domain.ErrPersistence) {
		return res, turnErr
	}

	if res.Outcome == OutcomeUnhandled {
		if reply, ok := s.freeFormReply(ctx, state.History, text); ok {
			res.Reply = reply
			next.History[len(next.History)-1].Text = reply
		}
	}

	s.metrics.RecordTurn(string(res.Outcome))
	if res.Outcome == OutcomeBooked {
		s.metrics.RecordBooking()
	}

	if next.Ended {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return res, err
		}
		s.publishEnded(ctx, next)
		return res, turnErr
	}

	next.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, next); err != nil {
		return res, err
	}
	return res, turnErr
}

// Reset discards the session state.
func (s *DialogueService) Reset(ctx context.Context, sessionID string) error {
	sessionID = strings.Clone(strings.TrimSpace(sessionID))
	if sessionID == "" {
		return domain.ErrInvalidSessionID
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.sessions.Delete(ctx, sessionID)
}

func (s *DialogueService) currentPhase(ctx context.Context, sessionID string) domain.Phase {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.PhaseIdle
	}
	return state.Phase
}

func (s *DialogueService) freeFormReply(ctx context.Context, history []domain.Turn, text string) (string, bool) {
	if s.replier == nil {
		return "", false
	}
	reply, err := s.replier.Reply(ctx, history, text)
	if err != nil {
		s.logger.Warn("free-form reply failed", zap.Error(err))
		return "", false
	}
	reply = strings.TrimSpace(reply)
	return reply, reply != ""
}

func (s *DialogueService) publishEnded(ctx context.Context, state domain.ConversationState) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      events.EventSessionEnded,
		SessionID: state.SessionID,
		Payload:   events.SessionEndedPayload{Turns: len(state.History) / 2},
	})
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

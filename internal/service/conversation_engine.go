package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/events"
	"github.com/spec-kit/voice-scheduler/internal/repository"
	"github.com/spec-kit/voice-scheduler/internal/timeexpr"
)

// Outcome classifies what a turn did.
type Outcome string

const (
	OutcomeStaffPrompt       Outcome = "staff_prompt"
	OutcomeStoreInfo         Outcome = "store_info"
	OutcomeUnhandled         Outcome = "unhandled"
	OutcomeStaffSelected     Outcome = "staff_selected"
	OutcomeUnknownStaff      Outcome = "unknown_staff"
	OutcomeTimeNotUnderstood Outcome = "time_not_understood"
	OutcomeSlotUnavailable   Outcome = "slot_unavailable"
	OutcomeBooked            Outcome = "booked"
	OutcomeBookingFailed     Outcome = "booking_failed"
	OutcomeEnded             Outcome = "ended"
	OutcomeEmpty             Outcome = "empty"
)

var (
	exitPhrases    = []string{"exit", "goodbye"}
	meetingPhrases = []string{"meeting", "schedule", "book"}
	aboutPhrases   = []string{"about your brand", "tell me about"}
)

// TurnResult is the outcome of one dialogue turn.
type TurnResult struct {
	Reply   string
	Outcome Outcome
	Phase   domain.Phase
	Ended   bool
	// Meeting is set when the turn committed a booking.
	Meeting *domain.Meeting
	// Cause carries the recoverable error behind a re-prompt, if any.
	Cause error
}

// EngineDependencies bundles collaborators for the conversation engine.
type EngineDependencies struct {
	Staff      *domain.StaffDirectory
	Meetings   repository.MeetingRepository
	StoreInfo  domain.StoreInfo
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ConversationEngine runs the scheduling state machine. It holds no session
// state; each turn takes a ConversationState and returns the next one.
type ConversationEngine struct {
	staff      *domain.StaffDirectory
	meetings   repository.MeetingRepository
	info       domain.StoreInfo
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewConversationEngine builds the engine.
func NewConversationEngine(deps EngineDependencies) (*ConversationEngine, error) {
	if deps.Staff == nil {
		return nil, errors.New("staff directory required")
	}
	if deps.Meetings == nil {
		return nil, errors.New("meeting repository required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, m := range deps.Staff.Members() {
		if _, skipped := CanonicalSlots(m.AvailableTimes); len(skipped) > 0 {
			logger.Warn("ignoring malformed availability", zap.String("staff", m.Name), zap.Strings("entries", skipped))
		}
	}
	return &ConversationEngine{
		staff:      deps.Staff,
		meetings:   deps.Meetings,
		info:       deps.StoreInfo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}, nil
}

// StoreInfo returns the store the engine answers for.
func (e *ConversationEngine) StoreInfo() domain.StoreInfo {
	return e.info
}

// Staff returns the shared staff directory.
func (e *ConversationEngine) Staff() *domain.StaffDirectory {
	return e.staff
}

// HandleTurn processes one utterance. The returned state always carries the
// utterance and reply in its history. A non-nil error is returned only when
// the session already ended, the input state is invalid or a booking could
// not be persisted; in the last case the reply and state are still usable.
func (e *ConversationEngine) HandleTurn(ctx context.Context, state domain.ConversationState, utterance string) (domain.ConversationState, TurnResult, error) {
	if state.Ended {
		return state, TurnResult{Outcome: OutcomeEnded, Phase: state.Phase, Ended: true}, domain.ErrSessionEnded
	}

	next := state.Clone()
	if next.Phase == domain.PhaseConfirmed {
		next.Phase = domain.PhaseIdle
		next.SelectedStaff = ""
	}
	if err := next.Validate(); err != nil {
		return state, TurnResult{}, fmt.Errorf("invalid conversation state: %w", err)
	}

	text := strings.TrimSpace(utterance)
	lower := strings.ToLower(text)

	var (
		res TurnResult
		err error
	)
	if containsAny(lower, exitPhrases) {
		next.Ended = true
		res = TurnResult{Reply: replyFarewell, Outcome: OutcomeEnded}
	} else {
		switch next.Phase {
		case domain.PhaseIdle:
			res = e.handleIdle(&next, lower)
		case domain.PhaseAwaitingStaffSelection:
			res, err = e.handleStaffSelection(ctx, &next, text)
		case domain.PhaseAwaitingTime:
			res, err = e.handleTime(ctx, &next, text)
		default:
			return state, TurnResult{}, fmt.Errorf("unhandled phase %s", next.Phase)
		}
	}

	next.History = append(next.History,
		domain.Turn{Speaker: domain.SpeakerCaller, Text: text},
		domain.Turn{Speaker: domain.SpeakerAssistant, Text: res.Reply},
	)
	res.Phase = next.Phase
	res.Ended = next.Ended
	return next, res, err
}

func (e *ConversationEngine) handleIdle(state *domain.ConversationState, lower string) TurnResult {
	switch {
	case containsAny(lower, meetingPhrases):
		if e.staff.Len() == 0 {
			return TurnResult{Reply: replyNoStaff, Outcome: OutcomeUnknownStaff}
		}
		state.Phase = domain.PhaseAwaitingStaffSelection
		return TurnResult{Reply: staffPromptReply(e.staff.Names()), Outcome: OutcomeStaffPrompt}
	case containsAny(lower, aboutPhrases):
		return TurnResult{Reply: e.info.Description, Outcome: OutcomeStoreInfo}
	default:
		return TurnResult{Reply: replyClarify, Outcome: OutcomeUnhandled}
	}
}

func (e *ConversationEngine) handleStaffSelection(ctx context.Context, state *domain.ConversationState, text string) (TurnResult, error) {
	member, ok := e.staff.Match(text)
	if !ok {
		return TurnResult{
			Reply:   unknownStaffReply(e.staff.Names()),
			Outcome: OutcomeUnknownStaff,
			Cause:   &domain.UnknownStaffError{Utterance: text},
		}, nil
	}

	open := e.openSlots(ctx, member)
	if len(open) == 0 {
		return TurnResult{
			Reply:   staffFullyBookedReply(member.Name, e.staff.Names()),
			Outcome: OutcomeSlotUnavailable,
			Cause:   &domain.SlotUnavailableError{StaffName: member.Name, Booked: true},
		}, nil
	}

	state.Phase = domain.PhaseAwaitingTime
	state.SelectedStaff = member.Name

	// "Jackie at 9am" selects and books in one turn.
	if _, found := timeexpr.Extract(text); found {
		return e.handleTime(ctx, state, text)
	}
	return TurnResult{Reply: staffFoundReply(member.Name, open), Outcome: OutcomeStaffSelected}, nil
}

func (e *ConversationEngine) handleTime(ctx context.Context, state *domain.ConversationState, text string) (TurnResult, error) {
	member, ok := e.staff.Get(state.SelectedStaff)
	if !ok {
		// The directory changed under a stored session.
		state.Phase = domain.PhaseAwaitingStaffSelection
		state.SelectedStaff = ""
		return TurnResult{
			Reply:   unknownStaffReply(e.staff.Names()),
			Outcome: OutcomeUnknownStaff,
			Cause:   &domain.UnknownStaffError{Utterance: text},
		}, nil
	}

	candidate, err := timeexpr.ExtractAndNormalize(text)
	if err != nil {
		// A bare answer such as "9" carries no at/for/around cue.
		if whole, wholeErr := timeexpr.Normalize(text); wholeErr == nil {
			candidate, err = whole, nil
		}
	}
	if err != nil {
		return TurnResult{
			Reply:   timeNotUnderstoodReply(member.Name, e.openSlots(ctx, member)),
			Outcome: OutcomeTimeNotUnderstood,
			Cause:   err,
		}, nil
	}

	slot, err := MatchSlot(candidate, member.AvailableTimes)
	if err != nil {
		return TurnResult{
			Reply:   slotUnavailableReply(member.Name, e.openSlots(ctx, member)),
			Outcome: OutcomeSlotUnavailable,
			Cause:   &domain.SlotUnavailableError{StaffName: member.Name, Time: candidate},
		}, nil
	}

	booked, err := e.meetings.Exists(ctx, member.Name, slot)
	if err != nil {
		return e.bookingFailed(ctx, state, member.Name, slot, err)
	}
	if booked {
		return e.slotTaken(ctx, member, slot), nil
	}

	meeting := &domain.Meeting{StaffName: member.Name, Time: slot}
	if err := e.meetings.Create(ctx, meeting); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			return e.slotTaken(ctx, member, slot), nil
		}
		return e.bookingFailed(ctx, state, member.Name, slot, err)
	}

	state.Phase = domain.PhaseConfirmed
	e.logger.Info("meeting booked",
		zap.String("session_id", state.SessionID),
		zap.String("meeting_id", meeting.ID),
		zap.String("staff", meeting.StaffName),
		zap.String("time", meeting.Time))
	e.publish(ctx, events.Event{
		Type:      events.EventMeetingBooked,
		SessionID: state.SessionID,
		Timestamp: meeting.CreatedAt,
		Payload:   events.MeetingBookedPayload{MeetingID: meeting.ID, StaffName: meeting.StaffName, Time: meeting.Time},
	})

	// CONFIRMED does not outlive the turn.
	state.Phase = domain.PhaseIdle
	state.SelectedStaff = ""
	return TurnResult{Reply: bookedReply(member.Name, slot), Outcome: OutcomeBooked, Meeting: meeting}, nil
}

func (e *ConversationEngine) slotTaken(ctx context.Context, member domain.StaffMember, slot string) TurnResult {
	return TurnResult{
		Reply:   slotTakenReply(member.Name, slot, e.openSlots(ctx, member)),
		Outcome: OutcomeSlotUnavailable,
		Cause:   &domain.SlotUnavailableError{StaffName: member.Name, Time: slot, Booked: true},
	}
}

func (e *ConversationEngine) bookingFailed(ctx context.Context, state *domain.ConversationState, staffName, slot string, cause error) (TurnResult, error) {
	perr := &domain.PersistenceError{StaffName: staffName, Time: slot, Err: cause}
	e.logger.Error("meeting not persisted",
		zap.String("session_id", state.SessionID),
		zap.String("staff", staffName),
		zap.String("time", slot),
		zap.Error(cause))
	e.publish(ctx, events.Event{
		Type:      events.EventBookingFailed,
		SessionID: state.SessionID,
		Payload:   events.BookingFailedPayload{StaffName: staffName, Time: slot, Reason: cause.Error()},
	})
	return TurnResult{Reply: replyBookingFailed, Outcome: OutcomeBookingFailed, Cause: perr}, perr
}

// openSlots lists unbooked slots; on a store error it falls back to the full
// availability so the caller still gets a usable prompt.
func (e *ConversationEngine) openSlots(ctx context.Context, member domain.StaffMember) []string {
	open, err := OpenSlots(ctx, e.meetings, member)
	if err != nil {
		e.logger.Warn("listing open slots failed", zap.String("staff", member.Name), zap.Error(err))
		all, _ := CanonicalSlots(member.AvailableTimes)
		return all
	}
	return open
}

func (e *ConversationEngine) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Publish(ctx, event); err != nil {
		e.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

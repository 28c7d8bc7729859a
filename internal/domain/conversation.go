package domain

import (
	"fmt"
	"time"
)

// Phase is the step of the scheduling dialogue a session is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingStaffSelection
	PhaseAwaitingTime
	// PhaseConfirmed is transient: a turn that commits a meeting passes
	// through it and ends in PhaseIdle.
	PhaseConfirmed
)

var phaseNames = [...]string{
	PhaseIdle:                   "IDLE",
	PhaseAwaitingStaffSelection: "AWAITING_STAFF_SELECTION",
	PhaseAwaitingTime:           "AWAITING_TIME",
	PhaseConfirmed:              "CONFIRMED",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	return p >= PhaseIdle && p <= PhaseConfirmed
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// Speaker identifies who produced a dialogue turn.
type Speaker string

const (
	SpeakerCaller    Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of the dialogue history.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// ConversationState is the per-session dialogue state. It is owned by one
// session and is passed into and returned from every turn.
type ConversationState struct {
	SessionID     string    `json:"session_id"`
	Phase         Phase     `json:"phase"`
	SelectedStaff string    `json:"selected_staff,omitempty"`
	History       []Turn    `json:"history"`
	Ended         bool      `json:"ended"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewConversationState returns an idle state for a new session.
func NewConversationState(sessionID string) ConversationState {
	return ConversationState{SessionID: sessionID, Phase: PhaseIdle}
}

// Validate checks that a staff member is selected exactly in the phases that
// need one.
func (s ConversationState) Validate() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("invalid phase %d", int(s.Phase))
	}
	needsStaff := s.Phase == PhaseAwaitingTime || s.Phase == PhaseConfirmed
	hasStaff := s.SelectedStaff != ""
	if needsStaff != hasStaff {
		return fmt.Errorf("phase %s with selected staff %q", s.Phase, s.SelectedStaff)
	}
	return nil
}

// Clone returns a copy whose history can be appended to without touching s.
func (s ConversationState) Clone() ConversationState {
	s.History = append([]Turn(nil), s.History...)
	return s
}

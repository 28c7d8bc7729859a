package dto

import (
	"time"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"session_id"`
}

// QueryFrame is one server-sent event frame of the query stream.
type QueryFrame struct {
	Response string `json:"response"`
}

// TurnRequest is the body of POST /api/sessions/:id/turns.
type TurnRequest struct {
	Input string `json:"input"`
}

// TurnResponse reports the outcome of one turn.
type TurnResponse struct {
	Reply   string           `json:"reply"`
	Phase   domain.Phase     `json:"phase"`
	Outcome string           `json:"outcome"`
	Ended   bool             `json:"ended"`
	Meeting *MeetingResponse `json:"meeting,omitempty"`
}

// MeetingResponse is the public view of a booking.
type MeetingResponse struct {
	ID        string    `json:"id"`
	StaffName string    `json:"staff_name"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMeetingResponse converts a domain meeting.
func NewMeetingResponse(m *domain.Meeting) *MeetingResponse {
	if m == nil {
		return nil
	}
	return &MeetingResponse{ID: m.ID, StaffName: m.StaffName, Time: m.Time, CreatedAt: m.CreatedAt}
}

// StaffResponse lists a staff member with canonical, still open times.
type StaffResponse struct {
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	AvailableTimes []string `json:"available_times"`
	OpenTimes      []string `json:"open_times"`
}

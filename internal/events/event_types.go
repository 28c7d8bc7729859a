package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMeetingBooked EventType = "meeting_booked"
	EventSessionEnded  EventType = "session_ended"
	EventBookingFailed EventType = "booking_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MeetingBookedPayload payload.
type MeetingBookedPayload struct {
	MeetingID string `json:"meeting_id"`
	StaffName string `json:"staff_name"`
	Time      string `json:"time"`
}

// BookingFailedPayload payload.
type BookingFailedPayload struct {
	StaffName string `json:"staff_name"`
	Time      string `json:"time"`
	Reason    string `json:"reason"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	Turns int `json:"turns"`
}

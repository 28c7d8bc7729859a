package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStaff     = errors.New("unknown staff member")
	ErrSlotUnavailable  = errors.New("slot unavailable")
	ErrSlotTaken        = errors.New("slot already booked")
	ErrPersistence      = errors.New("meeting could not be persisted")
	ErrSessionEnded     = errors.New("session ended")
	ErrSessionNotFound  = errors.New("session not found")
	ErrMeetingNotFound  = errors.New("meeting not found")
	ErrInvalidSessionID = errors.New("invalid session id")
)

// UnknownStaffError is returned when an utterance names no known staff member.
type UnknownStaffError struct {
	Utterance string
}

func (e *UnknownStaffError) Error() string {
	return fmt.Sprintf("no staff member matches %q", e.Utterance)
}

func (e *UnknownStaffError) Unwrap() error { return ErrUnknownStaff }

// SlotUnavailableError is returned for a well-formed time that the staff member
// does not offer or that is already booked.
type SlotUnavailableError struct {
	StaffName string
	Time      string
	Booked    bool
}

func (e *SlotUnavailableError) Error() string {
	if e.Booked {
		return fmt.Sprintf("%s at %s is already booked", e.StaffName, e.Time)
	}
	return fmt.Sprintf("%s is not available at %s", e.StaffName, e.Time)
}

// Is matches ErrSlotUnavailable, and ErrSlotTaken for booked slots.
func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable || (e.Booked && target == ErrSlotTaken)
}

// PersistenceError wraps a storage failure while committing a meeting.
type PersistenceError struct {
	StaffName string
	Time      string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist meeting %s at %s: %v", e.StaffName, e.Time, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

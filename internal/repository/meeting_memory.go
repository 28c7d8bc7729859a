package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

type slotKey struct {
	staff string
	time  string
}

type memoryMeetingRepository struct {
	mu       sync.RWMutex
	meetings map[string]domain.Meeting
	slots    map[slotKey]string
}

// NewMemoryMeetingRepository keeps meetings in process memory.
func NewMemoryMeetingRepository() MeetingRepository {
	return &memoryMeetingRepository{
		meetings: make(map[string]domain.Meeting),
		slots:    make(map[slotKey]string),
	}
}

func (r *memoryMeetingRepository) Create(_ context.Context, meeting *domain.Meeting) error {
	if err := validateMeeting(meeting); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{staff: meeting.StaffName, time: meeting.Time}
	if _, taken := r.slots[key]; taken {
		return slotTaken(meeting)
	}
	for {
		stampMeeting(meeting)
		if _, clash := r.meetings[meeting.ID]; !clash {
			break
		}
	}
	r.meetings[meeting.ID] = *meeting
	r.slots[key] = meeting.ID
	return nil
}

func (r *memoryMeetingRepository) Exists(_ context.Context, staffName, slotTime string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.slots[slotKey{staff: staffName, time: slotTime}]
	return ok, nil
}

func (r *memoryMeetingRepository) Get(_ context.Context, id string) (*domain.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meetings[id]
	if !ok {
		return nil, domain.ErrMeetingNotFound
	}
	return &m, nil
}

func (r *memoryMeetingRepository) List(_ context.Context, filter MeetingFilter) ([]domain.Meeting, error) {
	r.mu.RLock()
	all := make([]domain.Meeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		all = append(all, m)
	}
	r.mu.RUnlock()
	return filter.apply(all), nil
}

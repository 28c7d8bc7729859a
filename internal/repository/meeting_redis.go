package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

const (
	meetingKeyPrefix     = "meeting:"
	meetingSlotKeyPrefix = "meeting_slot:"
	meetingIndexKey      = "meetings"
)

// claimScript returns 1 on success, 0 when the slot is taken and -1 when the
// id is already used.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return -1
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SADD', KEYS[3], ARGV[1])
return 1
`)

type redisMeetingRepository struct {
	client redis.UniversalClient
}

// NewRedisMeetingRepository stores meetings as JSON strings with a slot key
// per (staff, time) and a set indexing all ids.
func NewRedisMeetingRepository(client redis.UniversalClient) MeetingRepository {
	return &redisMeetingRepository{client: client}
}

func meetingSlotKey(staffName, slotTime string) string {
	return meetingSlotKeyPrefix + staffName + ":" + slotTime
}

func (r *redisMeetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	if err := validateMeeting(meeting); err != nil {
		return err
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		stampMeeting(meeting)
		payload, err := json.Marshal(meeting)
		if err != nil {
			return err
		}

		keys := []string{meetingSlotKey(meeting.StaffName, meeting.Time), meetingKeyPrefix + meeting.ID, meetingIndexKey}
		res, err := claimScript.Run(ctx, r.client, keys, meeting.ID, payload).Int()
		if err != nil {
			return fmt.Errorf("store meeting: %w", err)
		}
		switch res {
		case 1:
			return nil
		case 0:
			return slotTaken(meeting)
		}
	}
	return fmt.Errorf("store meeting: no free id after %d attempts", maxIDAttempts)
}

func (r *redisMeetingRepository) Exists(ctx context.Context, staffName, slotTime string) (bool, error) {
	n, err := r.client.Exists(ctx, meetingSlotKey(staffName, slotTime)).Result()
	if err != nil {
		return false, fmt.Errorf("check meeting slot: %w", err)
	}
	return n > 0, nil
}

func (r *redisMeetingRepository) Get(ctx context.Context, id string) (*domain.Meeting, error) {
	raw, err := r.client.Get(ctx, meetingKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrMeetingNotFound
		}
		return nil, err
	}
	var m domain.Meeting
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode meeting %s: %w", id, err)
	}
	return &m, nil
}

func (r *redisMeetingRepository) List(ctx context.Context, filter MeetingFilter) ([]domain.Meeting, error) {
	ids, err := r.client.SMembers(ctx, meetingIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Meeting{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = meetingKeyPrefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	all := make([]domain.Meeting, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var m domain.Meeting
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("decode meeting %s: %w", ids[i], err)
		}
		all = append(all, m)
	}
	return filter.apply(all), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

const (
	defaultListLimit = 50
	maxIDAttempts    = 3
	pgUniqueKey      = "23505"
	meetingsPKey     = "meetings_pkey"
)

// MeetingRepository persists confirmed meetings. Create must let at most one
// caller win a given (staff, time) pair.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *domain.Meeting) error
	Exists(ctx context.Context, staffName, slotTime string) (bool, error)
	Get(ctx context.Context, id string) (*domain.Meeting, error)
	List(ctx context.Context, filter MeetingFilter) ([]domain.Meeting, error)
}

// MeetingFilter narrows meeting listings.
type MeetingFilter struct {
	StaffName *string
	Limit     int
	Offset    int
}

func (f MeetingFilter) bounds() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (f MeetingFilter) matches(m domain.Meeting) bool {
	return f.StaffName == nil || strings.EqualFold(*f.StaffName, m.StaffName)
}

// apply filters, orders by creation and pages an unordered meeting set.
func (f MeetingFilter) apply(all []domain.Meeting) []domain.Meeting {
	out := make([]domain.Meeting, 0, len(all))
	for _, m := range all {
		if f.matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	limit, offset := f.bounds()
	if offset >= len(out) {
		return []domain.Meeting{}
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func slotTaken(m *domain.Meeting) error {
	return &domain.SlotUnavailableError{StaffName: m.StaffName, Time: m.Time, Booked: true}
}

func stampMeeting(m *domain.Meeting) {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
}

func validateMeeting(m *domain.Meeting) error {
	if m == nil {
		return errors.New("nil meeting")
	}
	if strings.TrimSpace(m.StaffName) == "" || strings.TrimSpace(m.Time) == "" {
		return errors.New("meeting requires staff name and time")
	}
	return nil
}

type meetingRepository struct {
	db DBTX
}

// NewMeetingRepository returns the postgres backed store. The meetings table
// carries UNIQUE (staff_name, slot_time).
func NewMeetingRepository(db DBTX) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	if err := validateMeeting(meeting); err != nil {
		return err
	}

	const query = `
        INSERT INTO meetings (id, staff_name, slot_time, created_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (staff_name, slot_time) DO NOTHING`

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		stampMeeting(meeting)
		cmd, err := r.db.Exec(ctx, query, meeting.ID, meeting.StaffName, meeting.Time, meeting.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueKey && pgErr.ConstraintName == meetingsPKey {
				continue
			}
			return fmt.Errorf("insert meeting: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return slotTaken(meeting)
		}
		return nil
	}
	return fmt.Errorf("insert meeting: no free id after %d attempts", maxIDAttempts)
}

func (r *meetingRepository) Exists(ctx context.Context, staffName, slotTime string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM meetings WHERE staff_name=$1 AND slot_time=$2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, staffName, slotTime).Scan(&exists); err != nil {
		return false, fmt.Errorf("check meeting slot: %w", err)
	}
	return exists, nil
}

func (r *meetingRepository) Get(ctx context.Context, id string) (*domain.Meeting, error) {
	const query = `
        SELECT id, staff_name, slot_time, created_at
        FROM meetings WHERE id=$1`

	var m domain.Meeting
	if err := r.db.QueryRow(ctx, query, id).Scan(&m.ID, &m.StaffName, &m.Time, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMeetingNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *meetingRepository) List(ctx context.Context, filter MeetingFilter) ([]domain.Meeting, error) {
	query := `
        SELECT id, staff_name, slot_time, created_at
        FROM meetings`
	args := []any{}

	if filter.StaffName != nil {
		args = append(args, *filter.StaffName)
		query += fmt.Sprintf(" WHERE lower(staff_name)=lower($%d)", len(args))
	}

	limit, offset := filter.bounds()
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Meeting{}
	for rows.Next() {
		var m domain.Meeting
		if err := rows.Scan(&m.ID, &m.StaffName, &m.Time, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

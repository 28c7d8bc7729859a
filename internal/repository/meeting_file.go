package repository

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

const slotsDirName = "slots"

// fileRecord is the on-disk layout of meetings/<id>.json.
type fileRecord struct {
	ID        string    `json:"id"`
	Staff     string    `json:"staff"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

func (r fileRecord) meeting() domain.Meeting {
	return domain.Meeting{ID: r.ID, StaffName: r.Staff, Time: r.Time, CreatedAt: r.CreatedAt}
}

type fileMeetingRepository struct {
	dir    string
	slots  string
	logger *zap.Logger
}

// NewFileMeetingRepository stores one JSON document per meeting under dir.
// A slot is claimed by exclusively creating slots/<hex(staff|time)>, so two
// processes sharing the directory still get one winner. Records already in
// dir are indexed into slot markers on start.
func NewFileMeetingRepository(dir string, logger *zap.Logger) (MeetingRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &fileMeetingRepository{dir: dir, slots: filepath.Join(dir, slotsDirName), logger: logger}
	if err := os.MkdirAll(r.slots, 0o755); err != nil {
		return nil, fmt.Errorf("create meetings dir: %w", err)
	}
	if err := r.reindex(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileMeetingRepository) slotPath(staffName, slotTime string) string {
	return filepath.Join(r.slots, hex.EncodeToString([]byte(staffName+"|"+slotTime)))
}

func (r *fileMeetingRepository) recordPath(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *fileMeetingRepository) claim(staffName, slotTime string) (bool, error) {
	f, err := os.OpenFile(r.slotPath(staffName, slotTime), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("claim slot: %w", err)
	}
	return true, f.Close()
}

func (r *fileMeetingRepository) Create(_ context.Context, meeting *domain.Meeting) error {
	if err := validateMeeting(meeting); err != nil {
		return err
	}

	won, err := r.claim(meeting.StaffName, meeting.Time)
	if err != nil {
		return err
	}
	if !won {
		return slotTaken(meeting)
	}

	if err := r.writeRecord(meeting); err != nil {
		if rmErr := os.Remove(r.slotPath(meeting.StaffName, meeting.Time)); rmErr != nil {
			r.logger.Error("release slot marker", zap.String("staff", meeting.StaffName), zap.String("time", meeting.Time), zap.Error(rmErr))
		}
		return err
	}
	return nil
}

// writeRecord writes a temp file and hard-links it to <id>.json; link fails
// on an existing name so a colliding id is regenerated instead of overwritten.
func (r *fileMeetingRepository) writeRecord(meeting *domain.Meeting) error {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		stampMeeting(meeting)
		payload, err := json.MarshalIndent(fileRecord{
			ID:        meeting.ID,
			Staff:     meeting.StaffName,
			Time:      meeting.Time,
			CreatedAt: meeting.CreatedAt,
		}, "", "  ")
		if err != nil {
			return err
		}

		tmp, err := os.CreateTemp(r.dir, ".meeting-*.tmp")
		if err != nil {
			return fmt.Errorf("write meeting: %w", err)
		}
		tmpName := tmp.Name()
		_, werr := tmp.Write(payload)
		if cerr := tmp.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = os.Remove(tmpName)
			return fmt.Errorf("write meeting: %w", werr)
		}

		lerr := os.Link(tmpName, r.recordPath(meeting.ID))
		_ = os.Remove(tmpName)
		if lerr == nil {
			return nil
		}
		if !errors.Is(lerr, fs.ErrExist) {
			return fmt.Errorf("write meeting: %w", lerr)
		}
	}
	return fmt.Errorf("write meeting: no free id after %d attempts", maxIDAttempts)
}

func (r *fileMeetingRepository) Exists(_ context.Context, staffName, slotTime string) (bool, error) {
	_, err := os.Stat(r.slotPath(staffName, slotTime))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("check meeting slot: %w", err)
	}
}

func (r *fileMeetingRepository) Get(_ context.Context, id string) (*domain.Meeting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrMeetingNotFound
	}
	rec, err := r.readRecord(r.recordPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrMeetingNotFound
		}
		return nil, err
	}
	m := rec.meeting()
	return &m, nil
}

func (r *fileMeetingRepository) List(_ context.Context, filter MeetingFilter) ([]domain.Meeting, error) {
	records, err := r.records()
	if err != nil {
		return nil, err
	}
	all := make([]domain.Meeting, 0, len(records))
	for _, rec := range records {
		all = append(all, rec.meeting())
	}
	return filter.apply(all), nil
}

func (r *fileMeetingRepository) readRecord(path string) (fileRecord, error) {
	var rec fileRecord
	raw, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

func (r *fileMeetingRepository) records() ([]fileRecord, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read meetings dir: %w", err)
	}
	out := make([]fileRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		rec, err := r.readRecord(filepath.Join(r.dir, name))
		if err != nil {
			r.logger.Warn("skipping unreadable meeting record", zap.String("file", name), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// reindex makes the slot markers match the records on disk: records get a
// marker, and markers left by a Create that never wrote its record are removed.
func (r *fileMeetingRepository) reindex() error {
	records, err := r.records()
	if err != nil {
		return err
	}
	live := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.Staff == "" || rec.Time == "" {
			continue
		}
		live[filepath.Base(r.slotPath(rec.Staff, rec.Time))] = struct{}{}
		if _, err := r.claim(rec.Staff, rec.Time); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		r.logger.Info("indexed meeting records", zap.Int("count", len(records)))
	}
	return r.pruneSlots(live)
}

func (r *fileMeetingRepository) pruneSlots(live map[string]struct{}) error {
	entries, err := os.ReadDir(r.slots)
	if err != nil {
		return fmt.Errorf("read slots dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(r.slots, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove orphaned slot marker: %w", err)
		}
		r.logger.Warn("removed orphaned slot marker", zap.String("marker", entry.Name()))
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

// StaffRepository reads the configured staff list.
type StaffRepository interface {
	List(ctx context.Context) ([]domain.StaffMember, error)
}

type staffRepository struct {
	db DBTX
}

// NewStaffRepository instantiates the postgres staff source.
func NewStaffRepository(db DBTX) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) List(ctx context.Context) ([]domain.StaffMember, error) {
	const query = `
        SELECT name, title, available_times
        FROM staff_members
        WHERE active_flag
        ORDER BY position, name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(&staff.Name, &staff.Title, &staff.AvailableTimes); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

// staffRecord accepts both the current available_times key and the older
// availability key.
type staffRecord struct {
	Name           string   `json:"name" yaml:"name"`
	Title          string   `json:"title" yaml:"title"`
	AvailableTimes []string `json:"available_times" yaml:"available_times"`
	Availability   []string `json:"availability" yaml:"availability"`
}

// LoadStaffFile reads a JSON or YAML staff list. A missing file yields an
// empty list.
func LoadStaffFile(path string) ([]domain.StaffMember, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.StaffMember{}, nil
		}
		return nil, fmt.Errorf("read staff file: %w", err)
	}

	var records []staffRecord
	if err := decodeFile(path, raw, &records); err != nil {
		return nil, fmt.Errorf("decode staff file: %w", err)
	}

	members := make([]domain.StaffMember, 0, len(records))
	for _, rec := range records {
		times := rec.AvailableTimes
		if len(times) == 0 {
			times = rec.Availability
		}
		members = append(members, domain.StaffMember{Name: rec.Name, Title: rec.Title, AvailableTimes: times})
	}
	return members, nil
}

// LoadStoreInfo reads the store name and description. A missing file yields
// placeholder values.
func LoadStoreInfo(path string) (domain.StoreInfo, error) {
	info := domain.StoreInfo{Name: "Unknown Store", Description: "No description available."}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return info, nil
		}
		return info, fmt.Errorf("read store info: %w", err)
	}
	if err := decodeFile(path, raw, &info); err != nil {
		return info, fmt.Errorf("decode store info: %w", err)
	}
	return info, nil
}

func decodeFile(path string, raw []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, out)
	default:
		return json.Unmarshal(raw, out)
	}
}

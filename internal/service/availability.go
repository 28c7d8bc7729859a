package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/repository"
	"github.com/spec-kit/voice-scheduler/internal/timeexpr"
)

// MatchSlot compares a candidate time with a staff member's availability on
// canonical forms and returns the canonical slot. Availability entries that
// do not normalize are skipped.
func MatchSlot(candidate string, available []string) (string, error) {
	want, err := timeexpr.Normalize(candidate)
	if err != nil {
		return "", err
	}
	for _, slot := range available {
		got, err := timeexpr.Normalize(slot)
		if err != nil {
			continue
		}
		if got == want {
			return got, nil
		}
	}
	return "", domain.ErrSlotUnavailable
}

// CanonicalSlots normalizes availability entries in order, dropping
// duplicates. Entries that do not normalize are returned in skipped.
func CanonicalSlots(available []string) (slots, skipped []string) {
	seen := make(map[string]struct{}, len(available))
	for _, raw := range available {
		slot, err := timeexpr.Normalize(raw)
		if err != nil {
			skipped = append(skipped, raw)
			continue
		}
		if _, dup := seen[slot]; dup {
			continue
		}
		seen[slot] = struct{}{}
		slots = append(slots, slot)
	}
	return slots, skipped
}

// OpenSlots returns the staff member's canonical slots that have no meeting yet.
func OpenSlots(ctx context.Context, store repository.MeetingRepository, staff domain.StaffMember) ([]string, error) {
	slots, _ := CanonicalSlots(staff.AvailableTimes)
	open := make([]string, 0, len(slots))
	for _, slot := range slots {
		booked, err := store.Exists(ctx, staff.Name, slot)
		if err != nil {
			return nil, fmt.Errorf("open slots for %s: %w", staff.Name, err)
		}
		if !booked {
			open = append(open, slot)
		}
	}
	return open, nil
}

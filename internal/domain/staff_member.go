package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// StaffMember is a bookable person and the clock times they offer.
type StaffMember struct {
	Name           string   `json:"name" yaml:"name"`
	Title          string   `json:"title" yaml:"title"`
	AvailableTimes []string `json:"available_times" yaml:"available_times"`
}

// StaffDirectory is the read-only staff set shared by every session.
type StaffDirectory struct {
	members []StaffMember
	byName  map[string]int
}

// NewStaffDirectory validates members and builds the lookup index. Names must
// be non-empty and unique ignoring case.
func NewStaffDirectory(members []StaffMember) (*StaffDirectory, error) {
	dir := &StaffDirectory{
		members: make([]StaffMember, 0, len(members)),
		byName:  make(map[string]int, len(members)),
	}
	for _, m := range members {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return nil, errors.New("staff member without name")
		}
		key := strings.ToLower(m.Name)
		if _, exists := dir.byName[key]; exists {
			return nil, fmt.Errorf("duplicate staff member %q", m.Name)
		}
		m.AvailableTimes = append([]string(nil), m.AvailableTimes...)
		dir.byName[key] = len(dir.members)
		dir.members = append(dir.members, m)
	}
	return dir, nil
}

// Len returns the number of staff members.
func (d *StaffDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.members)
}

// Members returns a copy of the staff list in configuration order.
func (d *StaffDirectory) Members() []StaffMember {
	if d == nil {
		return nil
	}
	out := make([]StaffMember, len(d.members))
	for i, m := range d.members {
		m.AvailableTimes = append([]string(nil), m.AvailableTimes...)
		out[i] = m
	}
	return out
}

// Names returns staff names in configuration order.
func (d *StaffDirectory) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.members))
	for i, m := range d.members {
		names[i] = m.Name
	}
	return names
}

// Get looks a member up by name, ignoring case.
func (d *StaffDirectory) Get(name string) (StaffMember, bool) {
	if d == nil {
		return StaffMember{}, false
	}
	idx, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return StaffMember{}, false
	}
	m := d.members[idx]
	m.AvailableTimes = append([]string(nil), m.AvailableTimes...)
	return m, true
}

// Match finds the staff member named by an utterance: either the whole
// utterance is the name or the utterance contains it. Comparison ignores case.
// When several names are contained the longest one wins.
func (d *StaffDirectory) Match(utterance string) (StaffMember, bool) {
	if d == nil {
		return StaffMember{}, false
	}
	text := strings.ToLower(strings.Join(strings.Fields(utterance), " "))
	if text == "" {
		return StaffMember{}, false
	}
	if m, ok := d.Get(text); ok {
		return m, true
	}

	candidates := make([]int, 0, 1)
	for i, m := range d.members {
		if strings.Contains(text, strings.ToLower(m.Name)) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return StaffMember{}, false
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return len(d.members[candidates[a]].Name) > len(d.members[candidates[b]].Name)
	})
	return d.Get(d.members[candidates[0]].Name)
}

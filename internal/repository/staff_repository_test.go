package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadStaffFileJSON(t *testing.T) {
	path := writeFile(t, "staff.json", `[
		{"name": "Jackie", "title": "Manager", "availability": ["9:00 AM", "2:00 PM"]},
		{"name": "Sam", "available_times": ["10am"]}
	]`)

	members, err := LoadStaffFile(path)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Jackie", members[0].Name)
	assert.Equal(t, []string{"9:00 AM", "2:00 PM"}, members[0].AvailableTimes)
	assert.Equal(t, []string{"10am"}, members[1].AvailableTimes)
}

func TestLoadStaffFileYAML(t *testing.T) {
	path := writeFile(t, "staff.yaml", `
- name: Jackie
  title: Manager
  available_times: ["9:00 AM"]
- name: Sam
  availability:
    - "14:00"
`)

	members, err := LoadStaffFile(path)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Manager", members[0].Title)
	assert.Equal(t, []string{"14:00"}, members[1].AvailableTimes)
}

func TestLoadStaffFileMissingAndBroken(t *testing.T) {
	members, err := LoadStaffFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = LoadStaffFile(writeFile(t, "staff.json", `{"name":`))
	assert.Error(t, err)
}

func TestLoadStoreInfo(t *testing.T) {
	info, err := LoadStoreInfo(filepath.Join(t.TempDir(), "description.json"))
	require.NoError(t, err)
	assert.Equal(t, "Unknown Store", info.Name)

	info, err = LoadStoreInfo(writeFile(t, "description.json", `{"store_name": "Acme", "store_description": "We sell anvils."}`))
	require.NoError(t, err)
	assert.Equal(t, "Acme", info.Name)
	assert.Equal(t, "We sell anvils.", info.Description)
}

func TestPostgresStaffRepositoryList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM staff_members").
		WillReturnRows(pgxmock.NewRows([]string{"name", "title", "available_times"}).
			AddRow("Jackie", "Manager", []string{"9:00 AM", "2:00 PM"}).
			AddRow("Sam", "Stylist", []string{"10:00 AM"}))

	members, err := NewStaffRepository(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, []string{"9:00 AM", "2:00 PM"}, members[0].AvailableTimes)
	require.NoError(t, mock.ExpectationsWereMet())
}

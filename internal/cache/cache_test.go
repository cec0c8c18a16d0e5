package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/crewsync/internal/roster"
)

func testSnapshot() roster.Snapshot {
	return roster.NewSnapshot([]roster.Day{
		{Key: "Tue 07 Oct", Date: "2025-10-07", DutyType: "Day Off"},
		{Key: "Wed 08 Oct", Date: "2025-10-08", Flights: []roster.Flight{
			{Duty: "DY600", Origin: "OSL", Destination: "BGO", DepTime: "04:45", ArrivalTime: "07:45",
				CheckIn: "04:00", CheckOut: "08:15", Aircraft: "LN-NGA", CockpitCrew: "CPT A", CabinCrew: "SCC B"},
		}},
	}, time.Date(2025, 10, 8, 5, 0, 0, 0, time.UTC))
}

func TestLoad_MissingFileIsAbsent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope", "schedule.json"))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "schedule.json")
	s := New(path)
	want := testSnapshot()

	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestSave_EmptySnapshotIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	s := New(path)
	good := testSnapshot()
	require.NoError(t, s.Save(good))

	require.NoError(t, s.Save(roster.NewSnapshot(nil, time.Now())))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, good, *got)
}

func TestSave_EmptySnapshotCreatesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, New(path).Save(roster.Snapshot{}))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Stat error = %v, want not-exist", err)
}

func TestLoad_CorruptFileIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte("{not-json"), 0o644))

	snap, err := New(path).Load()
	assert.Nil(t, snap)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "decode", storageErr.Op)
}

func TestLoad_DirectoryIsStorageError(t *testing.T) {
	path := t.TempDir()

	_, err := New(path).Load()
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "read", storageErr.Op)
}

func TestSave_UnwritableParentIsStorageError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := New(filepath.Join(blocker, "schedule.json")).Save(testSnapshot())
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "mkdir", storageErr.Op)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, New(filepath.Join(dir, "schedule.json")).Save(testSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "schedule.json", entries[0].Name())
}

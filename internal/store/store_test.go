package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Umpriel/atlas/internal/atlaserr"
)

type widget struct {
	Name string
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	old, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })

	db, err := Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPushPollCompleteRoundtrip(t *testing.T) {
	db := openTestDB(t)
	s := NewStore[widget](db, "widget")
	ctx := context.Background()

	id, err := s.Push(ctx, widget{Name: "first"})
	require.NoError(t, err)

	row, err := s.Poll(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, id, row.ID)
	require.Equal(t, "first", row.Job.Name)

	// Nothing else pending.
	empty, err := s.Poll(ctx)
	require.NoError(t, err)
	require.Nil(t, empty)

	require.NoError(t, s.Complete(ctx, id))

	all, err := s.FetchAllByType(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, StatusDone, all[0].Status)
	require.NotNil(t, all[0].DoneAt)
}

func TestFailRecordsLastError(t *testing.T) {
	db := openTestDB(t)
	s := NewStore[widget](db, "widget")
	ctx := context.Background()

	id, err := s.Push(ctx, widget{Name: "doomed"})
	require.NoError(t, err)

	_, err = s.Poll(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Fail(ctx, id, errors.New("disk full")))

	all, err := s.FetchAllByType(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, StatusFailed, all[0].Status)
	require.Equal(t, "disk full", all[0].LastError)
}

func TestSetTerminalOnUnknownJobIsNotFound(t *testing.T) {
	db := openTestDB(t)
	s := NewStore[widget](db, "widget")

	err := s.Complete(context.Background(), "does-not-exist")
	require.Error(t, err)
	require.True(t, atlaserr.Is(err, atlaserr.JobNotFound))
}

func TestReclaimStaleResetsRunningRows(t *testing.T) {
	db := openTestDB(t)
	s := NewStore[widget](db, "widget")
	ctx := context.Background()

	_, err := s.Push(ctx, widget{Name: "a"})
	require.NoError(t, err)
	_, err = s.Poll(ctx) // claims it, now running
	require.NoError(t, err)

	n, err := s.ReclaimStale(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	row, err := s.Poll(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
}

func TestOpenCreatesStateDirectory(t *testing.T) {
	db := openTestDB(t)
	_, err := os.Stat(filepath.Dir(DBPath))
	require.NoError(t, err)
	_ = db
}

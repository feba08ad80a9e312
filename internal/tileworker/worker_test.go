package tileworker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Umpriel/atlas/internal/conn"
	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

func TestRunStopsWhenQueueIsEmpty(t *testing.T) {
	pollInterval = 5 * time.Millisecond
	defer func() { pollInterval = 2 * time.Second }()

	dir := t.TempDir()
	old, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })

	db, err := store.Open(context.Background())
	require.NoError(t, err)
	defer db.Close()

	jobs := store.NewStore[types.TileJob](db, "TileJob")
	state := NewState(conn.Local())

	err = Run(context.Background(), "tiler-local-127.0.0.1", jobs, state)
	require.NoError(t, err)
}

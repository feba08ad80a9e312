package runconfig

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

func setup(t *testing.T) *store.Store[types.TileJob] {
	t.Helper()
	dir := t.TempDir()
	old, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })

	db, err := store.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return store.NewStore[types.TileJob](db, "TileJob")
}

func TestCurrentReturnsFalseWhenNothingCompleted(t *testing.T) {
	s := setup(t)
	_, ok, err := Current(context.Background(), s)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCurrentReturnsMostRecentlyCompletedConfig(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	cfg := types.AtlasConfig{RunID: "run-1"}
	id, err := s.Push(ctx, types.TileJob{Config: cfg, Tile: types.Tile{Centre: types.LonLat{Lon: 1, Lat: 2}}})
	require.NoError(t, err)
	_, err = s.Poll(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, id))

	got, ok, err := Current(ctx, s)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "run-1", got.RunID)
}

func TestCompletedTilesFiltersByCurrentRun(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	cfgB := types.AtlasConfig{RunID: "run-b"}
	idB, err := s.Push(ctx, types.TileJob{Config: cfgB, Tile: types.Tile{Centre: types.LonLat{Lon: 2, Lat: 2}}})
	require.NoError(t, err)
	_, err = s.Poll(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, idB))

	cfgA := types.AtlasConfig{RunID: "run-a"}
	idA, err := s.Push(ctx, types.TileJob{Config: cfgA, Tile: types.Tile{Centre: types.LonLat{Lon: 1, Lat: 1}}})
	require.NoError(t, err)
	_, err = s.Poll(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, idA))

	tiles, err := CompletedTiles(ctx, s)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
}

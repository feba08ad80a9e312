package enqueue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Umpriel/atlas/internal/types"
)

func writeMaster(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMasterTilesParsesRows(t *testing.T) {
	path := writeMaster(t, "1.0,2.0,500\n3.5,-4.25,1000\n")
	tiles, err := loadMasterTiles(path)
	require.NoError(t, err)
	require.Len(t, tiles, 2)
	require.Equal(t, types.LonLat{Lon: 1.0, Lat: 2.0}, tiles[0].Centre)
	require.EqualValues(t, 500, tiles[0].Width)
}

func TestLoadMasterTilesSkipsBlankLines(t *testing.T) {
	path := writeMaster(t, "1.0,2.0,500\n\n3.0,4.0,500\n")
	tiles, err := loadMasterTiles(path)
	require.NoError(t, err)
	require.Len(t, tiles, 2)
}

func TestLoadMasterTilesRejectsMalformedRow(t *testing.T) {
	path := writeMaster(t, "1.0,2.0\n")
	_, err := loadMasterTiles(path)
	require.Error(t, err)
}

func TestIndexNearestNeighborsOrdersByDistance(t *testing.T) {
	tiles := []types.Tile{
		{Centre: types.LonLat{Lon: 10, Lat: 10}, Width: 500},
		{Centre: types.LonLat{Lon: 0, Lat: 0}, Width: 500},
		{Centre: types.LonLat{Lon: 1, Lat: 1}, Width: 500},
	}
	index, err := NewIndex(tiles)
	require.NoError(t, err)

	ordered := index.NearestNeighbors(types.LonLat{Lon: 0, Lat: 0})
	require.Len(t, ordered, 3)
	require.Equal(t, types.LonLat{Lon: 0, Lat: 0}, ordered[0].Centre)
	require.Equal(t, types.LonLat{Lon: 1, Lat: 1}, ordered[1].Centre)
	require.Equal(t, types.LonLat{Lon: 10, Lat: 10}, ordered[2].Centre)
}

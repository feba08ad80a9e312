package enqueue

import (
	"github.com/dhconnelly/rtreego"

	"github.com/Umpriel/atlas/internal/types"
)

// tileSpatial adapts a Tile into rtreego's Spatial interface, indexed as
// a degenerate (zero-area) rectangle at its centre point — Atlas only
// ever queries nearest-neighbour-by-centre, never a bounding-box
// intersection, so a point index is sufficient.
type tileSpatial struct {
	tile   types.Tile
	bounds *rtreego.Rect
}

func (t tileSpatial) Bounds() *rtreego.Rect {
	return t.bounds
}

const epsilon = 1e-9

func newTileSpatial(tile types.Tile) (tileSpatial, error) {
	point := rtreego.Point{tile.Centre.Lon, tile.Centre.Lat}
	rect, err := rtreego.NewRect(point, []float64{epsilon, epsilon})
	if err != nil {
		return tileSpatial{}, err
	}
	return tileSpatial{tile: tile, bounds: rect}, nil
}

// Index is an in-memory R-tree over the master tile catalog, supporting
// nearest-neighbour iteration from an arbitrary seed coordinate.
type Index struct {
	tree *rtreego.Rtree
	n    int
}

// NewIndex builds an Index over tiles.
func NewIndex(tiles []types.Tile) (*Index, error) {
	tree := rtreego.NewTree(2, 25, 50)
	for _, tile := range tiles {
		sp, err := newTileSpatial(tile)
		if err != nil {
			return nil, err
		}
		tree.Insert(sp)
	}
	return &Index{tree: tree, n: len(tiles)}, nil
}

// NearestNeighbors returns every tile in the index, ordered by distance
// from seed (closest first).
func (idx *Index) NearestNeighbors(seed types.LonLat) []types.Tile {
	if idx.n == 0 {
		return nil
	}
	point := rtreego.Point{seed.Lon, seed.Lat}
	results := idx.tree.NearestNeighbors(idx.n, point)

	tiles := make([]types.Tile, 0, len(results))
	for _, r := range results {
		if sp, ok := r.(tileSpatial); ok {
			tiles = append(tiles, sp.tile)
		}
	}
	return tiles
}

// Package runconfig answers "what run is Atlas currently on": the
// AtlasConfig embedded in the most recently completed tile job, and the
// set of tiles that run has already finished.
package runconfig

import (
	"context"

	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

// Current returns the AtlasConfig of the most recently completed tile
// job, or ok=false if no tile job has ever completed.
func Current(ctx context.Context, tileJobs *store.Store[types.TileJob]) (types.AtlasConfig, bool, error) {
	rows, err := tileJobs.FetchAllByType(ctx)
	if err != nil {
		return types.AtlasConfig{}, false, err
	}
	for _, row := range rows {
		if row.Status == store.StatusDone {
			return row.Job.Config, true, nil
		}
	}
	return types.AtlasConfig{}, false, nil
}

// CompletedTiles returns every tile of the current run that has
// completed, ordered most-recently-done first.
func CompletedTiles(ctx context.Context, tileJobs *store.Store[types.TileJob]) ([]types.Tile, error) {
	cfg, ok, err := Current(ctx, tileJobs)
	if err != nil || !ok {
		return nil, err
	}

	rows, err := tileJobs.FetchAllByType(ctx)
	if err != nil {
		return nil, err
	}

	var tiles []types.Tile
	for _, row := range rows {
		if row.Status == store.StatusDone && row.Job.Config.RunID == cfg.RunID {
			tiles = append(tiles, row.Job.Tile)
		}
	}
	return tiles, nil
}

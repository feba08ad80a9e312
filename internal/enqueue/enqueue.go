package enqueue

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/machines"
	"github.com/Umpriel/atlas/internal/runconfig"
	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

// Run submits every tile of cfg's run, starting from cfg.Centre and
// walking the master catalog nearest-first. It refuses to start when a
// different run's completed jobs are already on record (ConfigConflict),
// and, for the Local provider, pushes a local NewMachineJob and starts its
// handler in a background goroutine before pushing any tile, so the local
// tile worker is already polling when the first jobs arrive. Run does not
// wait for that handler; it keeps running after Run returns.
func Run(
	ctx context.Context,
	cfg types.AtlasConfig,
	tileJobs *store.Store[types.TileJob],
	machineJobs *store.Store[types.NewMachineJob],
	registry *machines.Registry,
	busy *machines.BusySet,
) error {
	if existing, ok, err := runconfig.Current(ctx, tileJobs); err != nil {
		return err
	} else if ok && existing.RunID != cfg.RunID {
		return atlaserr.New(atlaserr.ConfigConflict,
			fmt.Sprintf("run %q has completed jobs on record; cannot start run %q without a fresh state directory", existing.RunID, cfg.RunID))
	}

	tiles, err := loadMasterTiles(cfg.Master)
	if err != nil {
		return err
	}
	index, err := NewIndex(tiles)
	if err != nil {
		return atlaserr.Wrap(atlaserr.DataFormatFailure, "build master tile index", err)
	}

	if cfg.Provider == types.ProviderLocal {
		job := types.NewMachineJob{User: "atlas_local", IP: netip.MustParseAddr("127.0.0.1"), Provider: types.ProviderLocal}
		id, err := machineJobs.Push(ctx, job)
		if err != nil {
			return err
		}
		go func() {
			if err := machines.HandleNewMachine(ctx, machineJobs, tileJobs, registry, busy, id, job); err != nil {
				log.Logger.Error().Err(err).Msg("local tile worker exited with error")
			}
		}()
	}

	ordered := index.NearestNeighbors(cfg.Centre)
	if cfg.Skip > 0 {
		if cfg.Skip >= len(ordered) {
			ordered = nil
		} else {
			ordered = ordered[cfg.Skip:]
		}
	}
	if cfg.Amount > 0 && cfg.Amount < len(ordered) {
		ordered = ordered[:cfg.Amount]
	}

	log.Info(fmt.Sprintf("submitting %d tile jobs for run %s", len(ordered), cfg.RunID))
	for _, tile := range ordered {
		if _, err := tileJobs.Push(ctx, types.TileJob{Config: cfg, Tile: tile}); err != nil {
			return err
		}
	}
	return nil
}

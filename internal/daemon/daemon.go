// Package daemon supervises Atlas's long-running process: the persistent
// store, the connection registry and busy set, recovery of machines left
// running across a restart, and the job-inspection web UI. It holds no
// domain logic of its own; every step here delegates to the package that
// owns it.
package daemon

import (
	"context"

	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/machines"
	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

const (
	tileJobType    = "TileJob"
	machineJobType = "NewMachineJob"
)

// Daemon holds the long-lived handles a running Atlas process needs.
type Daemon struct {
	db          *store.DB
	TileJobs    *store.Store[types.TileJob]
	MachineJobs *store.Store[types.NewMachineJob]
	Registry    *machines.Registry
	Busy        *machines.BusySet
}

// Open opens the store and builds the in-memory registry and busy set. The
// caller is responsible for calling Close when done.
func Open(ctx context.Context) (*Daemon, error) {
	db, err := store.Open(ctx)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		db:          db,
		TileJobs:    store.NewStore[types.TileJob](db, tileJobType),
		MachineJobs: store.NewStore[types.NewMachineJob](db, machineJobType),
		Registry:    machines.NewRegistry(),
		Busy:        machines.NewBusySet(),
	}, nil
}

func (d *Daemon) Close() error {
	return d.db.Close()
}

// Run resets any job left running across a prior crash, resumes every
// machine that was mid-run, starts the job-inspection web UI, and then
// blocks until ctx is cancelled. A failure in the web UI is logged, not
// fatal: an unreachable inspection surface must never take down recovered
// tile workers alongside it.
func (d *Daemon) Run(ctx context.Context, staticDir string) error {
	if n, err := d.TileJobs.ReclaimStale(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Info("reclaimed stale tile jobs left running across a restart")
	}
	if n, err := d.MachineJobs.ReclaimStale(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Info("reclaimed stale new-machine jobs left running across a restart")
	}

	if err := machines.RecoverMachines(ctx, d.MachineJobs, d.TileJobs, d.Registry, d.Busy); err != nil {
		return err
	}

	go func() {
		if err := serveWebUI(ctx, d.TileJobs, d.MachineJobs, staticDir); err != nil && ctx.Err() == nil {
			log.Logger.Error().Err(err).Msg("job-inspection web UI exited with error")
		}
	}()

	<-ctx.Done()
	return nil
}

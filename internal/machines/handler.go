package machines

import (
	"context"
	"fmt"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/conn"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/metrics"
	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/tileworker"
	"github.com/Umpriel/atlas/internal/types"
)

// HandleNewMachine implements the new-machine worker: it connects to (or,
// for Local, trivially recognises) the machine named by job, registers its
// connection, clears any stale working directory left by a previous run,
// and starts that machine's tile-worker loop. It returns once the
// tile-worker loop has stopped (on queue drain, a stage error, or ctx
// cancellation) rather than spawning it detached, so callers decide
// whether to run it in the foreground (CLI) or a goroutine (daemon).
func HandleNewMachine(
	ctx context.Context,
	machineJobs *store.Store[types.NewMachineJob],
	tileJobs *store.Store[types.TileJob],
	registry *Registry,
	busy *BusySet,
	jobID string,
	job types.NewMachineJob,
) error {
	name := job.WorkerName()
	logger := log.WithWorker(name)

	if !busy.TryClaim(name) {
		logger.Info().Msg("machine already has a running tile worker, skipping")
		return nil
	}
	defer busy.Release(name)

	c, err := conn.Connect(ctx, job.Provider, job.IP.String(), job.User)
	if err != nil {
		if setErr := machineJobs.SetFailed(ctx, jobID, err); setErr != nil {
			logger.Error().Err(setErr).Msg("failed to mark new-machine job failed")
		}
		return atlaserr.Wrap(atlaserr.ConnectionFailure, "connect to "+name, err)
	}
	registry.Insert(name, c)
	defer registry.Remove(name)
	metrics.MachinesTotal.WithLabelValues(string(job.Provider)).Inc()
	defer metrics.MachinesTotal.WithLabelValues(string(job.Provider)).Dec()

	if _, err := c.Command(ctx, conn.Command{
		Executable: "rm",
		Args:       []string{"-rf", workingDir(name)},
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to clear prior working directory, continuing anyway")
	}

	state := tileworker.NewState(c)
	logger.Info().Msg("starting tile worker loop")

	if err := tileworker.Run(ctx, name, tileJobs, state); err != nil {
		if setErr := machineJobs.Fail(ctx, jobID, err); setErr != nil {
			logger.Error().Err(setErr).Msg("failed to mark new-machine job failed")
		}
		return err
	}

	return machineJobs.Complete(ctx, jobID)
}

func workingDir(workerName string) string {
	return fmt.Sprintf("atlas-work/%s", workerName)
}

// RecoverMachines re-establishes a tile-worker loop for every non-failed
// NewMachineJob on record, used at daemon startup to resume after a
// restart. Each recovered machine's loop runs in its own goroutine; errors
// are logged, not returned, since one unreachable machine must not prevent
// the rest from resuming.
func RecoverMachines(
	ctx context.Context,
	machineJobs *store.Store[types.NewMachineJob],
	tileJobs *store.Store[types.TileJob],
	registry *Registry,
	busy *BusySet,
) error {
	rows, err := machineJobs.FetchAllByType(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.Status == store.StatusFailed {
			continue
		}
		row := row
		go func() {
			if err := HandleNewMachine(ctx, machineJobs, tileJobs, registry, busy, row.ID, row.Job); err != nil {
				log.Logger.Error().Err(err).Str("machine", row.Job.WorkerName()).Msg("recovered machine worker exited with error")
			}
		}()
	}
	return nil
}

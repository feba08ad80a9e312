package tileworker

import (
	"context"
	"sync"
	"time"

	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/metrics"
	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

// pollInterval is how often an empty queue is re-checked before a worker
// loop concludes the queue is drained. A var, not a const, so tests can
// shrink it.
var pollInterval = 2 * time.Second

// emptyPollsBeforeExit is how many consecutive empty polls end the loop.
// A single empty poll could just be a race with another machine claiming
// the last pending row, so the loop waits out a few before giving up.
const emptyPollsBeforeExit = 3

// Run drives one machine's tile-worker loop: it polls jobs until the
// queue looks drained, processing up to `concurrency` jobs at once, and
// returns the first stage error encountered by any in-flight job (after
// waiting for in-flight jobs to finish) — matching the spec's
// error-driven worker stop.
func Run(ctx context.Context, workerName string, jobs *store.Store[types.TileJob], state *State) error {
	logger := log.WithWorker(workerName)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	emptyPolls := 0
	for {
		if ctx.Err() != nil {
			break
		}

		if err := state.sem.Acquire(ctx, 1); err != nil {
			break // ctx cancelled while waiting for a slot
		}

		row, err := jobs.Poll(ctx)
		if err != nil {
			state.sem.Release(1)
			recordErr(err)
			break
		}
		if row == nil {
			state.sem.Release(1)
			emptyPolls++
			if emptyPolls >= emptyPollsBeforeExit {
				break
			}
			select {
			case <-time.After(pollInterval):
			case <-ctx.Done():
			}
			continue
		}
		emptyPolls = 0

		row := row
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer state.sem.Release(1)

			err := processTile(ctx, workerName, row.ID, row.Job, state)
			if err != nil {
				metrics.JobsFailedTotal.WithLabelValues("TileJob").Inc()
				if failErr := jobs.Fail(ctx, row.ID, err); failErr != nil {
					logger.Error().Err(failErr).Msg("failed to record tile job failure")
				}
				recordErr(err)
				return
			}
			metrics.JobsCompletedTotal.WithLabelValues("TileJob").Inc()
			if completeErr := jobs.Complete(ctx, row.ID); completeErr != nil {
				logger.Error().Err(completeErr).Msg("failed to record tile job completion")
			}
		}()
	}

	wg.Wait()
	if firstErr != nil {
		logger.Error().Err(firstErr).Msg("tile worker stopped on stage error")
		return firstErr
	}
	logger.Info().Msg("tile worker stopped, queue drained")
	return nil
}

// Package tileworker implements the per-machine tile-processing loop
// (C5): polling the shared tile-job queue, running each job's stages in
// order, and serializing only the compute stage across the machine's
// concurrent jobs.
package tileworker

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Umpriel/atlas/internal/conn"
)

// concurrency is the number of tile jobs a single machine processes at
// once. The compute stage is further serialized by ComputeGate, so this
// only controls how much of the download/assets/upload pipeline overlaps.
const concurrency = 2

// State is the per-machine state a tile-worker loop shares across the
// jobs it processes concurrently.
type State struct {
	Connection *conn.Connection

	// ComputeGate serializes the TVS invocation stage: the GPU/CPU
	// compute kernel itself is not safe to run twice at once on one
	// machine, even though the surrounding I/O stages are.
	ComputeGate sync.Mutex

	sem *semaphore.Weighted
}

// NewState builds per-machine worker state bound to c.
func NewState(c *conn.Connection) *State {
	return &State{Connection: c, sem: semaphore.NewWeighted(concurrency)}
}

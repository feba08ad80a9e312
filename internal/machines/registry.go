// Package machines implements machine provisioning (C2), the connection
// registry and busy set that make a machine's tile-worker loop idempotent
// (C4), and the provider implementations for each supported compute
// backend.
package machines

import (
	"sync"

	"github.com/Umpriel/atlas/internal/conn"
)

// Registry is the process-wide map of machine key to its live Connection.
// Mirrors the original's RwLock<DashMap<String, Arc<Connection>>>: a
// plain map behind a single RWMutex, since Atlas never holds the lock
// across an I/O-bound command (every Connection.Command call runs outside
// the registry's lock).
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*conn.Connection
}

// NewRegistry builds an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*conn.Connection)}
}

// Get returns the connection registered under key, if any.
func (r *Registry) Get(key string) (*conn.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[key]
	return c, ok
}

// Insert registers a connection under key, replacing any prior entry.
func (r *Registry) Insert(key string, c *conn.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[key] = c
}

// Remove drops key from the registry.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, key)
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// BusySet tracks which worker names already have a tile-worker loop
// running, so a restart-time recovery pass or a duplicate NewMachineJob
// can never start a second loop on the same machine.
type BusySet struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewBusySet builds an empty busy set.
func NewBusySet() *BusySet {
	return &BusySet{busy: make(map[string]struct{})}
}

// TryClaim marks name busy and reports whether it was previously free. A
// false return means a worker loop is already running for name and the
// caller must not start another.
func (b *BusySet) TryClaim(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.busy[name]; ok {
		return false
	}
	b.busy[name] = struct{}{}
	return true
}

// Release frees name, allowing a future worker loop to claim it again.
func (b *BusySet) Release(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.busy, name)
}

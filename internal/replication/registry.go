package replication

import (
	"net"
	"sync"

	"rkvd/internal/logx"
)

// Replica is a connection a master has accepted and is (or will be)
// streaming writes to.
type Replica struct {
	Conn  net.Conn
	Port  int
	ready bool
}

// Registry is the master-side bookkeeping of connected replicas, keyed by
// the listening port each replica reported via REPLCONF. A second
// connection reporting a port already in the registry replaces the first —
// this is the dedup behavior spec.md calls for.
type Registry struct {
	mu       sync.Mutex
	replicas map[int]*Replica
}

// NewRegistry returns an empty replica registry.
func NewRegistry() *Registry {
	return &Registry{replicas: make(map[int]*Replica)}
}

// Register records conn as the replica listening on port, replacing
// whatever was previously registered for that port. The replica starts out
// not ready — MarkReady promotes it once its full resync has been sent.
func (r *Registry) Register(port int, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.replicas[port]; ok && existing.Conn != conn {
		existing.Conn.Close()
	}
	r.replicas[port] = &Replica{Conn: conn, Port: port}
}

// MarkReady flags the replica at port as eligible to receive propagated
// writes. Call this once the full-resync RDB payload has been written to
// its connection.
func (r *Registry) MarkReady(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.replicas[port]; ok {
		rep.ready = true
	}
}

// Unregister drops port from the registry without closing its connection —
// the caller owns the connection lifecycle (it is usually closing anyway
// because the read loop that owns it just exited).
func (r *Registry) Unregister(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.replicas, port)
}

// Propagate writes raw (an already RESP-encoded command) to every ready
// replica, in no particular order across replicas. A replica whose write fails
// is dropped from the registry and its connection closed; propagation
// continues for the rest.
func (r *Registry) Propagate(raw []byte) {
	r.mu.Lock()
	targets := make([]*Replica, 0, len(r.replicas))
	for _, rep := range r.replicas {
		if rep.ready {
			targets = append(targets, rep)
		}
	}
	r.mu.Unlock()

	for _, rep := range targets {
		if _, err := rep.Conn.Write(raw); err != nil {
			logx.WithField("port", rep.Port).Warnf("replication: dropping replica after write error: %v", err)
			r.Unregister(rep.Port)
			rep.Conn.Close()
		}
	}
}

// Count returns the number of replicas currently registered, ready or not.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replicas)
}

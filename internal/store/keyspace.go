package store

import (
	"sort"
	"sync"
)

// Database is a single logical database: a flat map of keys to entries,
// guarded by its own lock so that unrelated databases never contend with
// each other. This is the "per-shard lock" refinement spec.md §9 allows in
// place of one global mutex — sharded by db_index rather than by key hash,
// since every command already operates within a single db_index.
type Database struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func newDatabase() *Database {
	return &Database{entries: make(map[string]*Entry)}
}

// Keyspace is the concurrent map of string-keyed values with optional
// expiry, selectable by logical database index (spec.md §3's Database /
// RdbFile, merged into one type since RdbFile is simply a keyspace plus aux
// metadata — aux fields are not kept: internal/rdb skips them on load and
// writes a fixed set on save).
type Keyspace struct {
	mu  sync.Mutex
	dbs map[int]*Database
}

// New returns an empty Keyspace with database 0 already present, matching
// spec.md §3's "default and only required db_index is 0".
func New() *Keyspace {
	ks := &Keyspace{dbs: make(map[int]*Database)}
	ks.dbs[0] = newDatabase()
	return ks
}

// db returns the Database at index, creating it if create is true and it
// does not yet exist.
func (ks *Keyspace) db(index int, create bool) (*Database, bool) {
	ks.mu.Lock()
	d, ok := ks.dbs[index]
	if !ok && create {
		d = newDatabase()
		ks.dbs[index] = d
		ok = true
	}
	ks.mu.Unlock()
	return d, ok
}

// Get returns the stored entry for key in database dbIndex, if present. It
// performs no expiry check — the caller decides what "expired" means for the
// operation it is implementing (spec.md §4.3).
func (ks *Keyspace) Get(dbIndex int, key string) (Entry, bool) {
	d, ok := ks.db(dbIndex, false)
	if !ok {
		return Entry{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Insert creates the database if needed and replaces any existing entry for
// key atomically.
func (ks *Keyspace) Insert(dbIndex int, key string, value Value, expiry *Expiry) {
	d, _ := ks.db(dbIndex, true)
	d.mu.Lock()
	d.entries[key] = &Entry{Value: value, Expiry: expiry}
	d.mu.Unlock()
}

// Delete removes key from database dbIndex and reports whether it was
// present.
func (ks *Keyspace) Delete(dbIndex int, key string) bool {
	d, ok := ks.db(dbIndex, false)
	if !ok {
		return false
	}
	d.mu.Lock()
	_, existed := d.entries[key]
	delete(d.entries, key)
	d.mu.Unlock()
	return existed
}

// Keys returns a snapshot of every key currently stored in database
// dbIndex — expired or not; callers that care about lazy expiry (KEYS)
// filter the result themselves. Returns ok=false only if the database has
// never been created.
func (ks *Keyspace) Keys(dbIndex int) ([]string, bool) {
	d, ok := ks.db(dbIndex, false)
	if !ok {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	return keys, true
}

// DBSize returns the number of entries in database dbIndex.
func (ks *Keyspace) DBSize(dbIndex int) int {
	d, ok := ks.db(dbIndex, false)
	if !ok {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// DBCount returns the number of databases that currently exist.
func (ks *Keyspace) DBCount() int {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return len(ks.dbs)
}

// DBIndexes returns every database index currently present, used by the RDB
// writer to iterate all databases in a stable, snapshotted order.
func (ks *Keyspace) DBIndexes() []int {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	out := make([]int, 0, len(ks.dbs))
	for idx := range ks.dbs {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Snapshot returns a copy of every (key, entry) pair in database dbIndex,
// taken atomically with respect to concurrent inserts/deletes. Used by the
// RDB writer and by PSYNC's full-resync snapshot.
func (ks *Keyspace) Snapshot(dbIndex int) map[string]Entry {
	d, ok := ks.db(dbIndex, false)
	if !ok {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]Entry, len(d.entries))
	for k, e := range d.entries {
		out[k] = *e
	}
	return out
}

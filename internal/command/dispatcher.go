// Package command implements the server's command set: parsing each
// decoded RESP array into an operation against the keyspace, config, or
// replication registry, and encoding its reply.
package command

import (
	"net"
	"strings"
	"sync"
	"time"

	"rkvd/internal/config"
	"rkvd/internal/logx"
	"rkvd/internal/rdb"
	"rkvd/internal/replication"
	"rkvd/internal/store"
)

// Dispatcher holds everything a command needs to run: the keyspace it reads
// and writes, this server's config (for CONFIG GET), and — when acting as a
// master — the replica registry commands propagate to.
type Dispatcher struct {
	Keyspace *store.Keyspace
	Config   config.Config
	Registry *replication.Registry
	ReplID   string
	Role     replication.Role

	startedAt time.Time
	offset    int64

	mu          sync.Mutex
	pendingPort map[net.Conn]int
}

// NewDispatcher builds a Dispatcher for a freshly started server.
func NewDispatcher(ks *store.Keyspace, cfg config.Config, registry *replication.Registry, replID string, role replication.Role) *Dispatcher {
	return &Dispatcher{
		Keyspace:    ks,
		Config:      cfg,
		Registry:    registry,
		ReplID:      replID,
		Role:        role,
		startedAt:   time.Now(),
		pendingPort: make(map[net.Conn]int),
	}
}

// Execute runs one decoded command against the dispatcher's state. Most
// commands return their RESP-encoded reply. A few — PSYNC chief among them
// — write their reply directly to conn (raw bulk framing that doesn't fit
// EncodeBulkString's contract) and return nil; the caller must not write
// anything further for those.
func (d *Dispatcher) Execute(conn net.Conn, args [][]byte) []byte {
	if len(args) == 0 {
		return nil
	}
	name := strings.ToUpper(string(args[0]))
	d.propagate(args)

	switch name {
	case "PING":
		return d.cmdPing(args)
	case "ECHO":
		return d.cmdEcho(args)
	case "GET":
		return d.cmdGet(args)
	case "SET":
		return d.cmdSet(args)
	case "KEYS":
		return d.cmdKeys(args)
	case "CONFIG":
		return d.cmdConfig(args)
	case "INFO":
		return d.cmdInfo(args)
	case "REPLCONF":
		return d.cmdReplConf(conn, args)
	case "PSYNC":
		d.cmdPSync(conn, args)
		return nil
	default:
		return errorReply("ERR unknown command '" + name + "'")
	}
}

// ForgetConnection releases any REPLCONF listening-port state stashed for a
// connection that is closing without ever issuing PSYNC.
func (d *Dispatcher) ForgetConnection(conn net.Conn) {
	d.mu.Lock()
	delete(d.pendingPort, conn)
	d.mu.Unlock()
}

func (d *Dispatcher) now() int64 {
	return time.Now().UnixMilli()
}

// propagate fans every accepted command frame out to ready replicas and
// advances the replication offset by its encoded size. The frame is
// re-encoded from the decoded arguments as an array of bulk strings, not
// copied from the client's raw bytes: the two match for a canonically
// encoded frame, but a null bulk argument goes out as an empty bulk string
// and length fields are written in plain decimal. No-op when this dispatcher
// has no registry.
func (d *Dispatcher) propagate(args [][]byte) {
	if d.Registry == nil {
		return
	}
	encoded := make([][]byte, len(args))
	for i, a := range args {
		encoded[i] = encodeBulkStringArg(a)
	}
	raw := encodeArrayArg(encoded)
	d.offset += int64(len(raw))
	d.Registry.Propagate(raw)
}

// snapshotRDB renders the current keyspace as an RDB payload for PSYNC's
// full-resync bulk transfer.
func (d *Dispatcher) snapshotRDB() ([]byte, error) {
	return rdb.Dump(d.Keyspace)
}

func logCommand(args [][]byte) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = string(a)
	}
	logx.Debugf("command: %s", strings.Join(parts, " "))
}

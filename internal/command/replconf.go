package command

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"rkvd/internal/logx"
)

// cmdReplConf implements REPLCONF. Only "listening-port" and "capa" are
// recognized subcommands per spec.md §4.4; "getack"/"ack" are accepted
// silently (the master-to-replica and replica-to-master acknowledgement
// exchanges, neither of which expects a reply), and anything else is a
// protocol error.
func (d *Dispatcher) cmdReplConf(conn net.Conn, args [][]byte) []byte {
	if len(args) < 2 {
		return errWrongArgs("replconf")
	}
	sub := strings.ToUpper(string(args[1]))
	switch sub {
	case "LISTENING-PORT":
		if len(args) != 3 {
			return errWrongArgs("replconf")
		}
		port, err := strconv.Atoi(string(args[2]))
		if err != nil {
			return errNotInteger()
		}
		d.mu.Lock()
		d.pendingPort[conn] = port
		d.mu.Unlock()
		if d.Registry != nil {
			d.Registry.Register(port, conn)
		}
		return okReply()
	case "CAPA":
		// spec.md §4.4: OK only if at least one replica is registered,
		// else null bulk.
		if d.Registry == nil || d.Registry.Count() == 0 {
			return bulkReply(nil)
		}
		return okReply()
	case "GETACK":
		return nil
	case "ACK":
		return nil
	default:
		return errUnknownSubcommand("replconf", sub)
	}
}

// cmdPSync implements PSYNC replicationid offset. This server only ever
// performs a full resync: it replies FULLRESYNC with its own replication ID
// and current offset, sends the keyspace as a raw RDB bulk payload (no
// trailing CRLF, unlike a normal bulk string reply), then marks the replica
// that REPLCONF listening-port registered for this connection as ready so
// subsequent writes propagate to it. Without a prior listening-port it sends
// the payload but marks nothing ready.
func (d *Dispatcher) cmdPSync(conn net.Conn, args [][]byte) {
	fullresync := fmt.Sprintf("+FULLRESYNC %s %d\r\n", d.ReplID, d.offset)
	if _, err := conn.Write([]byte(fullresync)); err != nil {
		logx.WithField("remote", conn.RemoteAddr()).Warnf("psync: failed writing FULLRESYNC: %v", err)
		return
	}

	payload, err := d.snapshotRDB()
	if err != nil {
		logx.WithField("remote", conn.RemoteAddr()).Errorf("psync: failed building RDB snapshot: %v", err)
		return
	}

	bulkHeader := fmt.Sprintf("$%d\r\n", len(payload))
	if _, err := conn.Write([]byte(bulkHeader)); err != nil {
		logx.WithField("remote", conn.RemoteAddr()).Warnf("psync: failed writing RDB header: %v", err)
		return
	}
	if _, err := conn.Write(payload); err != nil {
		logx.WithField("remote", conn.RemoteAddr()).Warnf("psync: failed writing RDB payload: %v", err)
		return
	}

	d.mu.Lock()
	port, ok := d.pendingPort[conn]
	delete(d.pendingPort, conn)
	d.mu.Unlock()
	if !ok {
		logx.WithField("remote", conn.RemoteAddr()).Warn("psync: no REPLCONF listening-port seen before PSYNC")
		return
	}

	if d.Registry != nil {
		d.Registry.MarkReady(port)
	}
}

package command

import (
	"fmt"
	"strings"

	"rkvd/internal/replication"
)

// cmdInfo implements INFO [section]. Only the replication section exists.
// With no argument, the full output (with its "# Replication" header) is
// returned. Given a section name, matching "replication" case-insensitively
// returns the same fields without the header; any other name is treated as
// an empty section and replies with a null bulk.
func (d *Dispatcher) cmdInfo(args [][]byte) []byte {
	if len(args) > 1 {
		if !strings.EqualFold(string(args[1]), "replication") {
			return bulkReply(nil)
		}
	}

	var b strings.Builder
	if len(args) <= 1 {
		b.WriteString("# Replication\r\n")
	}

	if d.Role == replication.RoleReplica {
		fmt.Fprintf(&b, "role:slave\r\n")
		fmt.Fprintf(&b, "master_host:%s\r\n", d.Config.ReplicaOfHost)
		fmt.Fprintf(&b, "master_port:%d\r\n", d.Config.ReplicaOfPort)
		fmt.Fprintf(&b, "master_link_status:up\r\n")
		fmt.Fprintf(&b, "slave_repl_offset:%d\r\n", d.offset)
	} else {
		fmt.Fprintf(&b, "role:master\r\n")
		count := 0
		if d.Registry != nil {
			count = d.Registry.Count()
		}
		fmt.Fprintf(&b, "connected_slaves:%d\r\n", count)
	}
	fmt.Fprintf(&b, "master_replid:%s\r\n", d.ReplID)
	fmt.Fprintf(&b, "master_repl_offset:%d\r\n", d.offset)

	return bulkReply([]byte(b.String()))
}

// Package replication implements the master and replica sides of full
// (non-partial) replication: a master's registry of connected replicas and
// write fan-out, and a replica's connect-handshake-ingest lifecycle against
// a master.
package replication

// Role names as they appear in the role field of INFO replication.
type Role string

const (
	RoleMaster  Role = "master"
	RoleReplica Role = "slave"
)

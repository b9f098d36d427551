package command

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rkvd/internal/config"
	"rkvd/internal/replication"
	"rkvd/internal/store"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(store.New(), config.Default(), replication.NewRegistry(), "0123456789012345678901234567890123456789", replication.RoleMaster)
}

func args(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestPingNoArg(t *testing.T) {
	d := newTestDispatcher()
	assert.Equal(t, []byte("+PONG\r\n"), d.Execute(nil, args("PING")))
}

func TestPingWithMessage(t *testing.T) {
	d := newTestDispatcher()
	assert.Equal(t, []byte("$5\r\nhello\r\n"), d.Execute(nil, args("PING", "hello")))
}

func TestEcho(t *testing.T) {
	d := newTestDispatcher()
	assert.Equal(t, []byte("$3\r\nfoo\r\n"), d.Execute(nil, args("ECHO", "foo")))
}

func TestEchoWrongArgs(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("ECHO"))
	assert.Contains(t, string(reply), "wrong number of arguments")
}

func TestSetThenGet(t *testing.T) {
	d := newTestDispatcher()
	ok := d.Execute(nil, args("SET", "k", "v"))
	assert.Equal(t, []byte("+OK\r\n"), ok)

	got := d.Execute(nil, args("GET", "k"))
	assert.Equal(t, []byte("$1\r\nv\r\n"), got)
}

func TestGetMissingKey(t *testing.T) {
	d := newTestDispatcher()
	got := d.Execute(nil, args("GET", "nope"))
	assert.Equal(t, []byte("$-1\r\n"), got)
}

func TestSetWithPXExpiresImmediately(t *testing.T) {
	d := newTestDispatcher()
	d.Execute(nil, args("SET", "k", "v", "PX", "0"))
	got := d.Execute(nil, args("GET", "k"))
	assert.Equal(t, []byte("$-1\r\n"), got)
}

func TestSetRejectsBadExpiry(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("SET", "k", "v", "EX", "abc"))
	assert.Contains(t, string(reply), "not an integer")
}

func TestKeysOnlySupportsStar(t *testing.T) {
	d := newTestDispatcher()
	d.Execute(nil, args("SET", "a", "1"))
	d.Execute(nil, args("SET", "b", "2"))

	reply := d.Execute(nil, args("KEYS", "*"))
	assert.Equal(t, byte('*'), reply[0])

	bad := d.Execute(nil, args("KEYS", "a*"))
	assert.Contains(t, string(bad), "only supports")
}

func TestConfigGetDir(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("CONFIG", "GET", "dir"))
	assert.Contains(t, string(reply), "dir")
	assert.Contains(t, string(reply), d.Config.Dir)
}

func TestConfigGetUnknownParam(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("CONFIG", "GET", "maxmemory"))
	assert.Equal(t, []byte("*0\r\n"), reply)
}

func TestInfoReplicationMaster(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("INFO"))
	assert.Contains(t, string(reply), "role:master")
	assert.Contains(t, string(reply), "master_replid:")
}

func TestInfoWithReplicationSectionOmitsHeader(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("INFO", "replication"))
	assert.NotContains(t, string(reply), "# Replication")
	assert.Contains(t, string(reply), "role:master")
}

func TestInfoWithUnknownSectionReturnsNullBulk(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("INFO", "memory"))
	assert.Equal(t, []byte("$-1\r\n"), reply)
}

func TestInfoReplicationReplica(t *testing.T) {
	cfg := config.Default()
	cfg.IsReplica = true
	cfg.ReplicaOfHost = "127.0.0.1"
	cfg.ReplicaOfPort = 6379
	d := NewDispatcher(store.New(), cfg, nil, "abc", replication.RoleReplica)

	reply := d.Execute(nil, args("INFO"))
	assert.Contains(t, string(reply), "role:slave")
	assert.Contains(t, string(reply), "master_host:127.0.0.1")
}

func TestReplConfListeningPort(t *testing.T) {
	d := newTestDispatcher()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	reply := d.Execute(server, args("REPLCONF", "LISTENING-PORT", "6380"))
	assert.Equal(t, []byte("+OK\r\n"), reply)

	d.mu.Lock()
	port, ok := d.pendingPort[server]
	d.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, 6380, port)
}

func TestReplConfCapaNoReplicas(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("REPLCONF", "CAPA", "eof", "capa", "psync2"))
	assert.Equal(t, []byte("$-1\r\n"), reply)
}

func TestReplConfCapaWithRegisteredReplica(t *testing.T) {
	d := newTestDispatcher()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	d.Registry.Register(6380, server)

	reply := d.Execute(nil, args("REPLCONF", "CAPA", "eof", "capa", "psync2"))
	assert.Equal(t, []byte("+OK\r\n"), reply)
}

func TestReplConfUnknownSubcommand(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("REPLCONF", "BOGUS", "x"))
	assert.NotEqual(t, []byte("+OK\r\n"), reply)
}

func TestPSyncSendsFullResyncAndRegistersReplica(t *testing.T) {
	d := newTestDispatcher()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	d.Execute(server, args("REPLCONF", "LISTENING-PORT", "6380"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Execute(server, args("PSYNC", "?", "-1"))
	}()

	// cmdPSync issues three separate Writes (FULLRESYNC line, bulk header,
	// bulk payload); net.Pipe pairs each Write with exactly one Read.
	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "+FULLRESYNC")

	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "$")

	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "REDIS")

	<-done

	assert.Equal(t, 1, d.Registry.Count())
}

func TestUnknownCommand(t *testing.T) {
	d := newTestDispatcher()
	reply := d.Execute(nil, args("BOGUS"))
	assert.Contains(t, string(reply), "unknown command")
}

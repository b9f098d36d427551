package replication

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestRegistryRegisterAndPropagate(t *testing.T) {
	reg := NewRegistry()
	serverSide, clientSide := pipeConn(t)

	reg.Register(6380, serverSide)
	reg.MarkReady(6380)
	assert.Equal(t, 1, reg.Count())

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := clientSide.Read(buf)
		done <- buf[:n]
	}()

	reg.Propagate([]byte("*1\r\n$4\r\nPING\r\n"))
	got := <-done
	assert.Equal(t, "*1\r\n$4\r\nPING\r\n", string(got))
}

func TestRegistryDuplicatePortReplaces(t *testing.T) {
	reg := NewRegistry()
	first, _ := pipeConn(t)
	second, _ := pipeConn(t)

	reg.Register(6380, first)
	reg.Register(6380, second)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistryUnreadyReplicaNeverReceivesWrites(t *testing.T) {
	reg := NewRegistry()
	serverSide, clientSide := pipeConn(t)
	reg.Register(6380, serverSide)

	readDone := make(chan struct{})
	go func() {
		buf := make([]byte, 16)
		clientSide.Read(buf)
		close(readDone)
	}()

	reg.Propagate([]byte("*1\r\n$4\r\nPING\r\n"))

	select {
	case <-readDone:
		t.Fatal("unready replica should not have received propagated data")
	default:
	}
}

func TestGenerateReplIDFormat(t *testing.T) {
	id := GenerateReplID()
	require.Len(t, id, 40)
	for _, r := range id {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'), "unexpected char %q", r)
	}

	other := GenerateReplID()
	assert.NotEqual(t, id, other)
}

package respio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePingArray(t *testing.T) {
	buf := []byte("*1\r\n$4\r\nPING\r\n")
	cmd, consumed, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	require.Len(t, cmd.Args, 1)
	assert.Equal(t, "PING", string(cmd.Args[0]))
}

func TestDecodeSetWithTrailingPipelinedCommand(t *testing.T) {
	buf := []byte("*3\r\n$3\r\nSET\r\n$5\r\nhello\r\n$5\r\nworld\r\n*1\r\n$4\r\nPING\r\n")
	cmd, consumed, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, cmd.Args, 3)
	assert.Equal(t, "SET", string(cmd.Args[0]))
	assert.Equal(t, "hello", string(cmd.Args[1]))
	assert.Equal(t, "world", string(cmd.Args[2]))

	rest := buf[consumed:]
	cmd2, _, err := Decode(rest)
	require.NoError(t, err)
	assert.Equal(t, "PING", string(cmd2.Args[0]))
}

func TestDecodeNeedMore(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("*1\r\n"),
		[]byte("*1\r\n$4\r\nPI"),
		[]byte("*2\r\n$3\r\nGET\r\n$5\r\nhel"),
	}
	for _, buf := range cases {
		_, _, err := Decode(buf)
		assert.Same(t, ErrNeedMore, err, "buf=%q", buf)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte("+PONG\r\n"),
		[]byte("*abc\r\n"),
		[]byte("*-2\r\n"),
		[]byte("*1\r\n:5\r\n"),
		[]byte("*1\r\n$3\r\nabXX"),
	}
	for _, buf := range cases {
		_, _, err := Decode(buf)
		assert.True(t, IsMalformed(err), "buf=%q err=%v", buf, err)
	}
}

func TestDecodeNullBulkArgument(t *testing.T) {
	buf := []byte("*2\r\n$3\r\nGET\r\n$-1\r\n")
	cmd, _, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, cmd.Args, 2)
	assert.Nil(t, cmd.Args[1])
}

func TestDecodeNullArray(t *testing.T) {
	cmd, consumed, err := Decode([]byte("*-1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, consumed)
	assert.True(t, cmd.Null)
}

func TestEncodeRoundTrip(t *testing.T) {
	assert.Equal(t, []byte("+OK\r\n"), EncodeSimpleString("OK"))
	assert.Equal(t, []byte("-ERR boom\r\n"), EncodeError("ERR boom"))
	assert.Equal(t, []byte("$5\r\nhello\r\n"), EncodeBulkString([]byte("hello")))
	assert.Equal(t, []byte("$-1\r\n"), EncodeNullBulk())

	arr := EncodeArray([][]byte{EncodeBulkString([]byte("a")), EncodeBulkString([]byte("bc"))})
	assert.Equal(t, []byte("*2\r\n$1\r\na\r\n$2\r\nbc\r\n"), arr)

	decoded, consumed, err := Decode(append([]byte("*1\r\n"), EncodeBulkString([]byte("PING"))...))
	require.NoError(t, err)
	assert.Equal(t, "PING", string(decoded.Args[0]))
	assert.Equal(t, 4+len(EncodeBulkString([]byte("PING"))), consumed)
}

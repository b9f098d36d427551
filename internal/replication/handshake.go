package replication

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"rkvd/internal/logx"
	"rkvd/internal/rdb"
	"rkvd/internal/respio"
	"rkvd/internal/store"
)

// Executor applies a command array received on the replication stream to
// the local keyspace. It never writes a reply — the replica has nothing to
// reply to, it is a silent consumer of its master's write stream.
type Executor func(args [][]byte)

// Handshake connects to a master at host:port, performs the replication
// handshake (PING, REPLCONF listening-port, REPLCONF capa psync2, PSYNC ?
// -1), loads the resulting full-resync RDB payload into ks, and then blocks
// forever applying subsequent commands via exec. It returns only on a fatal
// handshake or connection error; the caller decides whether to retry.
func Handshake(host string, port int, myListeningPort int, ks *store.Keyspace, exec Executor) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("replication: dialing master %s: %w", addr, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)

	if err := sendCommand(conn, "PING"); err != nil {
		return fmt.Errorf("replication: sending PING: %w", err)
	}
	if _, err := readSimpleLine(r); err != nil {
		return fmt.Errorf("replication: reading PING reply: %w", err)
	}

	if err := sendCommand(conn, "REPLCONF", "listening-port", strconv.Itoa(myListeningPort)); err != nil {
		return fmt.Errorf("replication: sending REPLCONF listening-port: %w", err)
	}
	if _, err := readSimpleLine(r); err != nil {
		return fmt.Errorf("replication: reading REPLCONF listening-port reply: %w", err)
	}

	if err := sendCommand(conn, "REPLCONF", "capa", "psync2"); err != nil {
		return fmt.Errorf("replication: sending REPLCONF capa: %w", err)
	}
	if _, err := readSimpleLine(r); err != nil {
		return fmt.Errorf("replication: reading REPLCONF capa reply: %w", err)
	}

	if err := sendCommand(conn, "PSYNC", "?", "-1"); err != nil {
		return fmt.Errorf("replication: sending PSYNC: %w", err)
	}
	fullresync, err := readSimpleLine(r)
	if err != nil {
		return fmt.Errorf("replication: reading PSYNC reply: %w", err)
	}
	logx.Infof("replication: %s", fullresync)

	rdbPayload, err := readRDBBulk(r)
	if err != nil {
		return fmt.Errorf("replication: reading full-resync RDB: %w", err)
	}
	loaded, err := rdb.LoadBytes(rdbPayload)
	if err != nil {
		return fmt.Errorf("replication: parsing full-resync RDB: %w", err)
	}
	adoptKeyspace(ks, loaded)
	logx.Infof("replication: full resync complete, entering steady state")

	return streamCommands(r, exec)
}

// adoptKeyspace replaces the contents of dst with everything in src,
// database by database, in place — callers already hold a reference to dst
// (the server's live keyspace), so the full resync has to land inside it
// rather than swap the pointer out from under them.
func adoptKeyspace(dst, src *store.Keyspace) {
	for _, dbIndex := range dst.DBIndexes() {
		keys, _ := dst.Keys(dbIndex)
		for _, key := range keys {
			dst.Delete(dbIndex, key)
		}
	}
	for _, dbIndex := range src.DBIndexes() {
		for key, entry := range src.Snapshot(dbIndex) {
			dst.Insert(dbIndex, key, entry.Value, entry.Expiry)
		}
	}
}

// streamCommands reads the steady-state replication stream: a sequence of
// RESP command arrays, applied one at a time via exec. It never returns
// except on a read/decode error, since a healthy master keeps this
// connection open indefinitely.
func streamCommands(r *bufio.Reader, exec Executor) error {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)

	for {
		cmd, consumed, err := respio.Decode(buf)
		if err == nil {
			buf = buf[consumed:]
			if len(cmd.Args) > 0 {
				exec(cmd.Args)
			}
			continue
		}
		if err != respio.ErrNeedMore {
			return fmt.Errorf("replication: malformed command on replication stream: %w", err)
		}

		n, readErr := r.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if readErr != nil {
			return fmt.Errorf("replication: master connection closed: %w", readErr)
		}
	}
}

func sendCommand(w net.Conn, args ...string) error {
	encoded := make([][]byte, len(args))
	for i, a := range args {
		encoded[i] = respio.EncodeBulkString([]byte(a))
	}
	_, err := w.Write(respio.EncodeArray(encoded))
	return err
}

func readSimpleLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readRDBBulk reads the RDB payload PSYNC sends after FULLRESYNC: a
// "$<length>\r\n" header followed by exactly length raw bytes, with NO
// trailing CRLF (unlike an ordinary RESP bulk string).
func readRDBBulk(r *bufio.Reader) ([]byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	header = strings.TrimRight(header, "\r\n")
	if !strings.HasPrefix(header, "$") {
		return nil, fmt.Errorf("expected bulk length header, got %q", header)
	}
	length, err := strconv.Atoi(header[1:])
	if err != nil {
		return nil, fmt.Errorf("malformed bulk length %q: %w", header, err)
	}

	payload := make([]byte, length)
	total := 0
	for total < length {
		n, err := r.Read(payload[total:])
		total += n
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

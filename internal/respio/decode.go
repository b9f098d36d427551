// Package respio implements the RESP (REdis Serialization Protocol) wire
// codec: decoding inbound command frames and encoding outbound replies.
//
// The decoder works directly over a byte slice rather than an io.Reader so
// that a connection loop can buffer partial reads itself and retry Decode
// once more bytes have arrived, without the codec ever blocking on I/O.
package respio

import "strconv"

// Command is the canonical decoded form of a client request: a RESP Array
// of Bulk Strings. A nil element represents a null bulk string argument; a
// Null command represents a top-level null array (accepted on decode; no
// command handler replies with one).
type Command struct {
	Args [][]byte
	Null bool
}

// Decode attempts to parse one complete top-level RESP Array of Bulk Strings
// from the front of buf. On success it returns the command and the number of
// bytes consumed. If buf holds an incomplete frame it returns ErrNeedMore. If
// buf is structurally invalid it returns a *MalformedError.
func Decode(buf []byte) (*Command, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrNeedMore
	}
	if buf[0] != '*' {
		return nil, 0, malformed("expected array ('*'), got '" + string(buf[0]) + "'")
	}

	line, lineEnd, err := readLine(buf, 1)
	if err != nil {
		return nil, 0, err
	}

	count, err := parseLength(line)
	if err != nil {
		return nil, 0, err
	}

	if count < -1 {
		return nil, 0, malformed("negative array length other than -1")
	}
	if count == -1 {
		return &Command{Null: true}, lineEnd, nil
	}

	idx := lineEnd
	args := make([][]byte, 0, count)

	for i := 0; i < count; i++ {
		if idx >= len(buf) {
			return nil, 0, ErrNeedMore
		}
		if buf[idx] != '$' {
			return nil, 0, malformed("expected bulk string ('$') inside array")
		}

		lenLine, lenLineEnd, err := readLine(buf, idx+1)
		if err != nil {
			return nil, 0, err
		}

		strLen, err := parseLength(lenLine)
		if err != nil {
			return nil, 0, err
		}
		if strLen < -1 {
			return nil, 0, malformed("negative bulk string length other than -1")
		}

		if strLen == -1 {
			args = append(args, nil)
			idx = lenLineEnd
			continue
		}

		dataStart := lenLineEnd
		dataEnd := dataStart + strLen
		if (dataEnd < len(buf) && buf[dataEnd] != '\r') ||
			(dataEnd+1 < len(buf) && buf[dataEnd+1] != '\n') {
			return nil, 0, malformed("bulk string not terminated by CRLF")
		}
		if dataEnd+2 > len(buf) {
			return nil, 0, ErrNeedMore
		}

		data := make([]byte, strLen)
		copy(data, buf[dataStart:dataEnd])
		args = append(args, data)
		idx = dataEnd + 2
	}

	return &Command{Args: args}, idx, nil
}

// readLine scans buf starting at start for a terminating "\r\n" and returns
// the line contents (excluding the CRLF) and the index immediately after it.
func readLine(buf []byte, start int) ([]byte, int, error) {
	for i := start; i+1 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			return buf[start:i], i + 2, nil
		}
	}
	return nil, 0, ErrNeedMore
}

// parseLength parses an ASCII decimal RESP length field, which may be -1.
func parseLength(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, malformed("empty length field")
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, malformed("non-numeric length field: " + string(b))
	}
	return n, nil
}

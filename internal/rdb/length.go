package rdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	lzf "github.com/zhuyie/golzf"
)

// readLength reads one RDB length field, returning the decoded length and
// whether the first byte instead carried a "special encoding" subtype (in
// which case length is 0 and encType holds the subtype).
func readLength(r *bufio.Reader) (length uint64, special bool, encType byte, err error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, false, 0, err
	}

	switch first & 0xC0 {
	case len6Bit:
		return uint64(first & 0x3F), false, 0, nil

	case len14Bit:
		second, err := r.ReadByte()
		if err != nil {
			return 0, false, 0, err
		}
		return uint64(first&0x3F)<<8 | uint64(second), false, 0, nil

	case len32Or64Bit:
		// spec.md §4.2: "discard low 6 bits, next 4 bytes little-endian u32
		// are the length" — the low 6 bits of first carry no information.
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, false, 0, err
		}
		return uint64(binary.LittleEndian.Uint32(buf[:])), false, 0, nil

	case lenSpecial:
		return 0, true, first & 0x3F, nil
	}

	return 0, false, 0, fmt.Errorf("rdb: unreachable length prefix 0x%02x", first)
}

// readString reads an RDB "string" object: a length-prefixed byte string
// that may instead be one of the special integer or LZF-compressed
// encodings.
func readString(r *bufio.Reader) ([]byte, error) {
	length, special, encType, err := readLength(r)
	if err != nil {
		return nil, err
	}
	if !special {
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("rdb: reading string body: %w", err)
		}
		return buf, nil
	}

	switch encType {
	case encInt8:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%d", int8(b))), nil

	case encInt16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%d", int16(binary.LittleEndian.Uint16(buf[:])))), nil

	case encInt32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(buf[:])))), nil

	case encLZF:
		compressedLen, sp, _, err := readLength(r)
		if err != nil || sp {
			return nil, fmt.Errorf("rdb: malformed LZF compressed length")
		}
		uncompressedLen, sp, _, err := readLength(r)
		if err != nil || sp {
			return nil, fmt.Errorf("rdb: malformed LZF uncompressed length")
		}
		compressed := make([]byte, compressedLen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, fmt.Errorf("rdb: reading LZF payload: %w", err)
		}
		out := make([]byte, uncompressedLen)
		n, err := lzf.Decompress(compressed, out)
		if err != nil {
			return nil, fmt.Errorf("rdb: LZF decompress: %w", err)
		}
		return out[:n], nil

	default:
		return nil, fmt.Errorf("rdb: unsupported special string encoding %d", encType)
	}
}

// writeLength encodes length using the shortest of the 6-bit/14-bit/32-bit
// forms this codec emits. Writers never produce the 64-bit form or any
// special encoding — those exist only to keep the reader compatible with
// dumps written by a real redis-server.
func writeLength(w io.Writer, length uint64) error {
	switch {
	case length < 1<<6:
		_, err := w.Write([]byte{byte(length)})
		return err
	case length < 1<<14:
		_, err := w.Write([]byte{
			len14Bit | byte(length>>8),
			byte(length),
		})
		return err
	default:
		// spec.md §4.2 write rule: 5-byte form is 0x80 then the length
		// little-endian. This codec restricts the width to u32 (noted in
		// DESIGN.md) but keeps the mandated byte order.
		if _, err := w.Write([]byte{len32BitMarker}); err != nil {
			return err
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(length))
		_, err := w.Write(buf[:])
		return err
	}
}

// writeString encodes an RDB string object: its length followed by its raw
// bytes. This codec never emits the integer or LZF special encodings.
func writeString(w io.Writer, b []byte) error {
	if err := writeLength(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

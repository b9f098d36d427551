package rdb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"

	"rkvd/internal/logx"
	"rkvd/internal/store"
)

// Load reads an RDB file from path and populates a fresh Keyspace from its
// contents. A missing file is not an error — it simply means the server is
// starting with an empty keyspace, the same way real redis-server treats a
// missing dump.rdb on boot.
func Load(path string) (*store.Keyspace, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logx.Infof("rdb: no dump file at %s, starting empty", path)
		return store.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("rdb: reading %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a complete RDB payload already held in memory — the form
// a replica receives as the bulk-string body of a PSYNC full resync — into
// a fresh Keyspace.
func LoadBytes(data []byte) (*store.Keyspace, error) {
	if len(data) < 9+8 {
		return nil, fmt.Errorf("rdb: file too short to be a valid dump")
	}
	if string(data[:5]) != Magic {
		return nil, fmt.Errorf("rdb: bad magic string %q", data[:5])
	}
	versionStr := string(data[5:9])
	if _, err := strconv.Atoi(versionStr); err != nil {
		return nil, fmt.Errorf("rdb: non-numeric version field %q", versionStr)
	}

	body := data[:len(data)-8]
	storedChecksum := binary.LittleEndian.Uint64(data[len(data)-8:])
	calculated := crc64Update(0, body)
	if calculated != storedChecksum {
		return nil, fmt.Errorf("rdb: checksum mismatch: file says %d, computed %d", storedChecksum, calculated)
	}

	r := bufio.NewReader(bytes.NewReader(data[9 : len(data)-8]))
	ks := store.New()
	currentDB := 0
	var pendingExpiry *store.Expiry

	for {
		opcode, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("rdb: unexpected end of stream before EOF opcode: %w", err)
		}

		switch opcode {
		case opEOF:
			return ks, nil

		case opAux:
			if _, err := readString(r); err != nil {
				return nil, fmt.Errorf("rdb: reading aux key: %w", err)
			}
			if _, err := readString(r); err != nil {
				return nil, fmt.Errorf("rdb: reading aux value: %w", err)
			}

		case opSelectDB:
			n, special, _, err := readLength(r)
			if err != nil || special {
				return nil, fmt.Errorf("rdb: malformed SELECTDB opcode")
			}
			currentDB = int(n)

		case opResizeDB:
			if _, _, _, err := readLength(r); err != nil {
				return nil, fmt.Errorf("rdb: reading hash table size hint: %w", err)
			}
			if _, _, _, err := readLength(r); err != nil {
				return nil, fmt.Errorf("rdb: reading expire table size hint: %w", err)
			}

		case opExpireTimeMS:
			var buf [8]byte
			if _, err := readFull(r, buf[:]); err != nil {
				return nil, fmt.Errorf("rdb: reading ms expiry: %w", err)
			}
			pendingExpiry = &store.Expiry{
				Kind: store.ExpiryMilliseconds,
				At:   binary.LittleEndian.Uint64(buf[:]),
			}

		case opExpireTime:
			var buf [4]byte
			if _, err := readFull(r, buf[:]); err != nil {
				return nil, fmt.Errorf("rdb: reading sec expiry: %w", err)
			}
			pendingExpiry = &store.Expiry{
				Kind: store.ExpirySeconds,
				At:   uint64(binary.LittleEndian.Uint32(buf[:])),
			}

		default:
			key, value, err := readValue(r, opcode)
			if err != nil {
				return nil, err
			}
			ks.Insert(currentDB, string(key), value, pendingExpiry)
			pendingExpiry = nil
		}
	}
}

// readValue reads a key followed by a value of the type named by typeByte.
func readValue(r *bufio.Reader, typeByte byte) ([]byte, store.Value, error) {
	key, err := readString(r)
	if err != nil {
		return nil, store.Value{}, fmt.Errorf("rdb: reading key: %w", err)
	}

	switch typeByte {
	case TypeString:
		s, err := readString(r)
		if err != nil {
			return nil, store.Value{}, fmt.Errorf("rdb: reading string value for %q: %w", key, err)
		}
		return key, store.StringValue(s), nil

	case TypeList:
		n, special, _, err := readLength(r)
		if err != nil || special {
			return nil, store.Value{}, fmt.Errorf("rdb: reading list length for %q", key)
		}
		list := make([][]byte, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := readString(r)
			if err != nil {
				return nil, store.Value{}, fmt.Errorf("rdb: reading list element %d of %q: %w", i, key, err)
			}
			list = append(list, item)
		}
		return key, store.Value{Type: store.TypeList, List: list}, nil

	case TypeSet:
		n, special, _, err := readLength(r)
		if err != nil || special {
			return nil, store.Value{}, fmt.Errorf("rdb: reading set length for %q", key)
		}
		members := make([][]byte, 0, n)
		for i := uint64(0); i < n; i++ {
			m, err := readString(r)
			if err != nil {
				return nil, store.Value{}, fmt.Errorf("rdb: reading set member %d of %q: %w", i, key, err)
			}
			members = append(members, m)
		}
		return key, store.Value{Type: store.TypeSet, Set: members}, nil

	case TypeHash:
		n, special, _, err := readLength(r)
		if err != nil || special {
			return nil, store.Value{}, fmt.Errorf("rdb: reading hash length for %q", key)
		}
		fields := make([]store.HashField, 0, n)
		for i := uint64(0); i < n; i++ {
			f, err := readString(r)
			if err != nil {
				return nil, store.Value{}, fmt.Errorf("rdb: reading hash field %d of %q: %w", i, key, err)
			}
			v, err := readString(r)
			if err != nil {
				return nil, store.Value{}, fmt.Errorf("rdb: reading hash value %d of %q: %w", i, key, err)
			}
			fields = append(fields, store.HashField{Field: f, Value: v})
		}
		return key, store.Value{Type: store.TypeHash, Hash: fields}, nil

	case TypeSortedSet:
		n, special, _, err := readLength(r)
		if err != nil || special {
			return nil, store.Value{}, fmt.Errorf("rdb: reading zset length for %q", key)
		}
		members := make([]store.ZSetMember, 0, n)
		for i := uint64(0); i < n; i++ {
			m, err := readString(r)
			if err != nil {
				return nil, store.Value{}, fmt.Errorf("rdb: reading zset member %d of %q: %w", i, key, err)
			}
			score, err := readDouble(r)
			if err != nil {
				return nil, store.Value{}, fmt.Errorf("rdb: reading zset score %d of %q: %w", i, key, err)
			}
			members = append(members, store.ZSetMember{Member: m, Score: score})
		}
		return key, store.Value{Type: store.TypeSortedSet, ZSet: members}, nil

	default:
		return nil, store.Value{}, fmt.Errorf("rdb: unsupported value type byte %d for key %q", typeByte, key)
	}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

package rdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rkvd/internal/store"
)

// Save writes every database in ks to an RDB v9 file at path, replacing any
// existing file atomically via write-to-temp-then-rename. It shares its
// encoder with Dump, which builds a master's PSYNC full-resync payload.
func Save(path string, ks *store.Keyspace) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("rdb: creating %s: %w", dir, err)
		}
	}

	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("rdb: creating temp file: %w", err)
	}

	w := bufio.NewWriter(file)
	if err := writeAll(w, ks); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("rdb: flushing: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("rdb: syncing: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rdb: closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rdb: replacing %s: %w", path, err)
	}
	return nil
}

// Dump renders ks as an in-memory RDB payload, the form PSYNC sends a
// replica during a full resync — the same encoding Save writes to disk,
// just never touching the filesystem. Two renderings of the same keyspace
// can still differ: the ctime aux field is the current time, and keys within
// a database are written in map iteration order.
func Dump(ks *store.Keyspace) ([]byte, error) {
	var buf bufferWriter
	if err := writeAll(&buf, ks); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// bufferWriter is a minimal io.Writer over a growable byte slice, used so
// Dump can reuse writeAll without allocating a bufio.Writer over a pipe.
type bufferWriter struct{ b []byte }

func (b *bufferWriter) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

func writeAll(w interface{ Write([]byte) (int, error) }, ks *store.Keyspace) error {
	hasher := &crcWriter{w: w}

	if _, err := hasher.Write([]byte(Magic)); err != nil {
		return err
	}
	if _, err := hasher.Write([]byte(fmt.Sprintf("%04d", Version))); err != nil {
		return err
	}
	if err := writeAux(hasher, "redis-ver", "7.0.0"); err != nil {
		return err
	}
	if err := writeAux(hasher, "ctime", fmt.Sprintf("%d", time.Now().Unix())); err != nil {
		return err
	}

	for _, dbIndex := range ks.DBIndexes() {
		snapshot := ks.Snapshot(dbIndex)
		if len(snapshot) == 0 {
			continue
		}
		if _, err := hasher.Write([]byte{opSelectDB}); err != nil {
			return err
		}
		if err := writeLength(hasher, uint64(dbIndex)); err != nil {
			return err
		}

		if _, err := hasher.Write([]byte{opResizeDB}); err != nil {
			return err
		}
		if err := writeLength(hasher, uint64(len(snapshot))); err != nil {
			return err
		}
		expiring := 0
		for _, e := range snapshot {
			if e.Expiry != nil {
				expiring++
			}
		}
		if err := writeLength(hasher, uint64(expiring)); err != nil {
			return err
		}

		for key, entry := range snapshot {
			if err := writeEntry(hasher, key, entry); err != nil {
				return err
			}
		}
	}

	if _, err := hasher.Write([]byte{opEOF}); err != nil {
		return err
	}

	var checksum [8]byte
	binary.LittleEndian.PutUint64(checksum[:], hasher.crc)
	_, err := w.Write(checksum[:])
	return err
}

func writeAux(w interface{ Write([]byte) (int, error) }, key, value string) error {
	if _, err := w.Write([]byte{opAux}); err != nil {
		return err
	}
	if err := writeString(w, []byte(key)); err != nil {
		return err
	}
	return writeString(w, []byte(value))
}

func writeEntry(w interface{ Write([]byte) (int, error) }, key string, entry store.Entry) error {
	if entry.Expiry != nil {
		switch entry.Expiry.Kind {
		case store.ExpiryMilliseconds:
			if _, err := w.Write([]byte{opExpireTimeMS}); err != nil {
				return err
			}
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], entry.Expiry.At)
			if _, err := w.Write(buf[:]); err != nil {
				return err
			}
		case store.ExpirySeconds:
			if _, err := w.Write([]byte{opExpireTime}); err != nil {
				return err
			}
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], uint32(entry.Expiry.At))
			if _, err := w.Write(buf[:]); err != nil {
				return err
			}
		}
	}

	switch entry.Value.Type {
	case store.TypeString:
		if _, err := w.Write([]byte{TypeString}); err != nil {
			return err
		}
		if err := writeString(w, []byte(key)); err != nil {
			return err
		}
		return writeString(w, entry.Value.Str)

	case store.TypeList:
		if _, err := w.Write([]byte{TypeList}); err != nil {
			return err
		}
		if err := writeString(w, []byte(key)); err != nil {
			return err
		}
		if err := writeLength(w, uint64(len(entry.Value.List))); err != nil {
			return err
		}
		for _, item := range entry.Value.List {
			if err := writeString(w, item); err != nil {
				return err
			}
		}
		return nil

	case store.TypeSet:
		if _, err := w.Write([]byte{TypeSet}); err != nil {
			return err
		}
		if err := writeString(w, []byte(key)); err != nil {
			return err
		}
		if err := writeLength(w, uint64(len(entry.Value.Set))); err != nil {
			return err
		}
		for _, member := range entry.Value.Set {
			if err := writeString(w, member); err != nil {
				return err
			}
		}
		return nil

	case store.TypeHash:
		if _, err := w.Write([]byte{TypeHash}); err != nil {
			return err
		}
		if err := writeString(w, []byte(key)); err != nil {
			return err
		}
		if err := writeLength(w, uint64(len(entry.Value.Hash))); err != nil {
			return err
		}
		for _, f := range entry.Value.Hash {
			if err := writeString(w, f.Field); err != nil {
				return err
			}
			if err := writeString(w, f.Value); err != nil {
				return err
			}
		}
		return nil

	case store.TypeSortedSet:
		if _, err := w.Write([]byte{TypeSortedSet}); err != nil {
			return err
		}
		if err := writeString(w, []byte(key)); err != nil {
			return err
		}
		if err := writeLength(w, uint64(len(entry.Value.ZSet))); err != nil {
			return err
		}
		for _, m := range entry.Value.ZSet {
			if err := writeString(w, m.Member); err != nil {
				return err
			}
			if err := writeDouble(w, m.Score); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("rdb: unsupported value type %d for key %q", entry.Value.Type, key)
}

// crcWriter tees every byte written through it into a running Jones CRC64,
// so the checksum can be computed in one pass alongside the actual write.
type crcWriter struct {
	w   interface{ Write([]byte) (int, error) }
	crc uint64
}

func (c *crcWriter) Write(p []byte) (int, error) {
	c.crc = crc64Update(c.crc, p)
	return c.w.Write(p)
}

// DefaultPath joins a directory and filename the way CONFIG GET dir /
// CONFIG GET dbfilename report them, e.g. "/var/lib/rkvd" + "dump.rdb".
func DefaultPath(dir, filename string) string {
	return filepath.Join(dir, filename)
}

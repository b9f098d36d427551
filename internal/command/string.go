package command

import (
	"strconv"
	"strings"

	"rkvd/internal/store"
)

const defaultDB = 0

// cmdGet implements GET key. A missing or lazily-expired key replies with a
// null bulk string; an expired key is purged from the keyspace on the way
// out rather than left for a background sweep, since this server has none.
func (d *Dispatcher) cmdGet(args [][]byte) []byte {
	if len(args) != 2 {
		return errWrongArgs("get")
	}
	key := string(args[1])

	entry, ok := d.Keyspace.Get(defaultDB, key)
	if !ok {
		return bulkReply(nil)
	}
	if entry.Expiry.ExpiredAt(d.now()) {
		d.Keyspace.Delete(defaultDB, key)
		return bulkReply(nil)
	}
	if entry.Value.Type != store.TypeString {
		return errWrongType()
	}
	return bulkReply(entry.Value.Str)
}

// cmdSet implements SET key value [EX seconds | PX milliseconds]. Both
// expiry forms are converted to an absolute deadline at set time; this
// store never records a relative TTL (store.Expiry is always absolute).
func (d *Dispatcher) cmdSet(args [][]byte) []byte {
	if len(args) < 3 {
		return errWrongArgs("set")
	}
	key := string(args[1])
	value := args[2]

	var expiry *store.Expiry
	rest := args[3:]
	for len(rest) > 0 {
		opt := strings.ToUpper(string(rest[0]))
		switch opt {
		case "EX", "PX":
			if len(rest) < 2 {
				return errWrongArgs("set")
			}
			n, err := strconv.ParseInt(string(rest[1]), 10, 64)
			if err != nil {
				return errNotInteger()
			}
			now := d.now()
			if opt == "EX" {
				expiry = &store.Expiry{Kind: store.ExpirySeconds, At: uint64(now/1000 + n)}
			} else {
				expiry = &store.Expiry{Kind: store.ExpiryMilliseconds, At: uint64(now + n)}
			}
			rest = rest[2:]
		default:
			return errorReply("ERR syntax error")
		}
	}

	d.Keyspace.Insert(defaultDB, key, store.StringValue(value), expiry)
	return okReply()
}

// cmdKeys implements KEYS pattern. Only the literal "*" pattern (match
// everything) is supported, per spec.md's explicit scope; any other
// pattern is rejected rather than silently mismatched.
func (d *Dispatcher) cmdKeys(args [][]byte) []byte {
	if len(args) != 2 {
		return errWrongArgs("keys")
	}
	if string(args[1]) != "*" {
		return errorReply("ERR KEYS only supports the '*' pattern")
	}

	keys, _ := d.Keyspace.Keys(defaultDB)
	now := d.now()
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		entry, ok := d.Keyspace.Get(defaultDB, k)
		if !ok || entry.Expiry.ExpiredAt(now) {
			continue
		}
		out = append(out, encodeBulkStringArg([]byte(k)))
	}
	return arrayReply(out)
}

// Package rdb implements the RDB v9 persistence format: loading a dump file
// into a store.Keyspace at startup, and serializing a Keyspace back out to a
// dump file (Save) and to the in-memory payload a master sends a replica
// during a full resync (Dump).
package rdb

const (
	// Version is the RDB format version this codec reads and writes.
	Version = 9
	// Magic is the 5-byte literal that opens every RDB file.
	Magic = "REDIS"
)

// Opcodes that can appear in place of a value-type byte at the top of the
// per-database record loop.
const (
	opEOF          = 0xFF
	opSelectDB     = 0xFE
	opExpireTime   = 0xFD
	opExpireTimeMS = 0xFC
	opResizeDB     = 0xFB
	opAux          = 0xFA
)

// Value type bytes, per spec.md §4.2: "0x00 String, 0x01 List, 0x02 Hash,
// 0x03 Set, 0x04 SortedSet". Only TypeString round-trips through the
// command set; the rest are recognized so dumps produced by real Redis load
// without error even when they contain types this server cannot itself
// create.
const (
	TypeString    = 0
	TypeList      = 1
	TypeHash      = 2
	TypeSet       = 3
	TypeSortedSet = 4
)

// Length-encoding prefix forms, keyed off the top two bits of the first
// length byte.
const (
	len6Bit      = 0b00000000
	len14Bit     = 0b01000000
	len32Or64Bit = 0b10000000
	lenSpecial   = 0b11000000
)

const (
	len32BitMarker = 0x80
)

// Special-encoding subtypes, valid only when the top two bits are
// lenSpecial.
const (
	encInt8  = 0
	encInt16 = 1
	encInt32 = 2
	encLZF   = 3
)

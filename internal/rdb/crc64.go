package rdb

import (
	"hash/crc64"
	"math/bits"
	"sync"
)

// jonesPoly is the CRC-64 polynomial real Redis uses for RDB checksums. It is
// NOT the ECMA polynomial hash/crc64 ships a table for by default, so the
// table has to be built by hand to match on-disk dumps produced by a real
// redis-server.
const jonesPoly uint64 = 0xAD93D23594C935A9

var (
	jonesTableOnce sync.Once
	jonesTable     *crc64.Table
)

func buildJonesTable() {
	table := new(crc64.Table)
	for i := 0; i < 256; i++ {
		var crc uint64
		for j := uint8(1); j&0xFF != 0; j <<= 1 {
			bit := crc & 0x8000000000000000
			if uint8(i)&j != 0 {
				if bit == 0 {
					bit = 1
				} else {
					bit = 0
				}
			}
			crc <<= 1
			if bit != 0 {
				crc ^= jonesPoly
			}
		}
		table[i] = bits.Reverse64(crc)
	}
	jonesTable = table
}

// crc64Update folds payload into crc using the Jones polynomial table.
// hash/crc64.Update pre/post-inverts its running value; Redis does neither,
// so the inversion is undone on both ends of the call.
func crc64Update(crc uint64, payload []byte) uint64 {
	jonesTableOnce.Do(buildJonesTable)
	return ^crc64.Update(^crc, jonesTable, payload)
}

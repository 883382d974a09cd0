package tree

import (
	"bytes"
	"encoding/binary"

	"coredb/page"
)

// KeySize is the fixed width of every key in the tree, in bytes. Fixed
// size keys are what let a node's capacity (MaxSize) be computed once
// from the page size instead of varying with the data stored, which is
// the whole point of excluding variable-length keys from this index.
const KeySize = 8

// Key is a fixed-size, directly comparable key. The default ordering is
// the byte order of its contents; Int64Key encodes a signed integer so
// that byte order matches numeric order.
type Key [KeySize]byte

// Comparator orders two keys, returning <0, 0, or >0 like bytes.Compare.
type Comparator func(a, b Key) int

// ByteOrder compares keys by their raw byte contents. It is the default
// comparator and is exact for keys produced by Int64Key.
func ByteOrder(a, b Key) int {
	return bytes.Compare(a[:], b[:])
}

// Int64Key encodes v as a Key whose byte order matches its numeric
// order: the sign bit is flipped before a big-endian encode so that
// negative values sort before positive ones under plain byte comparison.
func Int64Key(v int64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[:], uint64(v)^(1<<63))
	return k
}

// Int64 decodes a Key produced by Int64Key back into a signed integer.
func (k Key) Int64() int64 {
	return int64(binary.BigEndian.Uint64(k[:]) ^ (1 << 63))
}

// RID (record identifier) is the value a leaf entry maps a key to: the
// page holding the record and its slot within that page. The tree never
// interprets a RID beyond storing and returning it.
type RID struct {
	PageID page.ID
	Slot   uint32
}

const ridSize = 4 + 4 // page.ID (int32) + Slot (uint32)

func encodeRID(r RID, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.PageID))
	binary.LittleEndian.PutUint32(buf[4:8], r.Slot)
}

func decodeRID(buf []byte) RID {
	return RID{
		PageID: page.ID(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		Slot:   binary.LittleEndian.Uint32(buf[4:8]),
	}
}

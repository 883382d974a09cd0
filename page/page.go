// Package page defines the constants shared by every component that reads
// or writes a raw 4096-byte page: the page size, the page id type, and the
// checksum used to detect a torn or corrupted page on read.
package page

import "github.com/cespare/xxhash/v2"

// Size is the fixed size of every page on disk and in a buffer pool frame.
const Size = 4096

// TrailerSize is the width of the checksum disk.Manager stamps into the
// last bytes of every page on write and verifies on read. Node layouts
// reserve it off the tail of the page body, not the header, so the
// checksum covers the whole page including the entry array — not just
// the header fields that precede it.
const TrailerSize = 8

// ID identifies a page within a single index file. It is a 32-bit value,
// matching the width the teaching systems this is modeled on use for
// page_id_t, so a page header's id field fits the 24-byte budget the tree
// page layout reserves for it.
type ID int32

// InvalidID is returned by allocation and lookup failures; no real page
// is ever assigned this id.
const InvalidID ID = -1

// Type distinguishes the kind of node or record stored in a page body.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInternal
	TypeLeaf
	TypeMeta
)

// Checksum computes the integrity digest stamped into a page's trailer
// (its last TrailerSize bytes) and verified on every read. xxhash is already a dependency (pulled in
// transitively by the victim cache); reusing it here means the checksum
// costs a new field, not a new dependency.
func Checksum(body []byte) uint64 {
	return xxhash.Sum64(body)
}

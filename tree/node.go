// Package tree implements a concurrent, disk-backed B+-tree index: the
// fixed node page layout (this file, internal.go, leaf.go) and the
// latch-crabbing engine that descends, splits, and merges it (bptree.go,
// context.go, iterator.go).
//
// Every node lives in exactly one buffer pool frame, and every accessor
// below reads or writes the frame's bytes directly — there is no
// separate in-memory struct that gets encoded before a flush, the same
// way the page this is modeled on overlays its header directly onto the
// raw page buffer.
package tree

import (
	"encoding/binary"

	"coredb/page"
)

// Shared 24-byte header, identical for internal and leaf nodes:
//
//	offset 0:  page_type      uint8
//	offset 1:  reserved       3 bytes
//	offset 4:  lsn            uint64
//	offset 12: size           uint16
//	offset 14: max_size       uint16
//	offset 16: parent_page_id int32
//	offset 20: page_id       int32
//
// followed, for leaf nodes only, by a 4-byte next_page_id. The entry
// array follows immediately after. disk.Manager reserves the last
// page.TrailerSize bytes of the page for a checksum over everything
// that precedes it, so a node's usable body is page.Size-page.TrailerSize
// bytes wide, not page.Size.
const (
	offPageType = 0
	offLSN      = 4
	offSize     = 12
	offMaxSize  = 14
	offParentID = 16
	offPageID   = 20
	headerSize  = 24

	// internalBodyOffset and leafBodyOffset are where each node kind's
	// (key, value) array begins, after the shared header and (leaf
	// only) next_page_id.
	internalBodyOffset = headerSize
	leafBodyOffset      = headerSize + 4
)

func pageType(buf []byte) page.Type { return page.Type(buf[offPageType]) }
func setPageType(buf []byte, t page.Type) { buf[offPageType] = byte(t) }

func size(buf []byte) int    { return int(binary.LittleEndian.Uint16(buf[offSize:])) }
func setSize(buf []byte, n int) { binary.LittleEndian.PutUint16(buf[offSize:], uint16(n)) }

func maxSize(buf []byte) int       { return int(binary.LittleEndian.Uint16(buf[offMaxSize:])) }
func setMaxSize(buf []byte, n int) { binary.LittleEndian.PutUint16(buf[offMaxSize:], uint16(n)) }

func lsn(buf []byte) uint64       { return binary.LittleEndian.Uint64(buf[offLSN:]) }
func setLSN(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf[offLSN:], v) }

func parentPageID(buf []byte) page.ID {
	return page.ID(int32(binary.LittleEndian.Uint32(buf[offParentID:])))
}
func setParentPageID(buf []byte, id page.ID) {
	binary.LittleEndian.PutUint32(buf[offParentID:], uint32(id))
}

func pageID(buf []byte) page.ID {
	return page.ID(int32(binary.LittleEndian.Uint32(buf[offPageID:])))
}
func setPageID(buf []byte, id page.ID) {
	binary.LittleEndian.PutUint32(buf[offPageID:], uint32(id))
}

// isRoot reports whether buf has no parent — the convention a root page
// uses instead of a separate boolean flag, mirroring how a root's parent
// pointer is simply invalid.
func isRoot(buf []byte) bool { return parentPageID(buf) == page.InvalidID }

// isFull reports whether a node has exceeded its maximum occupancy and
// must split. A node is allowed to transiently hold one entry beyond
// MaxSize between an insert and the split that follows it — see the one
// slot of headroom DefaultInternalMaxSize/DefaultLeafMaxSize reserve
// below — so fullness is a strict inequality, not >=.
func isFull(buf []byte) bool { return size(buf) > maxSize(buf) }

// DefaultInternalMaxSize and DefaultLeafMaxSize are the node capacities
// used when a tree is opened without an explicit WithLeafMaxSize/
// WithInternalMaxSize override. Each reserves one slot of headroom below
// the page's true physical capacity, so an insert that tips a node over
// MaxSize can still be written before the resulting split moves half the
// entries out — the node is never asked to hold more than its page can
// physically store. Tests typically override these with much smaller
// values so a split or merge can be exercised without inserting
// thousands of keys.
func DefaultInternalMaxSize() int {
	return (page.Size-page.TrailerSize-internalBodyOffset)/internalEntrySize - 1
}

func DefaultLeafMaxSize() int {
	return (page.Size-page.TrailerSize-leafBodyOffset)/leafEntrySize - 1
}

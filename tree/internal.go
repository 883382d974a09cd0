package tree

import (
	"coredb/logmgr"
	"coredb/page"
)

// internalEntrySize is the width of one (key, child page id) slot.
const internalEntrySize = KeySize + 4

// InternalNode views a frame's bytes as an internal tree node: an array
// of (key, child page id) pairs where, by convention, the key at index 0
// is a dummy — every real separator key lives at index i>=1 and bounds
// the subtree rooted at ValueAt(i) from below.
type InternalNode struct {
	buf []byte
}

// NewInternalNode wraps buf (a frame's raw page bytes) as an InternalNode
// view. It does not touch the bytes; call Init on a freshly allocated
// page before using it.
func NewInternalNode(buf []byte) InternalNode { return InternalNode{buf} }

// Init formats buf as an empty internal node.
func (n InternalNode) Init(id, parent page.ID, max int) {
	setPageType(n.buf, page.TypeInternal)
	setSize(n.buf, 0)
	setMaxSize(n.buf, max)
	setLSN(n.buf, logmgr.InvalidLSN)
	setParentPageID(n.buf, parent)
	setPageID(n.buf, id)
}

func (n InternalNode) Size() int           { return size(n.buf) }
func (n InternalNode) SetSize(s int)       { setSize(n.buf, s) }
func (n InternalNode) MaxSize() int        { return maxSize(n.buf) }
func (n InternalNode) PageID() page.ID     { return pageID(n.buf) }
func (n InternalNode) ParentPageID() page.ID { return parentPageID(n.buf) }
func (n InternalNode) SetParentPageID(id page.ID) { setParentPageID(n.buf, id) }
func (n InternalNode) IsRoot() bool        { return isRoot(n.buf) }
func (n InternalNode) IsFull() bool        { return isFull(n.buf) }

// MinSize is the fewest children an internal node may hold before it
// must borrow or merge; the root is exempt (enforced by callers, not
// here — a layout-only view has no way to know it is the root's frame).
func (n InternalNode) MinSize() int { return (n.MaxSize() + 1) / 2 }

func (n InternalNode) entryOffset(i int) int {
	return internalBodyOffset + i*internalEntrySize
}

func (n InternalNode) KeyAt(i int) Key {
	var k Key
	copy(k[:], n.buf[n.entryOffset(i):n.entryOffset(i)+KeySize])
	return k
}

func (n InternalNode) SetKeyAt(i int, k Key) {
	copy(n.buf[n.entryOffset(i):], k[:])
}

func (n InternalNode) ValueAt(i int) page.ID {
	off := n.entryOffset(i) + KeySize
	return page.ID(int32(le32(n.buf[off:])))
}

func (n InternalNode) SetValueAt(i int, id page.ID) {
	off := n.entryOffset(i) + KeySize
	putLE32(n.buf[off:], uint32(id))
}

func (n InternalNode) setEntry(i int, k Key, v page.ID) {
	n.SetKeyAt(i, k)
	n.SetValueAt(i, v)
}

// Lookup returns the child page id to descend into for key: the last
// entry whose key is <= key (index 0's dummy key always satisfies this
// trivially, so Lookup never fails for a non-empty node).
func (n InternalNode) Lookup(key Key, cmp Comparator) page.ID {
	sz := n.Size()
	idx := 0
	for i := 1; i < sz; i++ {
		if cmp(n.KeyAt(i), key) <= 0 {
			idx = i
		} else {
			break
		}
	}
	return n.ValueAt(idx)
}

// ValueIndex returns the slot holding child, or -1.
func (n InternalNode) ValueIndex(child page.ID) int {
	for i := 0; i < n.Size(); i++ {
		if n.ValueAt(i) == child {
			return i
		}
	}
	return -1
}

// PopulateNewRoot formats this (empty) node as a fresh root with two
// children separated by key.
func (n InternalNode) PopulateNewRoot(left page.ID, key Key, right page.ID) {
	n.setEntry(0, Key{}, left)
	n.setEntry(1, key, right)
	n.SetSize(2)
}

// InsertAfter inserts (key, newChild) immediately after oldChild's slot,
// used when a child splits and its right half needs a place in the
// parent next to the original.
func (n InternalNode) InsertAfter(oldChild page.ID, key Key, newChild page.ID) {
	idx := n.ValueIndex(oldChild)
	n.insertEntryAt(idx+1, key, newChild)
}

func (n InternalNode) insertEntryAt(i int, k Key, v page.ID) {
	sz := n.Size()
	for j := sz; j > i; j-- {
		n.setEntry(j, n.KeyAt(j-1), n.ValueAt(j-1))
	}
	n.setEntry(i, k, v)
	n.SetSize(sz + 1)
}

// RemoveAt deletes the entry at index i.
func (n InternalNode) RemoveAt(i int) {
	sz := n.Size()
	for j := i; j < sz-1; j++ {
		n.setEntry(j, n.KeyAt(j+1), n.ValueAt(j+1))
	}
	n.SetSize(sz - 1)
}

// RemoveAndReturnOnlyChild is used by AdjustRoot when the root internal
// node has been reduced to a single child, which then becomes the new
// root.
func (n InternalNode) RemoveAndReturnOnlyChild() page.ID {
	child := n.ValueAt(0)
	n.SetSize(0)
	return child
}

// MoveHalfTo moves this node's upper half of entries into recipient (an
// initialized, empty internal node) and returns the key that separated
// the two halves — the caller promotes it into the parent.
func (n InternalNode) MoveHalfTo(recipient InternalNode) Key {
	total := n.Size()
	mid := total / 2
	sep := n.KeyAt(mid)
	for i := mid; i < total; i++ {
		recipient.setEntry(i-mid, n.KeyAt(i), n.ValueAt(i))
	}
	recipient.SetSize(total - mid)
	n.SetSize(mid)
	return sep
}

// MoveAllTo appends all of this node's entries onto the end of
// recipient, used when merging two underfull siblings. middleKey becomes
// the separator key for the first moved entry (whose key in n was a
// dummy).
func (n InternalNode) MoveAllTo(recipient InternalNode, middleKey Key) {
	base := recipient.Size()
	for i := 0; i < n.Size(); i++ {
		k := n.KeyAt(i)
		if i == 0 {
			k = middleKey
		}
		recipient.setEntry(base+i, k, n.ValueAt(i))
	}
	recipient.SetSize(base + n.Size())
	n.SetSize(0)
}

// MoveFirstToEndOf moves this node's first child onto the end of
// recipient (its left sibling), used to redistribute from a right
// sibling with a surplus. middleKey is the current separator between
// recipient and n; it becomes the key of the moved entry. It returns the
// new separator key between recipient and n after the move.
func (n InternalNode) MoveFirstToEndOf(recipient InternalNode, middleKey Key) Key {
	movedValue := n.ValueAt(0)
	newSeparator := n.KeyAt(1)
	recipient.setEntry(recipient.Size(), middleKey, movedValue)
	recipient.SetSize(recipient.Size() + 1)
	n.RemoveAt(0)
	return newSeparator
}

// MoveLastToFrontOf moves this node's last child onto the front of
// recipient (its right sibling), used to redistribute from a left
// sibling with a surplus. middleKey is the current separator between n
// and recipient. It returns the new separator key between n and
// recipient after the move.
func (n InternalNode) MoveLastToFrontOf(recipient InternalNode, middleKey Key) Key {
	last := n.Size() - 1
	movedValue := n.ValueAt(last)
	newSeparator := n.KeyAt(last)
	n.RemoveAt(last)

	recipient.insertEntryAt(0, Key{}, movedValue)
	recipient.SetKeyAt(1, middleKey)
	return newSeparator
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

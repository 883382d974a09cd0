package tree

import (
	"coredb/logmgr"
	"coredb/page"
)

// leafEntrySize is the width of one (key, RID) slot.
const leafEntrySize = KeySize + ridSize

// nextPageIDOffset is where a leaf's forward-scan pointer lives, right
// after the shared header.
const nextPageIDOffset = headerSize

// LeafNode views a frame's bytes as a leaf tree node: a sorted array of
// (key, RID) pairs plus a pointer chaining leaves left-to-right for
// range scans.
type LeafNode struct {
	buf []byte
}

// NewLeafNode wraps buf as a LeafNode view.
func NewLeafNode(buf []byte) LeafNode { return LeafNode{buf} }

// Init formats buf as an empty leaf node with no next sibling.
func (n LeafNode) Init(id, parent page.ID, max int) {
	setPageType(n.buf, page.TypeLeaf)
	setSize(n.buf, 0)
	setMaxSize(n.buf, max)
	setLSN(n.buf, logmgr.InvalidLSN)
	setParentPageID(n.buf, parent)
	setPageID(n.buf, id)
	n.SetNextPageID(page.InvalidID)
}

func (n LeafNode) Size() int                 { return size(n.buf) }
func (n LeafNode) SetSize(s int)             { setSize(n.buf, s) }
func (n LeafNode) MaxSize() int              { return maxSize(n.buf) }
func (n LeafNode) PageID() page.ID           { return pageID(n.buf) }
func (n LeafNode) ParentPageID() page.ID     { return parentPageID(n.buf) }
func (n LeafNode) SetParentPageID(id page.ID) { setParentPageID(n.buf, id) }
func (n LeafNode) IsRoot() bool              { return isRoot(n.buf) }
func (n LeafNode) IsFull() bool              { return isFull(n.buf) }

// MinSize is the fewest entries a leaf may hold before it must borrow or
// merge; the root is exempt.
func (n LeafNode) MinSize() int { return n.MaxSize() / 2 }

func (n LeafNode) NextPageID() page.ID {
	return page.ID(int32(le32(n.buf[nextPageIDOffset:])))
}

func (n LeafNode) SetNextPageID(id page.ID) {
	putLE32(n.buf[nextPageIDOffset:], uint32(id))
}

func (n LeafNode) entryOffset(i int) int {
	return leafBodyOffset + i*leafEntrySize
}

func (n LeafNode) KeyAt(i int) Key {
	var k Key
	copy(k[:], n.buf[n.entryOffset(i):n.entryOffset(i)+KeySize])
	return k
}

func (n LeafNode) SetKeyAt(i int, k Key) {
	copy(n.buf[n.entryOffset(i):], k[:])
}

func (n LeafNode) ValueAt(i int) RID {
	return decodeRID(n.buf[n.entryOffset(i)+KeySize:])
}

func (n LeafNode) SetValueAt(i int, r RID) {
	encodeRID(r, n.buf[n.entryOffset(i)+KeySize:])
}

func (n LeafNode) setEntry(i int, k Key, v RID) {
	n.SetKeyAt(i, k)
	n.SetValueAt(i, v)
}

// KeyIndex returns the index of key, or -1 if not present.
func (n LeafNode) KeyIndex(key Key, cmp Comparator) int {
	lo, hi := 0, n.Size()
	for lo < hi {
		mid := lo + (hi-lo)/2
		if cmp(n.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < n.Size() && cmp(n.KeyAt(lo), key) == 0 {
		return lo
	}
	return -1
}

// Lookup returns the RID stored for key, if present.
func (n LeafNode) Lookup(key Key, cmp Comparator) (RID, bool) {
	idx := n.KeyIndex(key, cmp)
	if idx < 0 {
		return RID{}, false
	}
	return n.ValueAt(idx), true
}

// Insert adds (key, value) in sorted position. It reports false without
// modifying the node if key is already present — this index does not
// support duplicate keys.
func (n LeafNode) Insert(key Key, value RID, cmp Comparator) bool {
	lo, hi := 0, n.Size()
	for lo < hi {
		mid := lo + (hi-lo)/2
		if cmp(n.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < n.Size() && cmp(n.KeyAt(lo), key) == 0 {
		return false
	}

	sz := n.Size()
	for j := sz; j > lo; j-- {
		n.setEntry(j, n.KeyAt(j-1), n.ValueAt(j-1))
	}
	n.setEntry(lo, key, value)
	n.SetSize(sz + 1)
	return true
}

// Remove deletes key's entry, if present, and reports whether it was
// found.
func (n LeafNode) Remove(key Key, cmp Comparator) bool {
	idx := n.KeyIndex(key, cmp)
	if idx < 0 {
		return false
	}
	sz := n.Size()
	for j := idx; j < sz-1; j++ {
		n.setEntry(j, n.KeyAt(j+1), n.ValueAt(j+1))
	}
	n.SetSize(sz - 1)
	return true
}

// MoveHalfTo moves this leaf's upper half of entries into recipient (an
// initialized, empty leaf). The caller is responsible for relinking
// NextPageID pointers on both leaves afterward.
func (n LeafNode) MoveHalfTo(recipient LeafNode) {
	total := n.Size()
	mid := total / 2
	for i := mid; i < total; i++ {
		recipient.setEntry(i-mid, n.KeyAt(i), n.ValueAt(i))
	}
	recipient.SetSize(total - mid)
	n.SetSize(mid)
}

// MoveAllTo appends all of this leaf's entries onto the end of
// recipient, used when merging two underfull siblings. The caller
// relinks NextPageID afterward.
func (n LeafNode) MoveAllTo(recipient LeafNode) {
	base := recipient.Size()
	for i := 0; i < n.Size(); i++ {
		recipient.setEntry(base+i, n.KeyAt(i), n.ValueAt(i))
	}
	recipient.SetSize(base + n.Size())
	n.SetSize(0)
}

// MoveFirstToEndOf moves this leaf's first entry onto the end of
// recipient (its left sibling), used to redistribute from a right
// sibling with a surplus.
func (n LeafNode) MoveFirstToEndOf(recipient LeafNode) {
	recipient.setEntry(recipient.Size(), n.KeyAt(0), n.ValueAt(0))
	recipient.SetSize(recipient.Size() + 1)
	sz := n.Size()
	for j := 0; j < sz-1; j++ {
		n.setEntry(j, n.KeyAt(j+1), n.ValueAt(j+1))
	}
	n.SetSize(sz - 1)
}

// MoveLastToFrontOf moves this leaf's last entry onto the front of
// recipient (its right sibling), used to redistribute from a left
// sibling with a surplus.
func (n LeafNode) MoveLastToFrontOf(recipient LeafNode) {
	last := n.Size() - 1
	k, v := n.KeyAt(last), n.ValueAt(last)
	n.SetSize(last)

	sz := recipient.Size()
	for j := sz; j > 0; j-- {
		recipient.setEntry(j, recipient.KeyAt(j-1), recipient.ValueAt(j-1))
	}
	recipient.setEntry(0, k, v)
	recipient.SetSize(sz + 1)
}

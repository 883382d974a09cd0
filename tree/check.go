package tree

import (
	"fmt"

	"coredb/page"
)

// Check walks the whole tree and verifies these structural invariants:
// every leaf at the same depth, keys strictly increasing within each
// leaf, separator keys strictly increasing within each internal node,
// at least MinSize entries in every non-root node, and parent pointers
// matching the actual parent-child relationship. It does not compare a
// subtree's keys against the separators that bound it, and it does not
// check node sizes against MaxSize. It mirrors the debug graph/print
// walkers the course project this is modeled on ships for exactly this
// purpose; tests and cmd/inspect's -check flag call it, no Tree
// operation does.
func (t *Tree) Check() error {
	if t.IsEmpty() {
		return nil
	}

	leafDepth := -1
	return t.checkNode(t.getRoot(), page.InvalidID, 0, &leafDepth)
}

func (t *Tree) checkNode(id, expectedParent page.ID, depth int, leafDepth *int) error {
	f, err := t.pool.FetchPage(id)
	if err != nil {
		return fmt.Errorf("tree.Check: fetch %d: %w", id, err)
	}
	defer t.pool.UnpinPage(id, false)
	buf := f.Data()

	if parentPageID(buf) != expectedParent {
		return fmt.Errorf("tree.Check: page %d has parent %d, expected %d", id, parentPageID(buf), expectedParent)
	}

	if pageType(buf) == page.TypeLeaf {
		leaf := NewLeafNode(buf)
		if *leafDepth == -1 {
			*leafDepth = depth
		} else if *leafDepth != depth {
			return fmt.Errorf("tree.Check: leaf %d at depth %d, expected %d", id, depth, *leafDepth)
		}
		if !leaf.IsRoot() && leaf.Size() < leaf.MinSize() {
			return fmt.Errorf("tree.Check: leaf %d underfull: size=%d min=%d", id, leaf.Size(), leaf.MinSize())
		}
		for i := 1; i < leaf.Size(); i++ {
			if t.cmp(leaf.KeyAt(i-1), leaf.KeyAt(i)) >= 0 {
				return fmt.Errorf("tree.Check: leaf %d keys not strictly increasing at %d", id, i)
			}
		}
		return nil
	}

	internal := NewInternalNode(buf)
	if !internal.IsRoot() && internal.Size() < internal.MinSize() {
		return fmt.Errorf("tree.Check: internal %d underfull: size=%d min=%d", id, internal.Size(), internal.MinSize())
	}
	for i := 2; i < internal.Size(); i++ {
		if t.cmp(internal.KeyAt(i-1), internal.KeyAt(i)) >= 0 {
			return fmt.Errorf("tree.Check: internal %d separator keys not strictly increasing at %d", id, i)
		}
	}

	children := make([]page.ID, internal.Size())
	for i := range children {
		children[i] = internal.ValueAt(i)
	}
	for _, child := range children {
		if err := t.checkNode(child, id, depth+1, leafDepth); err != nil {
			return err
		}
	}
	return nil
}

package tree

import (
	"fmt"

	"coredb/page"
	"coredb/stats"
)

// Stats walks the tree and summarizes its shape, for cmd/inspect.
func (t *Tree) Stats() (stats.TreeStats, error) {
	if t.IsEmpty() {
		return stats.TreeStats{}, nil
	}
	var s stats.TreeStats
	if err := t.statsNode(t.getRoot(), 1, &s); err != nil {
		return stats.TreeStats{}, fmt.Errorf("tree.Stats: %w", err)
	}
	return s, nil
}

func (t *Tree) statsNode(id page.ID, depth int, s *stats.TreeStats) error {
	f, err := t.pool.FetchPage(id)
	if err != nil {
		return err
	}
	defer t.pool.UnpinPage(id, false)
	buf := f.Data()

	if depth > s.Height {
		s.Height = depth
	}

	if pageType(buf) == page.TypeLeaf {
		leaf := NewLeafNode(buf)
		s.LeafCount++
		s.EntryCount += leaf.Size()
		return nil
	}

	internal := NewInternalNode(buf)
	s.InternalCount++
	children := make([]page.ID, internal.Size())
	for i := range children {
		children[i] = internal.ValueAt(i)
	}
	for _, child := range children {
		if err := t.statsNode(child, depth+1, s); err != nil {
			return err
		}
	}
	return nil
}

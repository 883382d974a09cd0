// Package stats renders buffer pool and tree statistics for humans,
// wired into cmd/inspect.
package stats

import "github.com/dustin/go-humanize"

// PoolStats summarizes a buffer.Pool's frame table at a point in time.
type PoolStats struct {
	Capacity       int
	FramesInUse    int
	PinnedFrames   int
	DirtyFrames    int
	VictimHits     uint64
	VictimMisses   uint64
}

func (s PoolStats) String() string {
	return humanize.Comma(int64(s.FramesInUse)) + "/" + humanize.Comma(int64(s.Capacity)) +
		" frames in use, " + humanize.Comma(int64(s.PinnedFrames)) + " pinned, " +
		humanize.Comma(int64(s.DirtyFrames)) + " dirty, victim-cache " +
		humanize.Comma(int64(s.VictimHits)) + " hits/" + humanize.Comma(int64(s.VictimMisses)) + " misses"
}

// TreeStats summarizes a tree.Tree's shape.
type TreeStats struct {
	Height      int
	LeafCount   int
	InternalCount int
	EntryCount  int
}

func (s TreeStats) String() string {
	return humanize.Comma(int64(s.EntryCount)) + " entries across " +
		humanize.Comma(int64(s.LeafCount)) + " leaves and " +
		humanize.Comma(int64(s.InternalCount)) + " internal nodes, height " +
		humanize.Comma(int64(s.Height))
}

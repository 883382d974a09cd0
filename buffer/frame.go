package buffer

import (
	"sync"

	"coredb/page"
)

// Frame is one slot of the buffer pool's frame table: a page-sized byte
// buffer plus the metadata the pool needs to track it (pin count, dirty
// bit) and the reader/writer latch callers use to coordinate concurrent
// access to the page's contents. The latch is distinct from the pool's
// own mutex: the pool's mutex protects the frame table itself (which
// page lives in which frame, pin counts), the latch protects the bytes
// of the page while a caller — typically the tree engine doing latch
// crabbing — reads or mutates them.
type Frame struct {
	data     [page.Size]byte
	pageID   page.ID
	pinCount int
	dirty    bool
	latch    sync.RWMutex
}

// Data returns the frame's raw page bytes. The caller must hold the
// frame's latch (RLatch for reads, WLatch for writes) before touching it.
func (f *Frame) Data() []byte { return f.data[:] }

// PageID reports which page currently occupies this frame.
func (f *Frame) PageID() page.ID { return f.pageID }

// RLatch/RUnlatch and WLatch/WUnlatch guard concurrent access to the
// frame's bytes independently of the pool's frame-table mutex.
func (f *Frame) RLatch()   { f.latch.RLock() }
func (f *Frame) RUnlatch() { f.latch.RUnlock() }
func (f *Frame) WLatch()   { f.latch.Lock() }
func (f *Frame) WUnlatch() { f.latch.Unlock() }

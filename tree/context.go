package tree

import (
	"runtime"

	"coredb/buffer"
	"coredb/page"
)

type latchMode int

const (
	latchRead latchMode = iota
	latchWrite
)

// descentContext is the thread-local scratchpad a single tree operation
// uses to track every page it has pinned and every frame latch it holds
// during a root-to-leaf descent: a queue of pinned page ids (pin order),
// a queue of latched frames (latch order), and a map from page id to
// frame for quick lookup — plus a queue of pages to delete once the
// descent has fully unwound. Go has no implicit per-goroutine state the
// way a thread-local would give the teacher's code, so this is passed
// explicitly through every recursive call instead; Close is deferred at
// the top of every public Tree method to guarantee everything pinned or
// latched gets released no matter which return path is taken.
type descentContext struct {
	pool *buffer.Pool
	mode latchMode

	pinned  []page.ID
	latched []*buffer.Frame
	frames  map[page.ID]*buffer.Frame
	dirty   map[page.ID]bool
	deleted []page.ID
}

func newDescentContext(pool *buffer.Pool, mode latchMode) *descentContext {
	return &descentContext{
		pool:   pool,
		mode:   mode,
		frames: make(map[page.ID]*buffer.Frame),
		dirty:  make(map[page.ID]bool),
	}
}

// fetch pins id, latches its frame according to the context's mode, and
// records both for later release.
func (c *descentContext) fetch(id page.ID) (*buffer.Frame, error) {
	f, err := c.pool.FetchPage(id)
	if err != nil {
		return nil, err
	}
	if c.mode == latchWrite {
		f.WLatch()
	} else {
		f.RLatch()
	}
	c.pinned = append(c.pinned, id)
	c.latched = append(c.latched, f)
	c.frames[id] = f
	return f, nil
}

// data returns the frame bytes for a page already fetched into this
// context.
func (c *descentContext) data(id page.ID) []byte {
	return c.frames[id].Data()
}

// markDirty records that id must be flushed with its dirty bit set when
// released.
func (c *descentContext) markDirty(id page.ID) {
	c.dirty[id] = true
}

func (c *descentContext) unlatch(f *buffer.Frame) {
	if c.mode == latchWrite {
		f.WUnlatch()
	} else {
		f.RUnlatch()
	}
}

// releaseAncestors drops every pinned/latched page except the most
// recently fetched one — the latch-crabbing move of giving up ancestor
// latches once the newest node in the chain is known not to need them.
func (c *descentContext) releaseAncestors() {
	for len(c.pinned) > 1 {
		id, f := c.pinned[0], c.latched[0]
		c.pinned = c.pinned[1:]
		c.latched = c.latched[1:]
		c.unlatch(f)
		c.pool.UnpinPage(id, c.dirty[id])
		delete(c.frames, id)
		delete(c.dirty, id)
	}
}

// queueDeletion records a page to be removed from the buffer pool once
// the descent has released every latch — DeletePage would otherwise
// refuse a page this context still has pinned.
func (c *descentContext) queueDeletion(id page.ID) {
	c.deleted = append(c.deleted, id)
}

// Close unwinds the scratchpad: every remaining pin/latch is released in
// reverse acquisition order (most recently fetched first), then every
// queued deletion runs. Deferred at the top of every public Tree
// operation so a panic or an early return never leaks a latch.
func (c *descentContext) Close() {
	for len(c.pinned) > 0 {
		n := len(c.pinned) - 1
		id, f := c.pinned[n], c.latched[n]
		c.pinned = c.pinned[:n]
		c.latched = c.latched[:n]
		c.unlatch(f)
		c.pool.UnpinPage(id, c.dirty[id])
	}
	for _, id := range c.deleted {
		// DeletePage refuses a still-pinned page; a concurrent reader
		// descending this subtree may not have unpinned it yet, so spin
		// until it does rather than leak the page.
		for {
			ok, _ := c.pool.DeletePage(id)
			if ok {
				break
			}
			runtime.Gosched()
		}
	}
	c.deleted = nil
}

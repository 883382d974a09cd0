// Package buffer implements the buffer pool manager: a fixed-size table
// of page frames backed by a disk manager, with clock-based replacement
// of unpinned frames and a bounded victim byte cache that shortcuts a
// disk read for a page evicted moments ago.
package buffer

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"coredb/disk"
	"coredb/logging"
	"coredb/page"
	"coredb/replacer"
	"coredb/stats"
)

// ErrPoolExhausted is returned when every frame is pinned and no frame
// can be reused for a new or fetched page.
var ErrPoolExhausted = fmt.Errorf("buffer: pool exhausted, all frames pinned")

const defaultVictimMaxCost = 64 * page.Size

// Pool is the buffer pool manager: FetchPage/NewPage/UnpinPage/FlushPage/
// DeletePage/FlushAllPages, exactly the operations a tree engine needs to
// treat disk pages as if they were always resident in memory.
type Pool struct {
	mu         sync.Mutex
	frames     []*Frame
	frameTable map[page.ID]int // page id -> frame index, for frames in use
	freeList   []int           // frame indices not currently holding a page
	replacer   *replacer.Clock
	disk       *disk.Manager
	victims    *ristretto.Cache[page.ID, []byte]
	logger     logging.Logger
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	logger        logging.Logger
	victimMaxCost int64
}

// WithLogger attaches a logger for eviction events.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithVictimCacheSize sets the max cost (bytes) of the victim byte
// cache. Defaults to 64 pages worth of bytes.
func WithVictimCacheSize(maxCost int64) Option {
	return func(o *options) { o.victimMaxCost = maxCost }
}

// NewPool creates a buffer pool with capacity frames backed by d.
func NewPool(capacity int, d *disk.Manager, opts ...Option) (*Pool, error) {
	o := &options{logger: logging.Discard, victimMaxCost: defaultVictimMaxCost}
	for _, opt := range opts {
		opt(o)
	}

	p := &Pool{
		frames:     make([]*Frame, capacity),
		frameTable: make(map[page.ID]int, capacity),
		freeList:   make([]int, capacity),
		replacer:   replacer.New(capacity, replacer.WithLogger(o.logger)),
		disk:       d,
		logger:     o.logger,
	}
	for i := 0; i < capacity; i++ {
		p.frames[i] = &Frame{}
		p.freeList[i] = capacity - 1 - i
	}

	cache, err := ristretto.NewCache(&ristretto.Config[page.ID, []byte]{
		NumCounters: int64(10 * capacity),
		MaxCost:     o.victimMaxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer.NewPool: victim cache: %w", err)
	}
	p.victims = cache

	return p, nil
}

// FetchPage pins and returns the frame holding pageID, loading it from
// the victim cache or disk if it is not already resident.
func (p *Pool) FetchPage(id page.ID) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.frameTable[id]; ok {
		f := p.frames[idx]
		f.pinCount++
		p.replacer.Pin(idx)
		return f, nil
	}

	idx, err := p.findFreeFrame()
	if err != nil {
		return nil, fmt.Errorf("buffer.FetchPage(%d): %w", id, err)
	}
	f := p.frames[idx]

	if cached, ok := p.victims.Get(id); ok {
		copy(f.data[:], cached)
	} else if err := p.disk.ReadPage(id, f.data[:]); err != nil {
		p.freeList = append(p.freeList, idx)
		return nil, fmt.Errorf("buffer.FetchPage(%d): %w", id, err)
	}

	f.pageID = id
	f.dirty = false
	f.pinCount = 1
	p.frameTable[id] = idx
	p.replacer.Pin(idx)

	return f, nil
}

// NewPage allocates a fresh page id on disk, pins a frame for it, and
// returns both. The frame's bytes are zeroed; the caller is responsible
// for initializing a page header into it.
func (p *Pool) NewPage() (*Frame, page.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, err := p.findFreeFrame()
	if err != nil {
		return nil, page.InvalidID, fmt.Errorf("buffer.NewPage: %w", err)
	}

	id := p.disk.AllocatePage()
	f := p.frames[idx]
	for i := range f.data {
		f.data[i] = 0
	}
	f.pageID = id
	f.dirty = true
	f.pinCount = 1
	p.frameTable[id] = idx
	p.replacer.Pin(idx)

	return f, id, nil
}

// UnpinPage decrements pageID's pin count, marking it dirty if isDirty.
// Once the pin count reaches zero the frame becomes eligible for
// eviction. A page not resident at all is a no-op reported as true.
func (p *Pool) UnpinPage(id page.ID, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.frameTable[id]
	if !ok {
		return true
	}
	f := p.frames[idx]
	if isDirty {
		f.dirty = true
	}
	if f.pinCount == 0 {
		return true
	}
	f.pinCount--
	if f.pinCount == 0 {
		p.replacer.Unpin(idx)
	}
	return true
}

// FlushPage writes pageID to disk if dirty.
func (p *Pool) FlushPage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(id)
}

func (p *Pool) flushLocked(id page.ID) error {
	idx, ok := p.frameTable[id]
	if !ok {
		return fmt.Errorf("buffer.FlushPage(%d): not resident", id)
	}
	f := p.frames[idx]
	if !f.dirty {
		return nil
	}
	if err := p.disk.WritePage(id, f.data[:]); err != nil {
		return fmt.Errorf("buffer.FlushPage(%d): %w", id, err)
	}
	f.dirty = false
	return nil
}

// FlushAllPages writes every dirty resident page to disk.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.frameTable {
		if err := p.flushLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage evicts pageID from the pool without writing it back,
// refusing if it is still pinned. It reports whether the page was
// removed. A page not resident at all still has its disk-side id
// deallocated before reporting success, matching the teacher's
// idempotent DeletePage.
func (p *Pool) DeletePage(id page.ID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.frameTable[id]
	if !ok {
		p.disk.DeallocatePage(id)
		return true, nil
	}
	f := p.frames[idx]
	if f.pinCount > 0 {
		return false, fmt.Errorf("buffer.DeletePage(%d): still pinned", id)
	}

	p.disk.DeallocatePage(id)
	delete(p.frameTable, id)
	f.pageID = page.InvalidID
	f.dirty = false
	p.replacer.Pin(idx)
	p.freeList = append(p.freeList, idx)
	p.logger.Info("buffer: page deleted", "page_id", id)
	return true, nil
}

// findFreeFrame returns an index into p.frames that the caller may
// repurpose, evicting via the clock replacer if the free list is empty.
// Must be called with p.mu held.
func (p *Pool) findFreeFrame() (int, error) {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx, nil
	}

	idx, ok := p.replacer.Victim()
	if !ok {
		return 0, ErrPoolExhausted
	}

	f := p.frames[idx]
	if f.dirty {
		if err := p.disk.WritePage(f.pageID, f.data[:]); err != nil {
			return 0, fmt.Errorf("findFreeFrame: flush evicted page %d: %w", f.pageID, err)
		}
	}
	victimBytes := make([]byte, page.Size)
	copy(victimBytes, f.data[:])
	p.victims.Set(f.pageID, victimBytes, page.Size)

	p.logger.Info("buffer: evicted page", "page_id", f.pageID, "dirty", f.dirty)
	delete(p.frameTable, f.pageID)
	f.dirty = false
	return idx, nil
}

// Stats reports the pool's current occupancy and victim-cache hit rate.
func (p *Pool) Stats() stats.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := stats.PoolStats{
		Capacity:    len(p.frames),
		FramesInUse: len(p.frameTable),
	}
	for _, idx := range p.frameTable {
		f := p.frames[idx]
		if f.pinCount > 0 {
			s.PinnedFrames++
		}
		if f.dirty {
			s.DirtyFrames++
		}
	}
	if m := p.victims.Metrics; m != nil {
		s.VictimHits = m.Hits()
		s.VictimMisses = m.Misses()
	}
	return s
}

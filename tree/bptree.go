package tree

import (
	"errors"
	"fmt"
	"sync"

	"coredb/buffer"
	"coredb/disk"
	"coredb/logging"
	"coredb/logmgr"
	"coredb/page"
)

// ErrOutOfMemory mirrors the teaching system's OUT_OF_MEMORY condition:
// every frame in the buffer pool is pinned and a new page cannot be
// brought in to continue a split, merge, or initial allocation.
var ErrOutOfMemory = errors.New("tree: out of memory: buffer pool exhausted")

// Tree is a concurrent, disk-backed B+-tree index over fixed-size keys
// and record identifiers. Every operation descends via latch crabbing:
// a reader/writer latch is taken frame by frame, and ancestor latches
// are released as soon as the descent reaches a node proven safe for
// the operation, so unrelated operations on disjoint parts of the tree
// never block each other.
type Tree struct {
	// mu guards only the in-memory root page id, not the pages it
	// points to — those are protected by per-frame latches acquired
	// during descent.
	mu   sync.RWMutex
	root page.ID

	pool *buffer.Pool
	disk *disk.Manager
	log  *logmgr.Manager

	cmp         Comparator
	leafMax     int
	internalMax int
	logger      logging.Logger
}

// Option configures a Tree.
type Option func(*Tree)

// WithComparator overrides the default byte-order key comparator.
func WithComparator(cmp Comparator) Option { return func(t *Tree) { t.cmp = cmp } }

// WithLeafMaxSize overrides the computed default leaf capacity —
// typically set small in tests to exercise splits/merges cheaply.
func WithLeafMaxSize(n int) Option { return func(t *Tree) { t.leafMax = n } }

// WithInternalMaxSize overrides the computed default internal capacity.
func WithInternalMaxSize(n int) Option { return func(t *Tree) { t.internalMax = n } }

// WithLogger attaches a logger for root-change events (root created,
// grown, collapsed, or emptied); splits and merges below the root are
// not logged.
func WithLogger(l logging.Logger) Option { return func(t *Tree) { t.logger = l } }

// Open attaches a Tree to pool and d, restoring the persisted root page
// id (page.InvalidID for a brand new file).
func Open(pool *buffer.Pool, d *disk.Manager, opts ...Option) (*Tree, error) {
	t := &Tree{
		pool:        pool,
		disk:        d,
		log:         logmgr.New(),
		cmp:         ByteOrder,
		leafMax:     DefaultLeafMaxSize(),
		internalMax: DefaultInternalMaxSize(),
		logger:      logging.Discard,
	}
	for _, opt := range opts {
		opt(t)
	}

	root, err := d.ReadRootPageID()
	if err != nil {
		return nil, fmt.Errorf("tree.Open: %w", err)
	}
	t.root = root
	return t, nil
}

// IsEmpty reports whether the tree has no root page.
func (t *Tree) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root == page.InvalidID
}

func (t *Tree) getRoot() page.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// setRoot updates the in-memory and on-disk root page id.
func (t *Tree) setRoot(id page.ID) error {
	t.mu.Lock()
	t.root = id
	t.mu.Unlock()
	if err := t.disk.WriteRootPageID(id); err != nil {
		return fmt.Errorf("tree: persist root page id: %w", err)
	}
	return nil
}

// GetValue returns the RID stored for key, if present.
func (t *Tree) GetValue(key Key) (RID, bool, error) {
	if t.IsEmpty() {
		return RID{}, false, nil
	}

	ctx := newDescentContext(t.pool, latchRead)
	defer ctx.Close()

	leafID, err := t.findLeafPage(ctx, key, func(bool, []byte, bool) bool { return true })
	if err != nil {
		return RID{}, false, err
	}
	leaf := NewLeafNode(ctx.data(leafID))
	rid, ok := leaf.Lookup(key, t.cmp)
	return rid, ok, nil
}

// findLeafPage descends from the root to the leaf that would contain
// key, latching every node along the way according to ctx.mode and
// releasing ancestor latches once safe reports the current node does
// not need them held any longer. In read mode safe is ignored in
// practice (a caller always passes a function returning true, since a
// read never mutates anything and ancestor latches can always be
// dropped immediately).
func (t *Tree) findLeafPage(ctx *descentContext, key Key, safe func(isLeaf bool, buf []byte, isRootNode bool) bool) (page.ID, error) {
	root := t.getRoot()
	if root == page.InvalidID {
		return page.InvalidID, fmt.Errorf("tree: empty")
	}

	curID := root
	for {
		f, err := ctx.fetch(curID)
		if err != nil {
			return page.InvalidID, fmt.Errorf("tree: fetch %d: %w", curID, err)
		}
		if curID == root {
			// The root may have split or collapsed while this descent
			// waited for its latch; if so, start over from the new root.
			if current := t.getRoot(); current != root {
				ctx.Close()
				if current == page.InvalidID {
					return page.InvalidID, fmt.Errorf("tree: empty")
				}
				root, curID = current, current
				continue
			}
		}
		buf := f.Data()
		isLeafNode := pageType(buf) == page.TypeLeaf
		isRootNode := curID == root

		if safe(isLeafNode, buf, isRootNode) {
			ctx.releaseAncestors()
		}

		if isLeafNode {
			return curID, nil
		}
		curID = NewInternalNode(buf).Lookup(key, t.cmp)
	}
}

func (t *Tree) insertSafe(isLeaf bool, buf []byte, _ bool) bool {
	return size(buf) < maxSize(buf)
}

func (t *Tree) removeSafe(isLeaf bool, buf []byte, isRootNode bool) bool {
	if isRootNode {
		return true
	}
	if isLeaf {
		return size(buf) > (maxSize(buf) / 2)
	}
	return size(buf) > (maxSize(buf)+1)/2
}

// Insert adds (key, value) to the tree. It returns false without
// modifying anything if key is already present: this index does not
// support duplicate keys, and a duplicate Insert is a user error
// reported as false, not an error return.
func (t *Tree) Insert(key Key, value RID) (bool, error) {
	if created, err := t.maybeCreateRoot(key, value); err != nil {
		return false, err
	} else if created {
		return true, nil
	}

	ctx := newDescentContext(t.pool, latchWrite)
	defer ctx.Close()

	leafID, err := t.findLeafPage(ctx, key, t.insertSafe)
	if err != nil {
		return false, err
	}

	leaf := NewLeafNode(ctx.data(leafID))
	if !leaf.Insert(key, value, t.cmp) {
		return false, nil
	}
	ctx.markDirty(leafID)

	if !leaf.IsFull() {
		return true, nil
	}
	return true, t.splitLeaf(ctx, leaf)
}

// maybeCreateRoot handles the empty-tree case: allocating the first leaf
// and making it the root. It holds t.mu for the whole operation so two
// concurrent inserts into an empty tree cannot both create a root.
func (t *Tree) maybeCreateRoot(key Key, value RID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root != page.InvalidID {
		return false, nil
	}

	f, id, err := t.pool.NewPage()
	if err != nil {
		return false, fmt.Errorf("tree: create root: %w", ErrOutOfMemory)
	}
	leaf := NewLeafNode(f.Data())
	leaf.Init(id, page.InvalidID, t.leafMax)
	leaf.Insert(key, value, t.cmp)
	t.pool.UnpinPage(id, true)

	t.root = id
	if err := t.disk.WriteRootPageID(id); err != nil {
		return false, fmt.Errorf("tree: persist root page id: %w", err)
	}
	t.logger.Info("tree: created root leaf", "page_id", id)
	return true, nil
}

// splitLeaf splits an overfull leaf in two and promotes the separator
// key into the parent, creating a new root if leaf had none.
func (t *Tree) splitLeaf(ctx *descentContext, leaf LeafNode) error {
	f, newID, err := t.pool.NewPage()
	if err != nil {
		return fmt.Errorf("tree: split leaf: %w", ErrOutOfMemory)
	}
	sibling := NewLeafNode(f.Data())
	sibling.Init(newID, leaf.ParentPageID(), t.leafMax)

	leaf.MoveHalfTo(sibling)
	sibling.SetNextPageID(leaf.NextPageID())
	leaf.SetNextPageID(newID)

	separator := sibling.KeyAt(0)
	t.pool.UnpinPage(newID, true)

	return t.insertIntoParent(ctx, leaf.PageID(), separator, newID, leaf.ParentPageID())
}

// insertIntoParent places (separator, rightChild) into parent right
// after leftChild's existing slot, creating a new root if leftChild had
// no parent, and recursing into splitInternal if that insertion overfills
// the parent.
func (t *Tree) insertIntoParent(ctx *descentContext, leftChild page.ID, separator Key, rightChild page.ID, parentID page.ID) error {
	if parentID == page.InvalidID {
		f, newRootID, err := t.pool.NewPage()
		if err != nil {
			return fmt.Errorf("tree: new root: %w", ErrOutOfMemory)
		}
		root := NewInternalNode(f.Data())
		root.Init(newRootID, page.InvalidID, t.internalMax)
		root.PopulateNewRoot(leftChild, separator, rightChild)
		t.pool.UnpinPage(newRootID, true)

		if err := t.reparent(leftChild, newRootID); err != nil {
			return err
		}
		if err := t.reparent(rightChild, newRootID); err != nil {
			return err
		}
		t.logger.Info("tree: grew new root", "page_id", newRootID)
		return t.setRoot(newRootID)
	}

	parentBuf := ctx.data(parentID)
	parent := NewInternalNode(parentBuf)
	parent.InsertAfter(leftChild, separator, rightChild)
	ctx.markDirty(parentID)

	if err := t.reparent(rightChild, parentID); err != nil {
		return err
	}

	if !parent.IsFull() {
		return nil
	}
	return t.splitInternal(ctx, parent)
}

// splitInternal splits an overfull internal node in two and promotes the
// separator into its parent.
func (t *Tree) splitInternal(ctx *descentContext, node InternalNode) error {
	f, newID, err := t.pool.NewPage()
	if err != nil {
		return fmt.Errorf("tree: split internal: %w", ErrOutOfMemory)
	}
	sibling := NewInternalNode(f.Data())
	sibling.Init(newID, node.ParentPageID(), t.internalMax)

	separator := node.MoveHalfTo(sibling)
	childIDs := make([]page.ID, sibling.Size())
	for i := range childIDs {
		childIDs[i] = sibling.ValueAt(i)
	}
	t.pool.UnpinPage(newID, true)

	for _, childID := range childIDs {
		if err := t.reparent(childID, newID); err != nil {
			return err
		}
	}

	return t.insertIntoParent(ctx, node.PageID(), separator, newID, node.ParentPageID())
}

// reparent updates child's stored parent pointer, pinning it fresh since
// it is not necessarily held in the caller's descent context.
func (t *Tree) reparent(child, parent page.ID) error {
	f, err := t.pool.FetchPage(child)
	if err != nil {
		return fmt.Errorf("tree: reparent %d: %w", child, err)
	}
	buf := f.Data()
	setParentPageID(buf, parent)
	t.pool.UnpinPage(child, true)
	return nil
}

// fetchScratch pins and returns a frame outside any descent context, for
// operations (like reading a sibling during redistribution or a merge)
// that need a page only momentarily.
func (t *Tree) fetchScratch(id page.ID) (*buffer.Frame, error) {
	return t.pool.FetchPage(id)
}

// Remove deletes key from the tree, if present, rebalancing via borrow
// or merge as needed. It reports whether key was found.
func (t *Tree) Remove(key Key) (bool, error) {
	if t.IsEmpty() {
		return false, nil
	}

	ctx := newDescentContext(t.pool, latchWrite)
	defer ctx.Close()

	leafID, err := t.findLeafPage(ctx, key, t.removeSafe)
	if err != nil {
		return false, err
	}

	leaf := NewLeafNode(ctx.data(leafID))
	if !leaf.Remove(key, t.cmp) {
		return false, nil
	}
	ctx.markDirty(leafID)

	if err := t.coalesceOrRedistributeLeaf(ctx, leaf); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tree) coalesceOrRedistributeLeaf(ctx *descentContext, leaf LeafNode) error {
	if leaf.IsRoot() {
		return t.adjustRoot(ctx)
	}
	if leaf.Size() >= leaf.MinSize() {
		return nil
	}

	parentBuf := ctx.data(leaf.ParentPageID())
	parent := NewInternalNode(parentBuf)
	idx := parent.ValueIndex(leaf.PageID())

	if idx > 0 {
		leftID := parent.ValueAt(idx - 1)
		leftFrame, err := t.fetchScratch(leftID)
		if err != nil {
			return err
		}
		left := NewLeafNode(leftFrame.Data())
		if left.Size() > left.MinSize() {
			left.MoveLastToFrontOf(leaf)
			parent.SetKeyAt(idx, leaf.KeyAt(0))
			ctx.markDirty(leaf.ParentPageID())
			t.pool.UnpinPage(leftID, true)
			return nil
		}
		t.pool.UnpinPage(leftID, false)
	}

	if idx < parent.Size()-1 {
		rightID := parent.ValueAt(idx + 1)
		rightFrame, err := t.fetchScratch(rightID)
		if err != nil {
			return err
		}
		right := NewLeafNode(rightFrame.Data())
		if right.Size() > right.MinSize() {
			right.MoveFirstToEndOf(leaf)
			parent.SetKeyAt(idx+1, right.KeyAt(0))
			ctx.markDirty(leaf.ParentPageID())
			t.pool.UnpinPage(rightID, true)
			return nil
		}
		// Merge leaf (and right) into leaf: move right's entries into
		// leaf, relink the leaf chain, drop right's slot from parent.
		right.MoveAllTo(leaf)
		leaf.SetNextPageID(right.NextPageID())
		parent.RemoveAt(idx + 1)
		ctx.markDirty(leaf.ParentPageID())
		t.pool.UnpinPage(rightID, false)
		ctx.queueDeletion(rightID)
		return t.coalesceOrRedistributeInternal(ctx, parent)
	}

	// No right sibling: merge leaf into its left sibling.
	leftID := parent.ValueAt(idx - 1)
	leftFrame, err := t.fetchScratch(leftID)
	if err != nil {
		return err
	}
	left := NewLeafNode(leftFrame.Data())
	leaf.MoveAllTo(left)
	left.SetNextPageID(leaf.NextPageID())
	parent.RemoveAt(idx)
	ctx.markDirty(leaf.ParentPageID())
	t.pool.UnpinPage(leftID, true)
	ctx.queueDeletion(leaf.PageID())
	return t.coalesceOrRedistributeInternal(ctx, parent)
}

func (t *Tree) coalesceOrRedistributeInternal(ctx *descentContext, node InternalNode) error {
	if node.IsRoot() {
		return t.adjustRoot(ctx)
	}
	if node.Size() >= node.MinSize() {
		return nil
	}

	parentBuf := ctx.data(node.ParentPageID())
	parent := NewInternalNode(parentBuf)
	idx := parent.ValueIndex(node.PageID())

	if idx > 0 {
		leftID := parent.ValueAt(idx - 1)
		leftFrame, err := t.fetchScratch(leftID)
		if err != nil {
			return err
		}
		left := NewInternalNode(leftFrame.Data())
		if left.Size() > left.MinSize() {
			newSep := left.MoveLastToFrontOf(node, parent.KeyAt(idx))
			t.pool.UnpinPage(leftID, true)
			if err := t.reparent(node.ValueAt(0), node.PageID()); err != nil {
				return err
			}
			parent.SetKeyAt(idx, newSep)
			ctx.markDirty(node.ParentPageID())
			return nil
		}
		t.pool.UnpinPage(leftID, false)
	}

	if idx < parent.Size()-1 {
		rightID := parent.ValueAt(idx + 1)
		rightFrame, err := t.fetchScratch(rightID)
		if err != nil {
			return err
		}
		right := NewInternalNode(rightFrame.Data())
		if right.Size() > right.MinSize() {
			newSep := right.MoveFirstToEndOf(node, parent.KeyAt(idx+1))
			t.pool.UnpinPage(rightID, true)
			if err := t.reparent(node.ValueAt(node.Size()-1), node.PageID()); err != nil {
				return err
			}
			parent.SetKeyAt(idx+1, newSep)
			ctx.markDirty(node.ParentPageID())
			return nil
		}
		// Merge right into node.
		sep := parent.KeyAt(idx + 1)
		childIDs := make([]page.ID, right.Size())
		for i := range childIDs {
			childIDs[i] = right.ValueAt(i)
		}
		right.MoveAllTo(node, sep)
		parent.RemoveAt(idx + 1)
		ctx.markDirty(node.ParentPageID())
		t.pool.UnpinPage(rightID, false)
		ctx.queueDeletion(rightID)
		for _, childID := range childIDs {
			if err := t.reparent(childID, node.PageID()); err != nil {
				return err
			}
		}
		return t.coalesceOrRedistributeInternal(ctx, parent)
	}

	// Merge node into its left sibling.
	leftID := parent.ValueAt(idx - 1)
	leftFrame, err := t.fetchScratch(leftID)
	if err != nil {
		return err
	}
	left := NewInternalNode(leftFrame.Data())
	sep := parent.KeyAt(idx)
	childIDs := make([]page.ID, node.Size())
	for i := range childIDs {
		childIDs[i] = node.ValueAt(i)
	}
	node.MoveAllTo(left, sep)
	parent.RemoveAt(idx)
	ctx.markDirty(node.ParentPageID())
	t.pool.UnpinPage(leftID, true)
	ctx.queueDeletion(node.PageID())
	for _, childID := range childIDs {
		if err := t.reparent(childID, leftID); err != nil {
			return err
		}
	}
	return t.coalesceOrRedistributeInternal(ctx, parent)
}

// adjustRoot collapses the root when it has become trivial: an internal
// root with a single remaining child is replaced by that child, and a
// leaf root that has become empty makes the tree empty. The old root is
// still pinned by ctx, so its deletion is queued on ctx and runs once
// ctx releases it.
func (t *Tree) adjustRoot(ctx *descentContext) error {
	rootID := t.getRoot()
	f, err := t.pool.FetchPage(rootID)
	if err != nil {
		return fmt.Errorf("tree: adjust root: %w", err)
	}
	buf := f.Data()

	if pageType(buf) == page.TypeLeaf {
		if size(buf) > 0 {
			t.pool.UnpinPage(rootID, false)
			return nil
		}
		t.pool.UnpinPage(rootID, false)
		ctx.queueDeletion(rootID)
		t.logger.Info("tree: root leaf emptied, tree is now empty", "page_id", rootID)
		return t.setRoot(page.InvalidID)
	}

	internal := NewInternalNode(buf)
	if internal.Size() > 1 {
		t.pool.UnpinPage(rootID, false)
		return nil
	}
	onlyChild := internal.RemoveAndReturnOnlyChild()
	t.pool.UnpinPage(rootID, false)
	ctx.queueDeletion(rootID)
	if err := t.reparent(onlyChild, page.InvalidID); err != nil {
		return err
	}
	t.logger.Info("tree: root collapsed to single child", "page_id", onlyChild)
	return t.setRoot(onlyChild)
}

// Close flushes every dirty page belonging to this tree's buffer pool
// and syncs the underlying file.
func (t *Tree) Close() error {
	if err := t.pool.FlushAllPages(); err != nil {
		return fmt.Errorf("tree.Close: %w", err)
	}
	return t.disk.Sync()
}

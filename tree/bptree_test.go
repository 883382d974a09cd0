package tree

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"coredb/buffer"
	"coredb/disk"
)

func newTestTree(t *testing.T, leafMax, internalMax int) *Tree {
	t.Helper()
	dir := t.TempDir()
	d, err := disk.Open(filepath.Join(dir, "test.idx"))
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	pool, err := buffer.NewPool(64, d)
	if err != nil {
		t.Fatalf("buffer.NewPool: %v", err)
	}

	tr, err := Open(pool, d, WithLeafMaxSize(leafMax), WithInternalMaxSize(internalMax))
	if err != nil {
		t.Fatalf("tree.Open: %v", err)
	}
	return tr
}

func rid(n int64) RID { return RID{PageID: 1, Slot: uint32(n)} }

// TestInsertGetValue is spec §8 scenario 2: a value inserted under a key
// is returned unchanged by GetValue.
func TestInsertGetValue(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	for i := int64(1); i <= 5; i++ {
		ok, err := tr.Insert(Int64Key(i), rid(i))
		if err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
		if !ok {
			t.Fatalf("Insert(%d) reported false on a fresh key", i)
		}
	}

	got, found, err := tr.GetValue(Int64Key(4))
	if err != nil {
		t.Fatalf("GetValue(4): %v", err)
	}
	if !found {
		t.Fatal("GetValue(4) did not find a key that was inserted")
	}
	if got != rid(4) {
		t.Fatalf("GetValue(4) = %+v, want %+v", got, rid(4))
	}

	if err := tr.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

// TestInsertDuplicateReturnsFalse covers the duplicate-key error-handling
// row in spec §7: a second Insert of the same key is a no-op reported as
// false, not an error.
func TestInsertDuplicateReturnsFalse(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	if ok, err := tr.Insert(Int64Key(1), rid(1)); err != nil || !ok {
		t.Fatalf("first Insert: ok=%v err=%v", ok, err)
	}
	if ok, err := tr.Insert(Int64Key(1), rid(99)); err != nil || ok {
		t.Fatalf("duplicate Insert: ok=%v err=%v, want ok=false", ok, err)
	}
	got, _, err := tr.GetValue(Int64Key(1))
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if got != rid(1) {
		t.Fatalf("duplicate Insert overwrote the original value: got %+v", got)
	}
}

// TestGetValueMissing covers the absent-key error-handling row in spec §7.
func TestGetValueMissing(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	tr.Insert(Int64Key(1), rid(1))
	if _, found, err := tr.GetValue(Int64Key(2)); err != nil || found {
		t.Fatalf("GetValue(missing) = found=%v err=%v, want found=false", found, err)
	}
}

// TestRemoveMissingIsNoop covers the absent-key Remove row in spec §7.
func TestRemoveMissingIsNoop(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	tr.Insert(Int64Key(1), rid(1))
	ok, err := tr.Remove(Int64Key(2))
	if err != nil {
		t.Fatalf("Remove(missing): %v", err)
	}
	if ok {
		t.Fatal("Remove(missing) reported true")
	}
}

// TestSplitAndMergeInvariants drives enough inserts through a
// small-capacity tree to force multiple splits, walks the tree with
// Check() after every mutation (spec §8's "after every public operation"
// invariant), then removes everything and confirms the tree empties out.
func TestSplitAndMergeInvariants(t *testing.T) {
	tr := newTestTree(t, 4, 4)

	const n = 200
	for i := int64(0); i < n; i++ {
		if _, err := tr.Insert(Int64Key(i), rid(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
		if err := tr.Check(); err != nil {
			t.Fatalf("Check after inserting %d: %v", i, err)
		}
	}

	for i := int64(0); i < n; i++ {
		got, found, err := tr.GetValue(Int64Key(i))
		if err != nil || !found || got != rid(i) {
			t.Fatalf("GetValue(%d) = %+v found=%v err=%v", i, got, found, err)
		}
	}

	// Remove in a different order than insertion to exercise left- and
	// right-sibling redistribution and merges alike.
	order := make([]int64, n)
	for i := range order {
		order[i] = int64(i)
	}
	rand.New(rand.NewSource(1)).Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for _, k := range order {
		ok, err := tr.Remove(Int64Key(k))
		if err != nil {
			t.Fatalf("Remove(%d): %v", k, err)
		}
		if !ok {
			t.Fatalf("Remove(%d) reported false for a present key", k)
		}
		if err := tr.Check(); err != nil {
			t.Fatalf("Check after removing %d: %v", k, err)
		}
	}

	if !tr.IsEmpty() {
		t.Fatal("tree should be empty after removing every inserted key")
	}
}

// TestIteratorOrder is spec §8 scenario 5: the leaf-chain iterator yields
// every inserted key exactly once in ascending order.
func TestIteratorOrder(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	keys := []int64{5, 3, 1, 4, 2, 9, 7, 8, 6, 0}
	for _, k := range keys {
		if _, err := tr.Insert(Int64Key(k), rid(k)); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	it, err := tr.begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer it.Close()

	var seen []int64
	for it.Valid() {
		seen = append(seen, it.Key().Int64())
		it.Next()
	}

	if len(seen) != len(keys) {
		t.Fatalf("iterator yielded %d keys, want %d", len(seen), len(keys))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i-1] >= seen[i] {
			t.Fatalf("iterator not strictly ascending at %d: %d >= %d", i, seen[i-1], seen[i])
		}
	}
}

// TestBeginAtKey verifies Begin(key) positions the iterator at the first
// entry whose key is >= the requested key, including keys absent from
// the tree.
func TestBeginAtKey(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	for _, k := range []int64{0, 2, 4, 6, 8} {
		tr.Insert(Int64Key(k), rid(k))
	}

	it, err := tr.Begin(Int64Key(3))
	if err != nil {
		t.Fatalf("Begin(3): %v", err)
	}
	defer it.Close()

	if !it.Valid() {
		t.Fatal("Begin(3) landed on an exhausted iterator")
	}
	if got := it.Key().Int64(); got != 4 {
		t.Fatalf("Begin(3).Key() = %d, want 4 (first key >= 3)", got)
	}
}

// TestPinCountReturnsToBaseline is spec §8's buffer-pool property: pin
// counts at the end of every public tree operation return to their
// value before the operation.
func TestPinCountReturnsToBaseline(t *testing.T) {
	dir := t.TempDir()
	d, err := disk.Open(filepath.Join(dir, "test.idx"))
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	defer d.Close()
	pool, err := buffer.NewPool(64, d)
	if err != nil {
		t.Fatalf("buffer.NewPool: %v", err)
	}
	tr, err := Open(pool, d, WithLeafMaxSize(4), WithInternalMaxSize(4))
	if err != nil {
		t.Fatalf("tree.Open: %v", err)
	}

	for i := int64(0); i < 64; i++ {
		if _, err := tr.Insert(Int64Key(i), rid(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
		if got := pool.Stats().PinnedFrames; got != 0 {
			t.Fatalf("after Insert(%d): %d frames still pinned, want 0", i, got)
		}
	}
	for i := int64(0); i < 64; i += 2 {
		if _, err := tr.Remove(Int64Key(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
		if got := pool.Stats().PinnedFrames; got != 0 {
			t.Fatalf("after Remove(%d): %d frames still pinned, want 0", i, got)
		}
	}
}

// TestConcurrentDisjointRanges is spec §8's concurrent-threads property:
// many goroutines inserting and then removing disjoint key ranges
// produce a tree whose invariants hold and whose key set matches the
// union of what survived.
func TestConcurrentDisjointRanges(t *testing.T) {
	tr := newTestTree(t, 8, 8)

	const perWorker = 50
	const workers = 16

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			base := int64(w * perWorker)
			for i := int64(0); i < perWorker; i++ {
				if _, err := tr.Insert(Int64Key(base+i), rid(base+i)); err != nil {
					t.Errorf("worker %d Insert(%d): %v", w, base+i, err)
				}
			}
		}(w)
	}
	wg.Wait()

	// Every other worker removes its own range entirely.
	var survive []int64
	wg = sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		if w%2 != 0 {
			survive = append(survive, rangeKeys(int64(w*perWorker), perWorker)...)
			continue
		}
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			base := int64(w * perWorker)
			for i := int64(0); i < perWorker; i++ {
				if _, err := tr.Remove(Int64Key(base + i)); err != nil {
					t.Errorf("worker %d Remove(%d): %v", w, base+i, err)
				}
			}
		}(w)
	}
	wg.Wait()

	if err := tr.Check(); err != nil {
		t.Fatalf("Check after concurrent workload: %v", err)
	}

	for _, k := range survive {
		if _, found, err := tr.GetValue(Int64Key(k)); err != nil || !found {
			t.Errorf("surviving key %d missing: found=%v err=%v", k, found, err)
		}
	}
	for w := 0; w < workers; w += 2 {
		for _, k := range rangeKeys(int64(w*perWorker), perWorker) {
			if _, found, err := tr.GetValue(Int64Key(k)); err != nil || found {
				t.Errorf("removed key %d still present: found=%v err=%v", k, found, err)
			}
		}
	}
}

func rangeKeys(base int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = base + int64(i)
	}
	return out
}

// TestInsertFromFileAndRemoveFromFile exercises the file-loading helpers
// spec §6 names, grounded on the original course project's line-oriented
// test fixtures.
func TestInsertFromFileAndRemoveFromFile(t *testing.T) {
	tr := newTestTree(t, 4, 4)

	dir := t.TempDir()
	path := filepath.Join(dir, "keys.txt")
	var contents string
	for i := int64(1); i <= 20; i++ {
		contents += fmt.Sprintf("%d\n", i)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	if err := tr.InsertFromFile(path); err != nil {
		t.Fatalf("InsertFromFile: %v", err)
	}
	for i := int64(1); i <= 20; i++ {
		if _, found, err := tr.GetValue(Int64Key(i)); err != nil || !found {
			t.Fatalf("GetValue(%d) after InsertFromFile: found=%v err=%v", i, found, err)
		}
	}

	if err := tr.RemoveFromFile(path); err != nil {
		t.Fatalf("RemoveFromFile: %v", err)
	}
	if !tr.IsEmpty() {
		t.Fatal("tree should be empty after RemoveFromFile of every inserted key")
	}
}

package tree

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"coredb/page"
)

// InsertFromFile bulk-loads the tree from path, one integer key per
// line, using the line number (0-based) as each key's RID slot and
// page.InvalidID as its page — the same line-oriented key source the
// original course project's GenericKey file loaders and the teacher's
// REPL both read test fixtures from.
func (t *Tree) InsertFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("tree.InsertFromFile: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var line uint32
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			line++
			continue
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return fmt.Errorf("tree.InsertFromFile: line %d: %w", line+1, err)
		}
		if _, err := t.Insert(Int64Key(v), RID{PageID: page.InvalidID, Slot: line}); err != nil {
			return fmt.Errorf("tree.InsertFromFile: line %d: %w", line+1, err)
		}
		line++
	}
	return scanner.Err()
}

// RemoveFromFile bulk-removes keys from path, one integer key per line.
func (t *Tree) RemoveFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("tree.RemoveFromFile: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return fmt.Errorf("tree.RemoveFromFile: %w", err)
		}
		if _, err := t.Remove(Int64Key(v)); err != nil {
			return fmt.Errorf("tree.RemoveFromFile: %w", err)
		}
	}
	return scanner.Err()
}

// Command inspect opens an existing index file read-only (well, with the
// same read/write pool the tree needs to descend) and prints buffer pool
// and tree statistics, for poking at a file produced by cmd/seed.
package main

import (
	"flag"
	"fmt"
	"log"

	"coredb/buffer"
	"coredb/disk"
	"coredb/tree"
)

func main() {
	var (
		indexPath = flag.String("index", "index.db", "path to the index file")
		poolSize  = flag.Int("pool-size", 64, "buffer pool capacity in frames")
		check     = flag.Bool("check", false, "walk the tree and verify structural invariants")
	)
	flag.Parse()

	d, err := disk.Open(*indexPath)
	if err != nil {
		log.Fatalf("inspect: open index: %v", err)
	}
	defer d.Close()

	pool, err := buffer.NewPool(*poolSize, d)
	if err != nil {
		log.Fatalf("inspect: new pool: %v", err)
	}

	t, err := tree.Open(pool, d)
	if err != nil {
		log.Fatalf("inspect: open tree: %v", err)
	}

	if *check {
		if err := t.Check(); err != nil {
			log.Fatalf("inspect: invariant check failed: %v", err)
		}
		fmt.Println("inspect: tree invariants hold")
	}

	treeStats, err := t.Stats()
	if err != nil {
		log.Fatalf("inspect: tree stats: %v", err)
	}
	fmt.Printf("tree:  %s\n", treeStats)
	fmt.Printf("pool:  %s\n", pool.Stats())
}

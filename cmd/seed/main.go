// Command seed loads a file of newline-separated integer keys into a
// fresh (or existing) index file, one RID per line keyed by line number.
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
		keysPath  = flag.String("keys", "", "path to a file of newline-separated integer keys")
		poolSize  = flag.Int("pool-size", 64, "buffer pool capacity in frames")
	)
	flag.Parse()

	if *keysPath == "" {
		log.Fatal("seed: -keys is required")
	}

	d, err := disk.Open(*indexPath)
	if err != nil {
		log.Fatalf("seed: open index: %v", err)
	}
	defer d.Close()

	pool, err := buffer.NewPool(*poolSize, d)
	if err != nil {
		log.Fatalf("seed: new pool: %v", err)
	}

	t, err := tree.Open(pool, d)
	if err != nil {
		log.Fatalf("seed: open tree: %v", err)
	}

	if err := t.InsertFromFile(*keysPath); err != nil {
		log.Fatalf("seed: insert from file: %v", err)
	}

	if err := t.Close(); err != nil {
		log.Fatalf("seed: close tree: %v", err)
	}

	fmt.Printf("seed: loaded %s into %s\n", *keysPath, *indexPath)
}

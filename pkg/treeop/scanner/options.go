// Package scanner walks directory trees and builds treeop's in-memory
// tree indexes, consulting and refreshing the per-directory digest
// caches as it goes. Traversal is depth-first with lexicographic
// per-directory ordering so that scan output order is stable; hashing of
// changed files within one directory runs on a bounded worker pool.
package scanner

import (
	"runtime"

	"github.com/jovermann/treeop/pkg/treeop/progress"
)

// CacheMode selects how the scanner treats existing .dirdb caches.
type CacheMode int

const (
	// CacheDefault consults caches opportunistically and writes a
	// refreshed cache back only when its contents changed.
	CacheDefault CacheMode = iota

	// CacheUpdate behaves like CacheDefault but forces a write even if
	// nothing changed.
	CacheUpdate

	// CacheNew ignores existing cache contents, rehashes every file, and
	// overwrites the cache.
	CacheNew
)

// Options configures a scan of one root.
type Options struct {
	// Root is the directory tree to scan.
	Root string

	// Mode selects the cache behavior.
	Mode CacheMode

	// DryRun suppresses every cache write so the filesystem stays
	// byte-identical to before the scan.
	DryRun bool

	// BufSize is the hasher read buffer size in bytes. Zero uses the
	// hasher default.
	BufSize int

	// HashWorkers bounds the number of files hashed concurrently within
	// one directory. Zero picks a bound from GOMAXPROCS.
	HashWorkers int

	// Progress, if non-nil, receives per-file and per-directory ticks.
	Progress *progress.Tracker
}

// Validate applies defaults for unset values.
func (o *Options) Validate() {
	if o.Root == "" {
		o.Root = "."
	}
	if o.HashWorkers <= 0 {
		o.HashWorkers = runtime.GOMAXPROCS(0)
		if o.HashWorkers > 8 {
			o.HashWorkers = 8
		}
	}
}

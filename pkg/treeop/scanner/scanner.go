package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jovermann/treeop/pkg/treeop/dirdb"
	"github.com/jovermann/treeop/pkg/treeop/hasher"
	"github.com/jovermann/treeop/pkg/treeop/index"
	"github.com/jovermann/treeop/pkg/treeop/logging"
	"github.com/jovermann/treeop/pkg/treeop/types"
	"golang.org/x/sync/errgroup"
)

var logger = logging.Get("scanner")

// ScanError pairs a path with the error encountered there. Files with
// errors are omitted from the index; the scan continues.
type ScanError struct {
	Path  string
	Error string
}

// Scanner builds the tree index of one root.
type Scanner struct {
	opts   Options
	hasher *hasher.Hasher

	errorsMu sync.Mutex
	errors   []ScanError
}

// New creates a Scanner with the given options.
func New(opts Options) *Scanner {
	opts.Validate()
	return &Scanner{
		opts:   opts,
		hasher: hasher.New(opts.BufSize),
	}
}

// Errors returns the per-file errors collected during the last scan.
func (s *Scanner) Errors() []ScanError {
	s.errorsMu.Lock()
	defer s.errorsMu.Unlock()
	return append([]ScanError(nil), s.errors...)
}

// Scan walks the root depth-first and returns its tree index. Per-file
// errors are collected, not fatal; only an unusable root fails the scan.
func (s *Scanner) Scan() (*index.Tree, error) {
	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	tree := index.New(root)
	s.scanDir(root, tree)
	return tree, nil
}

// scanDir processes one directory: refresh its cache, index its files,
// then recurse into subdirectories in lexicographic order.
func (s *Scanner) scanDir(dir string, tree *index.Tree) {
	tree.AddDir()
	s.opts.Progress.Dir(dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.addError(dir, err)
		return
	}

	var cache dirdb.Cache
	if s.opts.Mode == CacheNew {
		cache = make(dirdb.Cache)
	} else {
		cache = dirdb.Load(dir)
	}

	var subdirs []string
	type pending struct {
		name string
		rec  types.FileRecord
	}
	var files []pending
	var toHash []int

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			subdirs = append(subdirs, name)
			continue
		}
		// Symlinks are not followed; other non-regular entries and the
		// cache file itself are skipped.
		if !entry.Type().IsRegular() || name == types.CacheFileName {
			continue
		}

		path := filepath.Join(dir, name)
		rec, err := statFile(path)
		if err != nil {
			s.addError(path, err)
			continue
		}
		s.opts.Progress.File(rec.Size)

		if digest, ok := cache.Lookup(name, rec.Size, rec.MTime); ok {
			rec.Digest = digest
			files = append(files, pending{name: name, rec: rec})
			continue
		}
		files = append(files, pending{name: name, rec: rec})
		toHash = append(toHash, len(files)-1)
	}

	if len(toHash) > 0 {
		var g errgroup.Group
		g.SetLimit(s.opts.HashWorkers)
		for _, i := range toHash {
			g.Go(func() error {
				digest, err := s.hasher.HashFile(files[i].rec.Path, s.opts.Progress.HashBytes)
				if err != nil {
					s.addError(files[i].rec.Path, err)
					return nil
				}
				files[i].rec.Digest = digest
				return nil
			})
		}
		g.Wait()
	}

	// The fresh cache holds exactly the surviving entries; stale ones drop out.
	fresh := make(dirdb.Cache, len(files))
	for _, f := range files {
		if f.rec.Digest == "" {
			continue
		}
		tree.Add(f.rec)
		fresh[f.name] = dirdb.Entry{Size: f.rec.Size, MTime: f.rec.MTime, Digest: f.rec.Digest}
	}

	if !s.opts.DryRun && s.shouldWrite(cache, fresh) {
		if err := dirdb.Save(dir, fresh); err != nil {
			logger.Warn("cache write failed", "dir", dir, "error", err)
		}
	}

	sort.Strings(subdirs)
	for _, name := range subdirs {
		s.scanDir(filepath.Join(dir, name), tree)
	}
}

// shouldWrite decides whether the refreshed cache goes to disk.
func (s *Scanner) shouldWrite(old, fresh dirdb.Cache) bool {
	switch s.opts.Mode {
	case CacheUpdate, CacheNew:
		return true
	}
	if len(old) != len(fresh) {
		return true
	}
	for name, entry := range fresh {
		if old[name] != entry {
			return true
		}
	}
	return false
}

func (s *Scanner) addError(path string, err error) {
	logger.Warn("scan error", "path", path, "error", err)
	s.errorsMu.Lock()
	s.errors = append(s.errors, ScanError{Path: path, Error: err.Error()})
	s.errorsMu.Unlock()
}

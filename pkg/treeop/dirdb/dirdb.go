// Package dirdb persists the per-directory digest cache of treeop.
//
// Every scanned directory carries a .dirdb file mapping each contained
// regular file to its size, mtime, and content digest. The cache lets a
// rescan skip hashing for files whose (size, mtime) pair is unchanged.
// The format is line-oriented text, one record per file:
//
//	<size> <mtime> <digest> <filename>
//
// The filename comes last so that names containing spaces remain
// recoverable by taking everything after the third space. Records are
// sorted by filename for deterministic diffs.
package dirdb

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jovermann/treeop/pkg/treeop/logging"
	"github.com/jovermann/treeop/pkg/treeop/types"
)

// ErrCacheFormat reports a malformed .dirdb line. Load recovers from it
// by skipping the line; it is surfaced only in debug logs.
var ErrCacheFormat = errors.New("malformed cache line")

var logger = logging.Get("dirdb")

// Entry is one cached record: the metadata pair that keys validity plus
// the digest it vouches for.
type Entry struct {
	Size   int64
	MTime  int64
	Digest string
}

// Cache maps filenames to their cached entries for one directory.
type Cache map[string]Entry

// Path returns the cache file path for a directory.
func Path(dir string) string {
	return filepath.Join(dir, types.CacheFileName)
}

// Load reads the cache of a directory. A missing or unreadable file
// yields an empty cache; malformed lines are skipped. Load never fails
// hard.
func Load(dir string) Cache {
	cache := make(Cache)
	f, err := os.Open(Path(dir))
	if err != nil {
		return cache
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*types.KiB), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		name, entry, err := parseLine(scanner.Text())
		if err != nil {
			logger.Debug("skipping cache line", "dir", dir, "line", lineNo, "error", err)
			continue
		}
		cache[name] = entry
	}
	return cache
}

// parseLine splits one cache line into filename and entry.
func parseLine(line string) (string, Entry, error) {
	if line == "" {
		return "", Entry{}, fmt.Errorf("%w: empty line", ErrCacheFormat)
	}
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 || fields[3] == "" {
		return "", Entry{}, fmt.Errorf("%w: %q", ErrCacheFormat, line)
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || size < 0 {
		return "", Entry{}, fmt.Errorf("%w: bad size %q", ErrCacheFormat, fields[0])
	}
	mtime, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", Entry{}, fmt.Errorf("%w: bad mtime %q", ErrCacheFormat, fields[1])
	}
	digest := fields[2]
	if len(digest) != types.DigestHexLen || !isLowerHex(digest) {
		return "", Entry{}, fmt.Errorf("%w: bad digest %q", ErrCacheFormat, digest)
	}
	return fields[3], Entry{Size: size, MTime: mtime, Digest: digest}, nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Lookup returns the cached digest for a filename, but only if both size
// and mtime match the cached pair exactly. A stale entry yields no digest.
func (c Cache) Lookup(name string, size, mtime int64) (string, bool) {
	entry, ok := c[name]
	if !ok || entry.Size != size || entry.MTime != mtime {
		return "", false
	}
	return entry.Digest, true
}

// Save writes the cache of a directory atomically via a temp file and
// rename. Saving an empty cache is skipped unless a cache file already
// exists, in which case the stale file is removed.
func Save(dir string, cache Cache) error {
	path := Path(dir)
	if len(cache) == 0 {
		if _, err := os.Lstat(path); err != nil {
			return nil
		}
		return os.Remove(path)
	}

	names := make([]string, 0, len(cache))
	for name := range cache {
		names = append(names, name)
	}
	sort.Strings(names)

	tmp := filepath.Join(dir, types.CacheFileName+".tmp."+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, name := range names {
		entry := cache[name]
		fmt.Fprintf(w, "%d %d %s %s\n", entry.Size, entry.MTime, entry.Digest, name)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}

// Drop removes the named entries from a directory's persisted cache.
// Used to patch caches after the engine deleted or rewrote files.
// A cache left empty by the drop is removed entirely.
func Drop(dir string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	cache := Load(dir)
	if len(cache) == 0 {
		return nil
	}
	changed := false
	for _, name := range names {
		if _, ok := cache[name]; ok {
			delete(cache, name)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return Save(dir, cache)
}

// Remove deletes the cache file of a directory if present. It reports
// whether a file was removed.
func Remove(dir string) (bool, error) {
	path := Path(dir)
	if _, err := os.Lstat(path); err != nil {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}

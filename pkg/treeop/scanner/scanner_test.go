package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jovermann/treeop/pkg/treeop/dirdb"
	"github.com/jovermann/treeop/pkg/treeop/hasher"
	"github.com/jovermann/treeop/pkg/treeop/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scan(t *testing.T, root string, mode CacheMode, dryRun bool) *index.Tree {
	t.Helper()
	s := New(Options{Root: root, Mode: mode, DryRun: dryRun})
	tree, err := s.Scan()
	require.NoError(t, err)
	return tree
}

func TestScanBuildsIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "world!")

	tree := scan(t, root, CacheDefault, false)
	assert.Equal(t, int64(2), tree.Files())
	assert.Equal(t, int64(2), tree.Dirs())
	assert.Equal(t, int64(11), tree.TotalSize())

	rec, ok := tree.Lookup(filepath.Join(root, "a.txt"))
	require.True(t, ok)
	assert.Len(t, rec.Digest, 32)
	assert.Equal(t, int64(5), rec.Size)
	assert.NotZero(t, rec.Ino)
}

func TestScanOrderIsStable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "z.txt"), "z")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "dir2", "f"), "f")
	writeFile(t, filepath.Join(root, "dir1", "g"), "g")

	tree := scan(t, root, CacheDefault, false)
	var paths []string
	for _, rec := range tree.Records() {
		rel, err := filepath.Rel(root, rec.Path)
		require.NoError(t, err)
		paths = append(paths, rel)
	}
	assert.Equal(t, []string{
		"a.txt",
		"z.txt",
		filepath.Join("dir1", "g"),
		filepath.Join("dir2", "f"),
	}, paths, "files lexicographic per directory, depth-first recursion after")
}

func TestScanWritesCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f.txt"), "data")

	scan(t, root, CacheDefault, false)
	cache := dirdb.Load(root)
	require.Len(t, cache, 1)

	entry := cache["f.txt"]
	assert.Equal(t, int64(4), entry.Size)
	assert.Len(t, entry.Digest, 32)
}

// TestCacheCoherence checks that for an unchanged file the persisted
// digest equals the freshly computed one.
func TestCacheCoherence(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	writeFile(t, path, "coherent content")
	scan(t, root, CacheDefault, false)

	cache := dirdb.Load(root)
	entry, ok := cache["f.txt"]
	require.True(t, ok)

	fresh, err := hasher.New(0).HashFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, fresh, entry.Digest)
}

func TestScanReusesCachedDigest(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	writeFile(t, path, "content")
	scan(t, root, CacheDefault, false)

	// Poison the cached digest while keeping (size, mtime) valid. A
	// rescan must trust the cache and carry the poisoned digest through.
	cache := dirdb.Load(root)
	entry := cache["f.txt"]
	poisoned := strings.Repeat("f", 32)
	entry.Digest = poisoned
	cache["f.txt"] = entry
	require.NoError(t, dirdb.Save(root, cache))

	tree := scan(t, root, CacheDefault, false)
	rec, ok := tree.Lookup(path)
	require.True(t, ok)
	assert.Equal(t, poisoned, rec.Digest)
}

func TestScanRehashesOnMtimeChange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	writeFile(t, path, "content")
	scan(t, root, CacheDefault, false)

	cache := dirdb.Load(root)
	entry := cache["f.txt"]
	poisoned := strings.Repeat("f", 32)
	entry.Digest = poisoned
	cache["f.txt"] = entry
	require.NoError(t, dirdb.Save(root, cache))

	// Invalidate by bumping mtime; size stays the same.
	newTime := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, newTime, newTime))

	tree := scan(t, root, CacheDefault, false)
	rec, ok := tree.Lookup(path)
	require.True(t, ok)
	assert.NotEqual(t, poisoned, rec.Digest, "stale entry must be rehashed")
}

func TestCacheNewIgnoresExisting(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	writeFile(t, path, "content")
	scan(t, root, CacheDefault, false)

	cache := dirdb.Load(root)
	entry := cache["f.txt"]
	entry.Digest = strings.Repeat("f", 32)
	cache["f.txt"] = entry
	require.NoError(t, dirdb.Save(root, cache))

	tree := scan(t, root, CacheNew, false)
	rec, ok := tree.Lookup(path)
	require.True(t, ok)
	assert.NotEqual(t, strings.Repeat("f", 32), rec.Digest)

	// The overwritten cache holds the real digest again.
	entry, ok = dirdb.Load(root)["f.txt"]
	require.True(t, ok)
	assert.Equal(t, rec.Digest, entry.Digest)
}

func TestScanDropsStaleCacheEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "keep")
	writeFile(t, filepath.Join(root, "gone.txt"), "gone")
	scan(t, root, CacheDefault, false)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.txt")))
	scan(t, root, CacheDefault, false)

	cache := dirdb.Load(root)
	assert.Contains(t, cache, "keep.txt")
	assert.NotContains(t, cache, "gone.txt")
}

func TestDryRunWritesNoCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f.txt"), "data")

	scan(t, root, CacheDefault, true)
	_, err := os.Lstat(dirdb.Path(root))
	assert.True(t, os.IsNotExist(err), "dry-run must leave the tree byte-identical")
}

func TestScanSkipsCacheFileAndSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real.txt"), "real")
	scan(t, root, CacheDefault, false)

	require.NoError(t, os.Symlink(
		filepath.Join(root, "real.txt"),
		filepath.Join(root, "link.txt")))

	tree := scan(t, root, CacheDefault, false)
	assert.Equal(t, int64(1), tree.Files(), "the .dirdb and the symlink are not indexed")
}

func TestHardlinkedFilesShareDigestAndInode(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	writeFile(t, a, "linked")
	require.NoError(t, os.Link(a, b))

	tree := scan(t, root, CacheDefault, false)
	ra, ok := tree.Lookup(a)
	require.True(t, ok)
	rb, ok := tree.Lookup(b)
	require.True(t, ok)

	assert.Equal(t, ra.Inode(), rb.Inode())
	assert.Equal(t, ra.Digest, rb.Digest)
	assert.Equal(t, uint64(2), ra.Nlink)

	groups := tree.HardlinkGroups()
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestScanUnreadableFileContinues(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits are ignored for root")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.txt"), "fine")
	locked := filepath.Join(root, "locked.txt")
	writeFile(t, locked, "secret")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	s := New(Options{Root: root})
	tree, err := s.Scan()
	require.NoError(t, err)
	assert.Equal(t, int64(1), tree.Files(), "unreadable file is omitted, scan continues")
	assert.NotEmpty(t, s.Errors())
}

func TestScanRootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f")
	writeFile(t, file, "x")

	_, err := New(Options{Root: file}).Scan()
	assert.Error(t, err)
	_, err = New(Options{Root: filepath.Join(root, "missing")}).Scan()
	assert.Error(t, err)
}

func TestRemoveCaches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "a")
	writeFile(t, filepath.Join(root, "sub", "b"), "b")
	scan(t, root, CacheDefault, false)

	removed, err := RemoveCaches(root)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	_, err = os.Lstat(dirdb.Path(root))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Lstat(dirdb.Path(filepath.Join(root, "sub")))
	assert.True(t, os.IsNotExist(err))
}

// Package index holds the in-memory model of one scanned tree.
//
// A Tree stores its file records in a flat slice in scan order and keeps
// three views over them: by content digest, by (device, inode), and by
// path. The views map to integer indices into the record slice rather
// than holding cross-references. A Tree is filled by the scanner and is
// read-only once handed to the engine.
package index

import (
	"sort"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// Tree indexes the files of one scanned root.
type Tree struct {
	root      string
	records   []types.FileRecord
	byDigest  map[string][]int
	byInode   map[types.InodeKey][]int
	byPath    map[string]int
	dirs      int64
	totalSize int64
}

// New creates an empty tree index for a root path.
func New(root string) *Tree {
	return &Tree{
		root:     root,
		byDigest: make(map[string][]int),
		byInode:  make(map[types.InodeKey][]int),
		byPath:   make(map[string]int),
	}
}

// Add appends a file record in scan order and registers it in all views.
func (t *Tree) Add(rec types.FileRecord) {
	i := len(t.records)
	t.records = append(t.records, rec)
	t.byDigest[rec.Digest] = append(t.byDigest[rec.Digest], i)
	t.byInode[rec.Inode()] = append(t.byInode[rec.Inode()], i)
	t.byPath[rec.Path] = i
	t.totalSize += rec.Size
}

// AddDir counts one scanned directory.
func (t *Tree) AddDir() {
	t.dirs++
}

// Root returns the root path of the tree.
func (t *Tree) Root() string { return t.root }

// Files returns the number of indexed files.
func (t *Tree) Files() int64 { return int64(len(t.records)) }

// Dirs returns the number of scanned directories, the root included.
func (t *Tree) Dirs() int64 { return t.dirs }

// TotalSize returns the sum of all indexed file sizes in bytes.
func (t *Tree) TotalSize() int64 { return t.totalSize }

// Records returns the file records in scan order. Callers must not
// modify the returned slice.
func (t *Tree) Records() []types.FileRecord { return t.records }

// Record returns a pointer to the record at index i.
func (t *Tree) Record(i int) *types.FileRecord { return &t.records[i] }

// ByDigest returns the record indices holding the given digest.
func (t *Tree) ByDigest(digest string) []int { return t.byDigest[digest] }

// Digests returns all distinct digests in the tree, sorted.
func (t *Tree) Digests() []string {
	digests := make([]string, 0, len(t.byDigest))
	for d := range t.byDigest {
		digests = append(digests, d)
	}
	sort.Strings(digests)
	return digests
}

// Lookup returns the record stored under a path.
func (t *Tree) Lookup(path string) (*types.FileRecord, bool) {
	i, ok := t.byPath[path]
	if !ok {
		return nil, false
	}
	return &t.records[i], true
}

// HardlinkGroups returns, for each (device, inode) with more than one
// record, the member indices with paths sorted lexicographically. The
// groups themselves are ordered by (device, inode).
func (t *Tree) HardlinkGroups() [][]int {
	keys := make([]types.InodeKey, 0)
	for key, idxs := range t.byInode {
		if len(idxs) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Dev != keys[j].Dev {
			return keys[i].Dev < keys[j].Dev
		}
		return keys[i].Ino < keys[j].Ino
	})

	groups := make([][]int, 0, len(keys))
	for _, key := range keys {
		idxs := append([]int(nil), t.byInode[key]...)
		sort.Slice(idxs, func(a, b int) bool {
			return t.records[idxs[a]].Path < t.records[idxs[b]].Path
		})
		groups = append(groups, idxs)
	}
	return groups
}

// RedundantStats counts non-canonical content duplicates: for each digest
// held by more than one distinct inode, every inode beyond the first is
// redundant. Extra hardlink members of one inode do not count here; they
// are reported by HardlinkStats.
func (t *Tree) RedundantStats() (files, size int64) {
	for _, idxs := range t.byDigest {
		inodes := make(map[types.InodeKey]struct{})
		for _, i := range idxs {
			inodes[t.records[i].Inode()] = struct{}{}
		}
		if len(inodes) > 1 {
			extra := int64(len(inodes) - 1)
			files += extra
			size += extra * t.records[idxs[0]].Size
		}
	}
	return files, size
}

// HardlinkStats counts extra members of hardlink groups: for each
// (device, inode) with n records, n-1 files sharing one on-disk copy.
func (t *Tree) HardlinkStats() (files, size int64) {
	for _, idxs := range t.byInode {
		if len(idxs) > 1 {
			extra := int64(len(idxs) - 1)
			files += extra
			size += extra * t.records[idxs[0]].Size
		}
	}
	return files, size
}

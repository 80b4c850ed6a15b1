package engine

import (
	"sort"

	"github.com/jovermann/treeop/pkg/treeop/index"
	"github.com/jovermann/treeop/pkg/treeop/logging"
	"github.com/jovermann/treeop/pkg/treeop/types"
)

var logger = logging.Get("engine")

// Options configures matching across trees.
type Options struct {
	// SameFilename narrows the match key from the content digest to the
	// (digest, basename) pair.
	SameFilename bool

	// MinSize excludes files below the threshold from matching.
	MinSize int64
}

// MatchKey identifies file content across trees: the digest, plus the
// basename when same-filename matching is active.
type MatchKey struct {
	Digest string
	Base   string
}

// Engine runs set-algebra operations over an ordered list of tree
// indexes. The indexes are treated as immutable snapshots; mutations go
// to the filesystem via an OperationPlan, never to the indexes.
type Engine struct {
	trees []*index.Tree
	opts  Options

	// keys[i] maps each match key to the record indices holding it in
	// tree i, restricted to files at or above the min-size threshold.
	keys []map[MatchKey][]int
}

// New creates an engine over the given trees.
func New(trees []*index.Tree, opts Options) *Engine {
	e := &Engine{trees: trees, opts: opts}
	e.keys = make([]map[MatchKey][]int, len(trees))
	for i, t := range trees {
		m := make(map[MatchKey][]int)
		for j := range t.Records() {
			rec := t.Record(j)
			if rec.Size < opts.MinSize {
				continue
			}
			k := e.keyOf(rec)
			m[k] = append(m[k], j)
		}
		e.keys[i] = m
	}
	return e
}

// Trees returns the engine's tree indexes.
func (e *Engine) Trees() []*index.Tree { return e.trees }

func (e *Engine) keyOf(rec *types.FileRecord) MatchKey {
	k := MatchKey{Digest: rec.Digest}
	if e.opts.SameFilename {
		k.Base = rec.Base()
	}
	return k
}

// inOther reports whether a key occurs in any tree except the one at skip.
func (e *Engine) inOther(key MatchKey, skip int) bool {
	for i := range e.keys {
		if i == skip {
			continue
		}
		if len(e.keys[i][key]) > 0 {
			return true
		}
	}
	return false
}

// TreeIntersect holds per-tree intersection counters.
type TreeIntersect struct {
	Root   string
	Unique int64
	Shared int64
	Total  int64
}

// IntersectResult classifies every file occurrence in every tree as
// unique to its tree or shared with at least one other tree. Shared
// counts physical occurrences, not keys.
type IntersectResult struct {
	PerTree     []TreeIntersect
	UniqueTotal int64
	SharedTotal int64
	Total       int64
}

// Intersect computes intersection statistics across all trees.
func (e *Engine) Intersect() *IntersectResult {
	res := &IntersectResult{}
	for i, t := range e.trees {
		ti := TreeIntersect{Root: t.Root()}
		for key, idxs := range e.keys[i] {
			n := int64(len(idxs))
			if e.inOther(key, i) {
				ti.Shared += n
			} else {
				ti.Unique += n
			}
			ti.Total += n
		}
		res.PerTree = append(res.PerTree, ti)
		res.UniqueTotal += ti.Unique
		res.SharedTotal += ti.Shared
		res.Total += ti.Total
	}
	return res
}

// OnlyIn returns the records of tree i whose key occurs in no other
// tree, in the tree's scan order.
func (e *Engine) OnlyIn(i int) []types.FileRecord {
	t := e.trees[i]
	var out []types.FileRecord
	for j := range t.Records() {
		rec := t.Record(j)
		if rec.Size < e.opts.MinSize {
			continue
		}
		if !e.inOther(e.keyOf(rec), i) {
			out = append(out, *rec)
		}
	}
	return out
}

// Redundant returns, for tree i, every occurrence of a multiply-held
// digest that does not live on the canonical inode. The canonical file
// of a digest is the one ordered first by (device, inode, path).
func (e *Engine) Redundant(i int) []types.FileRecord {
	t := e.trees[i]
	var out []types.FileRecord
	for _, digest := range t.Digests() {
		idxs := t.ByDigest(digest)
		if len(idxs) < 2 {
			continue
		}
		members := sortedRecords(t, idxs)
		canonical := members[0]
		for _, rec := range members[1:] {
			if rec.Inode() == canonical.Inode() {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

// sortedRecords copies and orders the records at idxs by the
// deterministic (device, inode, path) tuple.
func sortedRecords(t *index.Tree, idxs []int) []types.FileRecord {
	recs := make([]types.FileRecord, 0, len(idxs))
	for _, j := range idxs {
		recs = append(recs, *t.Record(j))
	}
	sort.Slice(recs, func(a, b int) bool {
		return recs[a].Less(&recs[b])
	})
	return recs
}

// sortedKeys orders match keys for deterministic plan construction.
func sortedKeys(m map[MatchKey][]int) []MatchKey {
	keys := make([]MatchKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].Digest != keys[b].Digest {
			return keys[a].Digest < keys[b].Digest
		}
		return keys[a].Base < keys[b].Base
	})
	return keys
}

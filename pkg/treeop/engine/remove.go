package engine

import (
	"sort"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// PlanRemoveCopies plans cross-tree content-based deletion.
//
// With intersect semantics, every key present in the first tree and at
// least one later tree keeps all its occurrences in the first tree;
// every occurrence in the later trees is removed.
//
// Without intersect semantics, occurrences are merged across all trees
// per key and the newest-mtime copy is kept; ties fall back to the
// (device, inode, path) tuple.
func (e *Engine) PlanRemoveCopies(intersect bool) *Plan {
	if intersect {
		return e.planRemoveCopiesIntersect()
	}
	return e.planRemoveCopiesNewest()
}

func (e *Engine) planRemoveCopiesIntersect() *Plan {
	plan := &Plan{}
	for _, key := range sortedKeys(e.keys[0]) {
		if !e.inOther(key, 0) {
			continue
		}
		for i := 1; i < len(e.trees); i++ {
			idxs := e.keys[i][key]
			if len(idxs) == 0 {
				continue
			}
			for _, rec := range sortedRecords(e.trees[i], idxs) {
				plan.Add(Action{Kind: ActionRemove, Path: rec.Path, Size: rec.Size})
			}
		}
	}
	return plan
}

func (e *Engine) planRemoveCopiesNewest() *Plan {
	merged := e.mergeAll()
	plan := &Plan{}
	for _, key := range sortedMergedKeys(merged) {
		recs := merged[key]
		if len(recs) < 2 {
			continue
		}
		keeper := pickNewest(recs)
		ordered := append([]types.FileRecord(nil), recs...)
		sort.Slice(ordered, func(a, b int) bool {
			return ordered[a].Less(&ordered[b])
		})
		for _, rec := range ordered {
			if rec.Path == keeper.Path {
				continue
			}
			plan.Add(Action{Kind: ActionRemove, Path: rec.Path, Size: rec.Size})
		}
	}
	return plan
}

// PlanRemoveCopiesFromLast plans deletion restricted to the last tree:
// every key present both in the union of the earlier trees and in the
// last tree loses all its occurrences in the last tree.
func (e *Engine) PlanRemoveCopiesFromLast() *Plan {
	last := len(e.trees) - 1
	plan := &Plan{}
	for _, key := range sortedKeys(e.keys[last]) {
		if !e.inOther(key, last) {
			continue
		}
		for _, rec := range sortedRecords(e.trees[last], e.keys[last][key]) {
			plan.Add(Action{Kind: ActionRemove, Path: rec.Path, Size: rec.Size})
		}
	}
	return plan
}

// mergeAll collects all matching occurrences across every tree per key.
func (e *Engine) mergeAll() map[MatchKey][]types.FileRecord {
	merged := make(map[MatchKey][]types.FileRecord)
	for i, t := range e.trees {
		for key, idxs := range e.keys[i] {
			for _, j := range idxs {
				merged[key] = append(merged[key], *t.Record(j))
			}
		}
	}
	return merged
}

func sortedMergedKeys(m map[MatchKey][]types.FileRecord) []MatchKey {
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

// pickNewest returns the record with the newest mtime; ties resolve to
// the lowest (device, inode, path) tuple.
func pickNewest(recs []types.FileRecord) types.FileRecord {
	best := recs[0]
	for _, rec := range recs[1:] {
		if rec.MTime > best.MTime {
			best = rec
			continue
		}
		if rec.MTime == best.MTime && rec.Less(&best) {
			best = rec
		}
	}
	return best
}

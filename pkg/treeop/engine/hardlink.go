package engine

import (
	"sort"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// PlanHardlinkCopies plans in-place deduplication by hardlinking. For
// each match key held by more than one file across the given trees, the
// file ordered first by (device, inode, path) becomes the canonical;
// every other matching file on the same device is replaced by a hardlink
// to it. Matches on other devices cannot be hardlinked and are left
// alone. Files already on the canonical inode need no action.
func (e *Engine) PlanHardlinkCopies() *Plan {
	merged := e.mergeAll()
	plan := &Plan{}
	for _, key := range sortedMergedKeys(merged) {
		recs := merged[key]
		if len(recs) < 2 {
			continue
		}
		ordered := append([]types.FileRecord(nil), recs...)
		sort.Slice(ordered, func(a, b int) bool {
			return ordered[a].Less(&ordered[b])
		})
		canonical := ordered[0]
		for _, rec := range ordered[1:] {
			if rec.Inode() == canonical.Inode() {
				continue
			}
			if rec.Dev != canonical.Dev {
				logger.Info("cross-device match skipped",
					"canonical", canonical.Path, "path", rec.Path)
				continue
			}
			plan.Add(Action{
				Kind:   ActionHardlink,
				Path:   rec.Path,
				Target: canonical.Path,
				Size:   rec.Size,
			})
		}
	}
	return plan
}

// PlanBreakHardlinks plans the inverse: for every hardlink group inside
// tree i, each member after the first (paths ordered lexicographically)
// is rewritten as an independent copy.
func (e *Engine) PlanBreakHardlinks(i int) *Plan {
	t := e.trees[i]
	plan := &Plan{}
	for _, group := range t.HardlinkGroups() {
		for _, j := range group[1:] {
			rec := t.Record(j)
			plan.Add(Action{Kind: ActionBreakHardlink, Path: rec.Path, Size: rec.Size})
		}
	}
	return plan
}

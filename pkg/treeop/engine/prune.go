package engine

import (
	"os"
	"path/filepath"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// PlanEmptyDirs walks each root bottom-up and plans removal of every
// directory left without entries. A .dirdb cache does not count as
// content; it is deleted with its directory. removed holds file paths a
// preceding plan deletes, so a dry run can simulate the combined result.
// The roots themselves are never removed.
func PlanEmptyDirs(roots []string, removed map[string]bool) *Plan {
	if removed == nil {
		removed = make(map[string]bool)
	}
	plan := &Plan{}
	for _, root := range roots {
		pruneDir(root, true, removed, plan)
	}
	return plan
}

// pruneDir reports whether dir would be empty after the plan runs,
// appending removal actions for empty subdirectories post-order.
func pruneDir(dir string, isRoot bool, removed map[string]bool, plan *Plan) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("skipping directory", "dir", dir, "error", err)
		return false
	}

	empty := true
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if !pruneDir(path, false, removed, plan) {
				empty = false
			}
			continue
		}
		if entry.Name() == types.CacheFileName {
			continue
		}
		if !removed[path] {
			empty = false
		}
	}

	if !empty || isRoot {
		return false
	}
	plan.Add(Action{Kind: ActionRemoveDir, Path: dir})
	return true
}

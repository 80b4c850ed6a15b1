package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// PlanExtract plans copying the files unique to tree i into dst,
// preserving only their basenames. Basename collisions — against files
// already in dst or against earlier planned copies — get a numeric
// suffix; nothing is ever overwritten.
func (e *Engine) PlanExtract(i int, dst string) *Plan {
	taken := make(map[string]bool)
	if entries, err := os.ReadDir(dst); err == nil {
		for _, entry := range entries {
			taken[entry.Name()] = true
		}
	}

	plan := &Plan{}
	for _, rec := range e.OnlyIn(i) {
		name := rec.Base()
		for n := 1; taken[name]; n++ {
			name = fmt.Sprintf("%s.%d", rec.Base(), n)
		}
		taken[name] = true
		plan.Add(Action{
			Kind:   ActionCopyExtract,
			Path:   filepath.Join(dst, name),
			Target: rec.Path,
			Size:   rec.Size,
		})
	}
	return plan
}

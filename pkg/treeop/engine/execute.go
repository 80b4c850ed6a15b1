package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/jovermann/treeop/pkg/treeop/dirdb"
)

// ExecOptions controls plan execution.
type ExecOptions struct {
	// DryRun prints Would-lines instead of mutating anything; counters
	// still reflect what would happen and no cache is touched.
	DryRun bool

	// Out receives the dry-run lines.
	Out io.Writer

	// Stop, when set and flipped, ends execution after the current
	// action completes so the filesystem stays consistent on signal.
	Stop *atomic.Bool
}

// ExecStats accumulates the uniform counters of one executed plan.
type ExecStats struct {
	RemovedFiles     int64
	RemovedBytes     int64
	HardlinksCreated int64
	BrokenHardlinks  int64
	CopiedFiles      int64
	CopiedBytes      int64
	RemovedDirs      int64
	Skipped          int64
}

// Execute runs the plan in order. Actions move from Planned to Executed
// or Skipped(reason); per-action errors never abort the pass. After
// execution the persisted caches of mutated directories are patched so
// they hold no entries for files that no longer match.
func Execute(plan *Plan, opts ExecOptions) *ExecStats {
	stats := &ExecStats{}

	// Patched caches: directory -> filenames to drop.
	dropped := make(map[string][]string)

	for i := range plan.Actions {
		if opts.Stop != nil && opts.Stop.Load() {
			break
		}
		a := &plan.Actions[i]
		if opts.DryRun {
			fmt.Fprintln(opts.Out, a.String())
			a.Status = StatusExecuted
			count(stats, a)
			continue
		}

		var err error
		switch a.Kind {
		case ActionRemove:
			err = os.Remove(a.Path)
		case ActionHardlink:
			err = execHardlink(a)
		case ActionCopyExtract:
			err = execCopy(a)
		case ActionBreakHardlink:
			err = execBreakHardlink(a)
		case ActionRemoveDir:
			err = execRemoveDir(a)
		}

		if err != nil {
			a.Status = StatusSkipped
			if a.Reason == "" {
				a.Reason = classify(err)
			}
			stats.Skipped++
			logger.Warn("action skipped", "action", a.String(), "reason", a.Reason, "error", err)
			continue
		}

		a.Status = StatusExecuted
		count(stats, a)
		logger.Info("executed", "action", a.String())

		switch a.Kind {
		case ActionRemove, ActionHardlink:
			dir := filepath.Dir(a.Path)
			dropped[dir] = append(dropped[dir], filepath.Base(a.Path))
		}
	}

	if !opts.DryRun {
		patchCaches(dropped)
	}
	return stats
}

func count(stats *ExecStats, a *Action) {
	switch a.Kind {
	case ActionRemove:
		stats.RemovedFiles++
		stats.RemovedBytes += a.Size
	case ActionHardlink:
		stats.HardlinksCreated++
	case ActionCopyExtract:
		stats.CopiedFiles++
		stats.CopiedBytes += a.Size
	case ActionBreakHardlink:
		stats.BrokenHardlinks++
	case ActionRemoveDir:
		stats.RemovedDirs++
	}
}

// classify maps an execution error to a skip reason.
func classify(err error) string {
	switch {
	case os.IsNotExist(err):
		return SkipRaced
	case os.IsPermission(err):
		return SkipPermission
	case errors.Is(err, syscall.EXDEV):
		return SkipCrossDevice
	default:
		return "io-error"
	}
}

// execHardlink replaces a.Path with a hardlink to a.Target. The link is
// created under a temporary name and renamed over the original so the
// path never disappears.
func execHardlink(a *Action) error {
	ti, err := os.Stat(a.Target)
	if err != nil {
		return err
	}
	fi, err := os.Lstat(a.Path)
	if err != nil {
		return err
	}
	if os.SameFile(ti, fi) {
		a.Reason = SkipInvariant
		return errors.New("already the same inode")
	}

	tmp := tempName(a.Path)
	if err := os.Link(a.Target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, a.Path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// execCopy copies a.Target to a.Path without overwriting. If the planned
// name was taken in the meantime, a further ".N" suffix (N from 1) is
// appended to the planned name until a free name is found.
func execCopy(a *Action) error {
	src, err := os.Open(a.Target)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return err
	}

	path := a.Path
	var dst *os.File
	for n := 1; ; n++ {
		dst, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if err == nil {
			break
		}
		if !os.IsExist(err) || n > 10000 {
			return err
		}
		path = fmt.Sprintf("%s.%d", a.Path, n)
	}
	a.Path = path

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// execBreakHardlink rewrites a.Path as an independent copy: the contents
// go to a temporary file in the same directory which is renamed over the
// original. Mode and mtime are preserved so the digest cache entry for
// the file stays valid.
func execBreakHardlink(a *Action) error {
	info, err := os.Stat(a.Path)
	if err != nil {
		return err
	}
	src, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := tempName(a.Path)
	dst, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, a.Path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// execRemoveDir deletes a directory along with its cache file.
func execRemoveDir(a *Action) error {
	if _, err := dirdb.Remove(a.Path); err != nil {
		return err
	}
	return os.Remove(a.Path)
}

func tempName(path string) string {
	return filepath.Join(filepath.Dir(path), ".treeop-tmp-"+uuid.NewString())
}

// patchCaches drops the entries of mutated files from their directory
// caches. Cache write failures are logged, never fatal.
func patchCaches(dropped map[string][]string) {
	dirs := make([]string, 0, len(dropped))
	for dir := range dropped {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if err := dirdb.Drop(dir, dropped[dir]); err != nil {
			logger.Warn("cache patch failed", "dir", dir, "error", err)
		}
	}
}

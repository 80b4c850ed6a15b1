package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jovermann/treeop/pkg/treeop/engine"
	"github.com/jovermann/treeop/pkg/treeop/hasher"
	"github.com/jovermann/treeop/pkg/treeop/index"
	"github.com/jovermann/treeop/pkg/treeop/logging"
	"github.com/jovermann/treeop/pkg/treeop/progress"
	"github.com/jovermann/treeop/pkg/treeop/report"
	"github.com/jovermann/treeop/pkg/treeop/scanner"
	"github.com/jovermann/treeop/pkg/treeop/types"
	"github.com/spf13/cobra"
)

// runOptions is the resolved flag surface of one invocation.
type runOptions struct {
	roots []string

	intersect      bool
	removeCopies   bool
	removeFromLast bool
	hardlinkCopies bool
	breakHardlinks bool

	listFiles     bool
	listRedundant bool
	listHardlinks bool
	listFirst     bool
	listLast      bool
	extractFirst  string
	extractLast   string

	removeEmptyDirs bool
	stats           bool
	readbench       bool
	uniqueHashLen   bool
	sizeHistogram   int64
	maxSize         int64

	sameFilename bool
	minSize      int64
	dryRun       bool

	newDB    bool
	updateDB bool
	removeDB bool

	bufSize  int
	progress bool
	width    int
	verbose  bool
}

// runTreeop is the sequential driver: scan every root, build the engine,
// run the selected operation, print counters.
func runTreeop(cmd *cobra.Command, args []string) error {
	opts, err := gatherOptions(cmd, args)
	if err != nil {
		return err
	}
	logging.SetVerbose(opts.verbose)
	if err := opts.validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if opts.removeDB {
		return runRemoveDB(opts)
	}
	if opts.readbench {
		return runReadbench(out, opts)
	}

	stop := watchSignals()

	var tracker *progress.Tracker
	if opts.progress {
		tracker = progress.New(os.Stderr, opts.width)
	}

	mode := scanner.CacheDefault
	switch {
	case opts.newDB:
		mode = scanner.CacheNew
	case opts.updateDB:
		mode = scanner.CacheUpdate
	}

	trees := make([]*index.Tree, 0, len(opts.roots))
	elapsed := make([]time.Duration, 0, len(opts.roots))
	for _, root := range opts.roots {
		if stop.Load() {
			break
		}
		start := time.Now()
		s := scanner.New(scanner.Options{
			Root:     root,
			Mode:     mode,
			DryRun:   opts.dryRun,
			BufSize:  opts.bufSize,
			Progress: tracker,
		})
		tree, err := s.Scan()
		if err != nil {
			tracker.Finish()
			return err
		}
		trees = append(trees, tree)
		elapsed = append(elapsed, time.Since(start))
	}
	tracker.Finish()
	if stop.Load() || len(trees) < len(opts.roots) {
		return fmt.Errorf("interrupted")
	}

	e := engine.New(trees, engine.Options{
		SameFilename: opts.sameFilename,
		MinSize:      opts.minSize,
	})

	if opts.intersect {
		printIntersect(out, e.Intersect())
	}

	if err := runListings(out, e, opts); err != nil {
		return err
	}

	if plan, counter := buildMutation(e, opts); plan != nil {
		runPlan(out, plan, counter, rootPaths(trees), opts, stop)
	} else if opts.removeEmptyDirs {
		prune := engine.PlanEmptyDirs(rootPaths(trees), nil)
		stats := engine.Execute(prune, engine.ExecOptions{DryRun: opts.dryRun, Out: out, Stop: stop})
		block := &report.Block{}
		block.Add("removed-dirs", stats.RemovedDirs)
		block.Print(out)
	}

	if opts.showAggregates() {
		printTreeStats(out, trees, elapsed, opts.stats)
	}
	if opts.sizeHistogram > 0 {
		if err := report.Histogram(out, allRecords(trees), opts.sizeHistogram, opts.maxSize); err != nil {
			return err
		}
	}
	if opts.uniqueHashLen {
		fmt.Fprintf(out, "unique-hash-len: %d\n", report.UniqueHashBits(allDigests(trees)))
	}

	return nil
}

// buildMutation materializes the plan of the selected mutating
// operation, if any, together with its counter label.
func buildMutation(e *engine.Engine, opts *runOptions) (*engine.Plan, string) {
	switch {
	case opts.removeCopies:
		return e.PlanRemoveCopies(opts.intersect), "removed-files"
	case opts.removeFromLast:
		return e.PlanRemoveCopiesFromLast(), "removed-files"
	case opts.hardlinkCopies:
		return e.PlanHardlinkCopies(), "hardlinks-created"
	case opts.breakHardlinks:
		plan := &engine.Plan{}
		for i := range e.Trees() {
			sub := e.PlanBreakHardlinks(i)
			plan.Actions = append(plan.Actions, sub.Actions...)
		}
		return plan, "break-hardlinks"
	case opts.extractFirst != "":
		return e.PlanExtract(0, opts.extractFirst), "only-in-first"
	case opts.extractLast != "":
		return e.PlanExtract(len(e.Trees())-1, opts.extractLast), "only-in-last"
	}
	return nil, ""
}

// runPlan executes a mutation plan plus the optional empty-directory
// post-pass, then prints the counters.
func runPlan(out io.Writer, plan *engine.Plan, counter string, roots []string, opts *runOptions, stop *atomic.Bool) {
	stats := engine.Execute(plan, engine.ExecOptions{DryRun: opts.dryRun, Out: out, Stop: stop})

	var pruneStats *engine.ExecStats
	if opts.removeEmptyDirs {
		var removed map[string]bool
		if opts.dryRun {
			removed = plan.RemovedPaths()
		}
		prune := engine.PlanEmptyDirs(roots, removed)
		pruneStats = engine.Execute(prune, engine.ExecOptions{DryRun: opts.dryRun, Out: out, Stop: stop})
	}

	block := &report.Block{}
	switch counter {
	case "removed-files":
		block.Add("removed-files", stats.RemovedFiles)
	case "hardlinks-created":
		block.Add("hardlinks-created", stats.HardlinksCreated)
	case "break-hardlinks":
		block.Add("break-hardlinks", stats.BrokenHardlinks)
	case "only-in-first", "only-in-last":
		block.Add(counter, stats.CopiedFiles)
	}
	if pruneStats != nil {
		block.Add("removed-dirs", pruneStats.RemovedDirs)
	}
	block.Print(out)
}

// runListings prints the pure reporter outputs.
func runListings(out io.Writer, e *engine.Engine, opts *runOptions) error {
	trees := e.Trees()

	if opts.listFiles {
		report.Listing(out, allRecords(trees))
	}
	if opts.listRedundant {
		var recs []types.FileRecord
		for i := range trees {
			recs = append(recs, e.Redundant(i)...)
		}
		report.Listing(out, recs)
	}
	if opts.listHardlinks {
		var recs []types.FileRecord
		for _, t := range trees {
			for _, group := range t.HardlinkGroups() {
				for _, j := range group {
					recs = append(recs, *t.Record(j))
				}
			}
		}
		report.Listing(out, recs)
	}
	if opts.listFirst {
		recs := e.OnlyIn(0)
		report.Listing(out, recs)
		block := &report.Block{}
		block.Add("only-in-first", int64(len(recs)))
		block.Print(out)
	}
	if opts.listLast {
		recs := e.OnlyIn(len(trees) - 1)
		report.Listing(out, recs)
		block := &report.Block{}
		block.Add("only-in-last", int64(len(recs)))
		block.Print(out)
	}
	return nil
}

// printIntersect prints per-tree and aggregate intersection counters.
func printIntersect(out io.Writer, res *engine.IntersectResult) {
	for _, ti := range res.PerTree {
		fmt.Fprintf(out, "%s:\n", ti.Root)
		block := &report.Block{}
		block.Add("unique-files", ti.Unique)
		block.Add("shared-files", ti.Shared)
		block.Add("total-files", ti.Total)
		block.Print(out)
	}
	block := &report.Block{}
	block.Add("unique-total", res.UniqueTotal)
	block.Add("shared-total", res.SharedTotal)
	block.Add("total", res.Total)
	block.Print(out)
}

// printTreeStats prints per-root aggregates and, with --stats, the
// redundancy and hardlink breakdown.
func printTreeStats(out io.Writer, trees []*index.Tree, elapsed []time.Duration, full bool) {
	for i, t := range trees {
		fmt.Fprintf(out, "%s:\n", t.Root())
		block := &report.Block{}
		block.Add("files", t.Files())
		block.Add("dirs", t.Dirs())
		block.Add("total-size", t.TotalSize())
		if full {
			redFiles, redSize := t.RedundantStats()
			hlFiles, hlSize := t.HardlinkStats()
			block.Add("redundant-files", redFiles)
			block.Add("redundant-size", redSize)
			block.Add("hardlinked-files", hlFiles)
			block.Add("hardlinked-size", hlSize)
		}
		block.AddString("elapsed", elapsed[i].Round(time.Millisecond).String())
		block.Print(out)
	}

	if len(trees) > 1 {
		var files, dirs, size int64
		for _, t := range trees {
			files += t.Files()
			dirs += t.Dirs()
			size += t.TotalSize()
		}
		block := &report.Block{}
		block.Add("total-files", files)
		block.Add("total-dirs", dirs)
		block.Add("total-size", size)
		block.Print(out)
	}
}

// runRemoveDB deletes every .dirdb under the given roots; nothing is hashed.
func runRemoveDB(opts *runOptions) error {
	logger := logging.Get("dirdb")
	for _, root := range opts.roots {
		removed, err := scanner.RemoveCaches(root)
		if err != nil {
			return err
		}
		logger.Info("caches removed", "root", root, "count", removed)
	}
	return nil
}

// runReadbench stream-reads every file under the roots and prints the
// achieved read rate.
func runReadbench(out io.Writer, opts *runOptions) error {
	h := hasher.New(opts.bufSize)
	var bytes, files int64
	var elapsed time.Duration
	for _, root := range opts.roots {
		res, err := h.Bench(root)
		if err != nil {
			return err
		}
		bytes += res.Bytes
		files += res.Files
		elapsed += res.Elapsed
	}
	var rate float64
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(bytes) / secs
	}
	block := &report.Block{}
	block.Add("bufsize", int64(h.BufSize()))
	block.Add("read-rate", int64(rate))
	block.AddString("elapsed", elapsed.Round(time.Millisecond).String())
	block.Print(out)
	return nil
}

// watchSignals flips the returned flag on SIGINT/SIGTERM. The current
// action completes, then the driver stops.
func watchSignals() *atomic.Bool {
	var stop atomic.Bool
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		stop.Store(true)
	}()
	return &stop
}

func rootPaths(trees []*index.Tree) []string {
	roots := make([]string, len(trees))
	for i, t := range trees {
		roots[i] = t.Root()
	}
	return roots
}

func allRecords(trees []*index.Tree) []types.FileRecord {
	var recs []types.FileRecord
	for _, t := range trees {
		recs = append(recs, t.Records()...)
	}
	return recs
}

func allDigests(trees []*index.Tree) []string {
	var digests []string
	for _, t := range trees {
		for i := range t.Records() {
			digests = append(digests, t.Record(i).Digest)
		}
	}
	return digests
}

// showAggregates reports whether per-root statistics should print: they
// are the default output and part of --stats.
func (o *runOptions) showAggregates() bool {
	if o.stats {
		return true
	}
	return !o.intersect && !o.removeCopies && !o.removeFromLast &&
		!o.hardlinkCopies && !o.breakHardlinks &&
		!o.listFiles && !o.listRedundant && !o.listHardlinks &&
		!o.listFirst && !o.listLast &&
		o.extractFirst == "" && o.extractLast == "" &&
		!o.removeEmptyDirs && o.sizeHistogram == 0 && !o.uniqueHashLen
}

// Package engine implements treeop's cross-tree set algebra: given the
// immutable indexes of one or more scanned trees it computes
// intersections, unique and redundant sets, and hardlink groups, and
// materializes mutations as an ordered OperationPlan that is executed
// (or printed, in dry-run) in a single pass.
package engine

import "fmt"

// Kind tags one planned action.
type Kind int

const (
	// ActionRemove deletes the file at Path.
	ActionRemove Kind = iota

	// ActionHardlink replaces the file at Path with a hardlink to Target.
	ActionHardlink

	// ActionCopyExtract copies Target into the new file Path.
	ActionCopyExtract

	// ActionBreakHardlink rewrites the file at Path as an independent copy.
	ActionBreakHardlink

	// ActionRemoveDir removes the empty directory at Path.
	ActionRemoveDir
)

// Status tracks an action through execution.
type Status int

const (
	// StatusPlanned is the initial state of every action.
	StatusPlanned Status = iota

	// StatusExecuted marks an action applied to the filesystem.
	StatusExecuted

	// StatusSkipped marks an action dropped at execution time; the skip
	// reason is recorded on the action.
	StatusSkipped
)

// Skip reasons, reported in verbose mode. Skipped actions do not inflate
// success counters.
const (
	SkipCrossDevice = "cross-device"
	SkipPermission  = "permission"
	SkipRaced       = "raced-away"
	SkipInvariant   = "would-break-invariant"
)

// Action is one tagged mutation in an OperationPlan. It carries the byte
// size it affects so counters accumulate without re-statting.
type Action struct {
	Kind Kind

	// Path is the file or directory the action mutates. For
	// ActionCopyExtract it is the destination path.
	Path string

	// Target is the other endpoint where one exists: the canonical file
	// for ActionHardlink, the source file for ActionCopyExtract.
	Target string

	// Size is the byte size affected by the action.
	Size int64

	Status Status
	Reason string
}

// String renders the action as a dry-run line.
func (a *Action) String() string {
	switch a.Kind {
	case ActionRemove:
		return fmt.Sprintf("Would remove %s", a.Path)
	case ActionHardlink:
		return fmt.Sprintf("Would hardlink %s -> %s", a.Path, a.Target)
	case ActionCopyExtract:
		return fmt.Sprintf("Would copy %s -> %s", a.Target, a.Path)
	case ActionBreakHardlink:
		return fmt.Sprintf("Would copy %s", a.Path)
	case ActionRemoveDir:
		return fmt.Sprintf("Would rmdir %s", a.Path)
	}
	return "Would <unknown>"
}

// Plan is an ordered sequence of actions. Plans are materialized in full
// before execution so that mutation order is a pure function of the plan.
type Plan struct {
	Actions []Action
}

// Add appends an action in planned state.
func (p *Plan) Add(a Action) {
	a.Status = StatusPlanned
	p.Actions = append(p.Actions, a)
}

// Empty reports whether the plan holds no actions.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

// RemovedPaths returns the file paths the plan would delete (its
// ActionRemove actions), used by the empty-directory post-pass to simulate a dry run.
func (p *Plan) RemovedPaths() map[string]bool {
	removed := make(map[string]bool)
	for _, a := range p.Actions {
		if a.Kind == ActionRemove {
			removed[a.Path] = true
		}
	}
	return removed
}

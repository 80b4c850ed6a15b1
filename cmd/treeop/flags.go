package main

import (
	"fmt"
	"os"

	"github.com/jovermann/treeop/pkg/treeop/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// gatherOptions resolves the flag surface into a runOptions, parsing
// size strings up front so bad values fail before any scanning.
func gatherOptions(cmd *cobra.Command, args []string) (*runOptions, error) {
	f := cmd.Flags()
	opts := &runOptions{roots: args}

	boolFlags := map[string]*bool{
		"intersect":               &opts.intersect,
		"remove-copies":           &opts.removeCopies,
		"remove-copies-from-last": &opts.removeFromLast,
		"hardlink-copies":         &opts.hardlinkCopies,
		"break-hardlinks":         &opts.breakHardlinks,
		"list-files":              &opts.listFiles,
		"list-redundant":          &opts.listRedundant,
		"list-hardlinks":          &opts.listHardlinks,
		"list-first":              &opts.listFirst,
		"list-last":               &opts.listLast,
		"remove-empty-dirs":       &opts.removeEmptyDirs,
		"stats":                   &opts.stats,
		"readbench":               &opts.readbench,
		"unique-hash-len":         &opts.uniqueHashLen,
		"same-filename":           &opts.sameFilename,
		"dry-run":                 &opts.dryRun,
		"new-dirdb":               &opts.newDB,
		"update-dirdb":            &opts.updateDB,
		"remove-dirdb":            &opts.removeDB,
		"progress":                &opts.progress,
		"verbose":                 &opts.verbose,
	}
	for name, dst := range boolFlags {
		v, err := f.GetBool(name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	var err error
	if opts.extractFirst, err = f.GetString("extract-first"); err != nil {
		return nil, err
	}
	if opts.extractLast, err = f.GetString("extract-last"); err != nil {
		return nil, err
	}
	if opts.sizeHistogram, err = f.GetInt64("size-histogram"); err != nil {
		return nil, err
	}
	if opts.width, err = f.GetInt("width"); err != nil {
		return nil, err
	}

	maxSizeStr, err := f.GetString("max-size")
	if err != nil {
		return nil, err
	}
	if opts.maxSize, err = types.ParseSize(maxSizeStr); err != nil {
		return nil, fmt.Errorf("invalid max-size %q: %w", maxSizeStr, err)
	}

	minSizeStr := viper.GetString("min_size")
	if opts.minSize, err = types.ParseSize(minSizeStr); err != nil {
		return nil, fmt.Errorf("invalid min-size %q: %w", minSizeStr, err)
	}

	bufSizeStr := viper.GetString("bufsize")
	bufSize, err := types.ParseSize(bufSizeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid bufsize %q: %w", bufSizeStr, err)
	}
	opts.bufSize = int(bufSize)

	return opts, nil
}

// mutation reports whether a mutating operation is selected.
func (o *runOptions) mutation() bool {
	return o.removeCopies || o.removeFromLast || o.hardlinkCopies || o.breakHardlinks
}

// operation reports whether any operation beyond a plain scan is selected.
func (o *runOptions) operation() bool {
	return o.mutation() || o.intersect ||
		o.listFiles || o.listRedundant || o.listHardlinks ||
		o.listFirst || o.listLast ||
		o.extractFirst != "" || o.extractLast != "" ||
		o.removeEmptyDirs || o.stats || o.readbench ||
		o.uniqueHashLen || o.sizeHistogram > 0
}

// validate rejects impossible flag combinations before scanning starts.
func (o *runOptions) validate() error {
	if len(o.roots) == 0 {
		return usageErrorf("at least one root directory is required")
	}
	for _, root := range o.roots {
		info, err := os.Stat(root)
		if err != nil {
			return usageErrorf("path %q does not exist", root)
		}
		if !info.IsDir() {
			return usageErrorf("path %q is not a directory", root)
		}
	}

	if o.newDB && o.updateDB {
		return usageErrorf("cannot combine --new-dirdb with --update-dirdb")
	}
	if o.removeDB && (o.operation() || o.newDB || o.updateDB) {
		return usageErrorf("--remove-dirdb cannot be combined with other operations")
	}

	mutations := 0
	for _, set := range []bool{o.removeCopies, o.removeFromLast, o.hardlinkCopies, o.breakHardlinks} {
		if set {
			mutations++
		}
	}
	if mutations > 1 {
		return usageErrorf("only one of --remove-copies, --remove-copies-from-last, --hardlink-copies, --break-hardlinks may be given")
	}

	if o.intersect && len(o.roots) < 2 {
		return usageErrorf("--intersect requires at least two roots")
	}
	if o.removeFromLast && len(o.roots) < 2 {
		return usageErrorf("--remove-copies-from-last requires at least two roots")
	}
	if (o.listFirst || o.listLast || o.extractFirst != "" || o.extractLast != "") && !o.intersect {
		return usageErrorf("--list-first/--list-last/--extract-first/--extract-last require --intersect")
	}
	if o.readbench && (o.mutation() || o.intersect) {
		return usageErrorf("--readbench cannot be combined with other operations")
	}
	return nil
}

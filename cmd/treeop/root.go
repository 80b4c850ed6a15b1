package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "treeop [options] <root> [<root> ...]",
		Short: "Operations on huge directory trees",
		Long: `Treeop treats each directory tree as a multiset of files identified by
content. It maintains a per-directory digest cache (.dirdb) so repeated
runs only hash files that changed, and answers cross-tree questions:
which files are shared, which are redundant, and how much space copies
or hardlinks would reclaim.

Examples:
  treeop ~/photos                          # Scan and print aggregates
  treeop --stats ~/photos                  # Include redundancy stats
  treeop --intersect a b                   # Intersection statistics
  treeop --intersect --remove-copies a b   # Delete b's copies of a's files
  treeop --hardlink-copies --min-size 1M . # Dedup in place via hardlinks
  treeop --remove-dirdb ~/photos           # Drop all caches under a tree`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTreeop,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/treeop/config.yaml)")

	// Operations.
	f.BoolP("intersect", "i", false, "compute the intersection across two or more roots")
	f.Bool("remove-copies", false, "delete duplicate content in trees other than the first (without --intersect: keep only the newest copy)")
	f.Bool("remove-copies-from-last", false, "restrict deletion to the last root")
	f.Bool("hardlink-copies", false, "replace duplicates on the same device with hardlinks")
	f.Bool("break-hardlinks", false, "convert hardlink group members back into independent files")
	f.BoolP("list-files", "l", false, "list all indexed files")
	f.Bool("list-redundant", false, "list redundant duplicate files")
	f.Bool("list-hardlinks", false, "list hardlink group members")
	f.Bool("list-first", false, "print files unique to the first tree")
	f.Bool("list-last", false, "print files unique to the last tree")
	f.String("extract-first", "", "copy files unique to the first tree into `DST`")
	f.String("extract-last", "", "copy files unique to the last tree into `DST`")
	f.Bool("remove-empty-dirs", false, "remove directories left without entries (bottom-up)")
	f.BoolP("stats", "s", false, "print aggregate statistics including redundancy")
	f.Bool("readbench", false, "stream-read every file and report the read rate")
	f.Int64("size-histogram", 0, "print a file size histogram with batch size `N` bytes")
	f.String("max-size", "0", "maximum file size to include in the size histogram")
	f.Bool("unique-hash-len", false, "print the minimum digest prefix in bits keeping contents unique")

	// Matching and execution behavior.
	f.Bool("same-filename", false, "match only when both content and filename agree")
	f.String("min-size", "0", "exclude files below this size from matching (e.g. 100K, 1M)")
	f.BoolP("dry-run", "d", false, "plan only; print Would-lines, mutate nothing")

	// Cache lifecycle.
	f.Bool("new-dirdb", false, "ignore existing caches, rehash all files, overwrite")
	f.BoolP("update-dirdb", "u", false, "refresh caches, forcing a write even when unchanged")
	f.Bool("remove-dirdb", false, "traverse only to delete .dirdb files")

	// Tuning and output.
	f.String("bufsize", "1M", "read buffer size for hashing (e.g. 256K, 1M)")
	f.BoolP("progress", "p", false, "print a progress line once per second")
	f.IntP("width", "W", 0, "maximum width of the progress line")
	f.BoolP("verbose", "v", false, "print each action taken")

	for _, name := range []string{"min-size", "bufsize", "width", "progress", "verbose"} {
		_ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), f.Lookup(name))
	}
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "treeop"))
		if homeDir, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "treeop"))
		}
	}

	viper.SetEnvPrefix("TREEOP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("bufsize", "1M")
	viper.SetDefault("min_size", "0")

	// Missing config file is fine.
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// usageErrorf reports an impossible flag combination; it aborts before
// any scanning happens.
func usageErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

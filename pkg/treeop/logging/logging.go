// Package logging provides the shared logging setup for treeop.
// Log output goes to stderr so that counter blocks and listings on stdout
// stay machine-readable.
//
// Basic usage:
//
//	logging.Init("debug")
//	logger := logging.Get("scanner")
//	logger.Warn("skipping file", "path", path, "error", err)
package logging

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

var (
	mu   sync.Mutex
	root = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
)

func init() {
	root.SetLevel(log.WarnLevel)
}

// ParseLevel parses a level string into a charmbracelet log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Init sets the global log level. Unknown level strings leave the
// current level unchanged and return an error.
func Init(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	root.SetLevel(lvl)
	return nil
}

// SetVerbose switches between the default warn level and info level.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		root.SetLevel(log.InfoLevel)
	} else {
		root.SetLevel(log.WarnLevel)
	}
}

// Get returns a logger for the named component.
func Get(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root.WithPrefix(component)
}

// Package progress renders a single-line scan progress display.
//
// The line is rewritten in place on stderr at most once per second and
// shows cumulative file, directory, and byte counters, the hashing rate,
// and the abbreviated path currently being processed.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// DefaultWidth is the maximum progress line width.
const DefaultWidth = 160

// Tracker accumulates scan counters and paints the progress line.
// All methods are safe for concurrent use; a nil Tracker is a no-op.
type Tracker struct {
	mu          sync.Mutex
	out         io.Writer
	width       int
	start       time.Time
	lastPrint   time.Time
	files       int64
	dirs        int64
	bytes       int64
	hashedBytes int64
	current     string
	lastLineLen int
}

// New creates a Tracker writing to out. A width of 0 uses DefaultWidth.
func New(out io.Writer, width int) *Tracker {
	if width <= 0 {
		width = DefaultWidth
	}
	now := time.Now()
	return &Tracker{out: out, width: width, start: now, lastPrint: now}
}

// Dir records entering a directory.
func (t *Tracker) Dir(path string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.dirs++
	t.current = path
	t.tick()
	t.mu.Unlock()
}

// File records one processed file of the given size.
func (t *Tracker) File(size int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.files++
	t.bytes += size
	t.tick()
	t.mu.Unlock()
}

// HashBytes records bytes fed through the hasher.
func (t *Tracker) HashBytes(n int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.hashedBytes += n
	t.tick()
	t.mu.Unlock()
}

// Finish clears the progress line.
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastLineLen > 0 {
		fmt.Fprintf(t.out, "\r%s\r", strings.Repeat(" ", t.lastLineLen))
		t.lastLineLen = 0
	}
}

// tick repaints the line if at least a second has passed. Callers hold the mutex.
func (t *Tracker) tick() {
	now := time.Now()
	if now.Sub(t.lastPrint) < time.Second {
		return
	}
	t.lastPrint = now

	elapsed := now.Sub(t.start).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(t.hashedBytes) / elapsed
	}
	line := fmt.Sprintf("F:%d D:%d B:%s H:%.1fMB/s",
		t.files, t.dirs, types.FormatSize(t.bytes), rate/(1024*1024))
	if t.current != "" {
		avail := t.width - len(line) - 1
		if avail > 0 {
			line += " " + abbreviate(t.current, avail)
		}
	}
	if len(line) > t.width {
		line = line[:t.width]
	}

	pad := 0
	if t.lastLineLen > len(line) {
		pad = t.lastLineLen - len(line)
	}
	fmt.Fprintf(t.out, "\r%s%s\r", line, strings.Repeat(" ", pad))
	t.lastLineLen = len(line)
}

// abbreviate shortens a path to maxLen by trimming the front.
func abbreviate(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[len(path)-maxLen:]
	}
	return "..." + path[len(path)-(maxLen-3):]
}

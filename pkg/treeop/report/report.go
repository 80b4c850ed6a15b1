// Package report emits treeop's user-facing output: the fixed-label
// counter block and the column-aligned file listings. Counter labels are
// stable; tests key on them.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// Block is an ordered list of counters printed one per line as
// "label: value". Values start at a common column.
type Block struct {
	lines []line
}

type line struct {
	label string
	value string
}

// Add appends an integer counter.
func (b *Block) Add(label string, value int64) {
	b.lines = append(b.lines, line{label: label, value: fmt.Sprintf("%d", value)})
}

// AddString appends a counter with a preformatted value.
func (b *Block) AddString(label, value string) {
	b.lines = append(b.lines, line{label: label, value: value})
}

// Print writes the block with labels padded to a common width.
func (b *Block) Print(w io.Writer) {
	width := 0
	for _, l := range b.lines {
		if len(l.label) > width {
			width = len(l.label)
		}
	}
	for _, l := range b.lines {
		fmt.Fprintf(w, "%s:%s %s\n", l.label, strings.Repeat(" ", width-len(l.label)), l.value)
	}
}

// Listing prints records as "<size> <digest> <path>" rows. The size
// column is right-aligned to the widest value so the digest column
// starts at the same offset on every line.
func Listing(w io.Writer, recs []types.FileRecord) {
	sizeWidth := 1
	for _, rec := range recs {
		if n := len(fmt.Sprintf("%d", rec.Size)); n > sizeWidth {
			sizeWidth = n
		}
	}
	for _, rec := range recs {
		fmt.Fprintf(w, "%*d %s %s\n", sizeWidth, rec.Size, rec.Digest, rec.Path)
	}
}

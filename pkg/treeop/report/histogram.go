package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// Histogram buckets files by size in batches of batchSize bytes and
// prints one "<start>: <count> <total>" row per bucket, numeric columns
// right-aligned. Files above maxSize are excluded when maxSize > 0.
func Histogram(w io.Writer, recs []types.FileRecord, batchSize, maxSize int64) error {
	if batchSize <= 0 {
		return fmt.Errorf("histogram batch size must be greater than 0")
	}

	type bucket struct {
		count int64
		total int64
	}
	buckets := make(map[int64]*bucket)
	var maxStart int64 = -1
	for _, rec := range recs {
		if maxSize > 0 && rec.Size > maxSize {
			continue
		}
		start := (rec.Size / batchSize) * batchSize
		b := buckets[start]
		if b == nil {
			b = &bucket{}
			buckets[start] = b
		}
		b.count++
		b.total += rec.Size
		if start > maxStart {
			maxStart = start
		}
	}
	if maxStart < 0 {
		return nil
	}

	starts := make([]int64, 0, len(buckets))
	for start := int64(0); start <= maxStart; start += batchSize {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	startWidth, countWidth, totalWidth := 1, 1, 1
	for _, start := range starts {
		b := buckets[start]
		var count, total int64
		if b != nil {
			count, total = b.count, b.total
		}
		startWidth = maxWidth(startWidth, start)
		countWidth = maxWidth(countWidth, count)
		totalWidth = maxWidth(totalWidth, total)
	}

	for _, start := range starts {
		b := buckets[start]
		var count, total int64
		if b != nil {
			count, total = b.count, b.total
		}
		fmt.Fprintf(w, "%*d: %*d %*d\n", startWidth, start, countWidth, count, totalWidth, total)
	}
	return nil
}

func maxWidth(width int, v int64) int {
	if n := len(fmt.Sprintf("%d", v)); n > width {
		return n
	}
	return width
}

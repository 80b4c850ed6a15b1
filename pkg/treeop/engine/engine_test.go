package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jovermann/treeop/pkg/treeop/index"
	"github.com/jovermann/treeop/pkg/treeop/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scanTree(t *testing.T, root string) *index.Tree {
	t.Helper()
	tree, err := scanner.New(scanner.Options{Root: root}).Scan()
	require.NoError(t, err)
	return tree
}

func scanTrees(t *testing.T, roots ...string) []*index.Tree {
	t.Helper()
	trees := make([]*index.Tree, 0, len(roots))
	for _, root := range roots {
		trees = append(trees, scanTree(t, root))
	}
	return trees
}

// twoTrees builds the canonical two-root fixture: a shared file plus one
// unique file per tree.
func twoTrees(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	writeFile(t, filepath.Join(a, "same.txt"), "hello")
	writeFile(t, filepath.Join(a, "onlyA.txt"), "only a")
	writeFile(t, filepath.Join(b, "same.txt"), "hello")
	writeFile(t, filepath.Join(b, "onlyB.txt"), "only b")
	return a, b
}

func TestIntersectStats(t *testing.T) {
	a, b := twoTrees(t)
	e := New(scanTrees(t, a, b), Options{})

	res := e.Intersect()
	require.Len(t, res.PerTree, 2)
	for _, ti := range res.PerTree {
		assert.Equal(t, int64(1), ti.Unique)
		assert.Equal(t, int64(1), ti.Shared)
		assert.Equal(t, int64(2), ti.Total)
	}
	assert.Equal(t, int64(2), res.UniqueTotal)
	assert.Equal(t, int64(2), res.SharedTotal)
	assert.Equal(t, int64(4), res.Total)
}

// TestIntersectCountsOccurrencesNotKeys: two trees each holding one file
// with the same content yield shared-files 2, not 1.
func TestIntersectCountsOccurrencesNotKeys(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	writeFile(t, filepath.Join(a, "same.txt"), "hello")
	writeFile(t, filepath.Join(b, "same.txt"), "hello")

	res := New(scanTrees(t, a, b), Options{}).Intersect()
	assert.Equal(t, int64(2), res.SharedTotal)
	assert.Equal(t, int64(0), res.UniqueTotal)
}

// TestSameFilenameGate: identical content under different basenames
// matches by digest but not with same-filename matching.
func TestSameFilenameGate(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	writeFile(t, filepath.Join(a, "one.txt"), "same")
	writeFile(t, filepath.Join(b, "two.txt"), "same")

	res := New(scanTrees(t, a, b), Options{}).Intersect()
	assert.Equal(t, int64(2), res.SharedTotal)

	res = New(scanTrees(t, a, b), Options{SameFilename: true}).Intersect()
	assert.Equal(t, int64(0), res.SharedTotal)
	assert.Equal(t, int64(2), res.UniqueTotal)
}

func TestMinSizeExcludesSmallFiles(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	writeFile(t, filepath.Join(a, "tiny.txt"), "x")
	writeFile(t, filepath.Join(b, "tiny.txt"), "x")

	res := New(scanTrees(t, a, b), Options{MinSize: 2}).Intersect()
	assert.Zero(t, res.Total, "files below min-size do not participate")
}

func TestOnlyIn(t *testing.T) {
	a, b := twoTrees(t)
	e := New(scanTrees(t, a, b), Options{})

	first := e.OnlyIn(0)
	require.Len(t, first, 1)
	assert.Equal(t, "onlyA.txt", first[0].Base())

	last := e.OnlyIn(1)
	require.Len(t, last, 1)
	assert.Equal(t, "onlyB.txt", last[0].Base())
}

func TestRedundant(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "dup!")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "dup!")
	writeFile(t, filepath.Join(root, "c.txt"), "solo")

	e := New(scanTrees(t, root), Options{})
	redundant := e.Redundant(0)
	require.Len(t, redundant, 1, "one non-canonical occurrence")
}

func TestRedundantSkipsHardlinkMembers(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	writeFile(t, a, "linked")
	require.NoError(t, os.Link(a, filepath.Join(root, "b.txt")))

	e := New(scanTrees(t, root), Options{})
	assert.Empty(t, e.Redundant(0), "two names for one inode are not redundant")
}

// TestPlanDeterminism: identical inputs and flags yield an identical plan.
func TestPlanDeterminism(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	for _, name := range []string{"x", "y", "z"} {
		writeFile(t, filepath.Join(a, name), "shared-"+name)
		writeFile(t, filepath.Join(b, name), "shared-"+name)
	}

	p1 := New(scanTrees(t, a, b), Options{}).PlanRemoveCopies(true)
	p2 := New(scanTrees(t, a, b), Options{}).PlanRemoveCopies(true)
	require.Equal(t, len(p1.Actions), len(p2.Actions))
	for i := range p1.Actions {
		assert.Equal(t, p1.Actions[i].Path, p2.Actions[i].Path)
		assert.Equal(t, p1.Actions[i].Kind, p2.Actions[i].Kind)
	}
}

// TestExtractRoundTrip: extracting the unique-to-first files into a new
// root makes them shared against that root.
func TestExtractRoundTrip(t *testing.T) {
	a, b := twoTrees(t)
	dst := filepath.Join(filepath.Dir(a), "out")

	e := New(scanTrees(t, a, b), Options{})
	plan := e.PlanExtract(0, dst)
	stats := Execute(plan, ExecOptions{Out: &bytes.Buffer{}})
	require.Equal(t, int64(1), stats.CopiedFiles)

	e2 := New(scanTrees(t, a, dst), Options{})
	res := e2.Intersect()
	assert.Equal(t, int64(1), res.PerTree[0].Unique, "same.txt stays unique against dst")
	assert.Equal(t, int64(1), res.PerTree[0].Shared, "onlyA.txt is now shared")
}

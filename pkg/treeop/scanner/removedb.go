package scanner

import (
	"io/fs"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/jovermann/treeop/pkg/treeop/dirdb"
)

// RemoveCaches traverses root only to delete .dirdb files; nothing is
// hashed. It returns the number of cache files removed. The traversal
// needs no per-directory ordering, so it runs on the parallel walker.
func RemoveCaches(root string) (int64, error) {
	var removed atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping entry", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		ok, err := dirdb.Remove(path)
		if err != nil {
			logger.Warn("cache remove failed", "dir", path, "error", err)
			return nil
		}
		if ok {
			removed.Add(1)
		}
		return nil
	})
	if err != nil {
		return removed.Load(), err
	}
	return removed.Load(), nil
}

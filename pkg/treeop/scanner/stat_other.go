//go:build !linux && !darwin

package scanner

import (
	"os"

	"github.com/jovermann/treeop/pkg/treeop/types"
)

// statFile stats a regular file without inode identity. Hardlink
// operations degrade gracefully on platforms without it.
func statFile(path string) (types.FileRecord, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return types.FileRecord{}, err
	}
	return types.FileRecord{
		Path:  path,
		Size:  info.Size(),
		MTime: info.ModTime().Unix(),
		Nlink: 1,
	}, nil
}

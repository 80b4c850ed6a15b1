//go:build linux

package scanner

import (
	"github.com/jovermann/treeop/pkg/treeop/types"
	"golang.org/x/sys/unix"
)

// statFile stats a regular file and fills everything but the digest.
func statFile(path string) (types.FileRecord, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return types.FileRecord{}, err
	}
	return types.FileRecord{
		Path:  path,
		Size:  st.Size,
		MTime: st.Mtim.Sec,
		Dev:   uint64(st.Dev),
		Ino:   st.Ino,
		Nlink: uint64(st.Nlink),
	}, nil
}

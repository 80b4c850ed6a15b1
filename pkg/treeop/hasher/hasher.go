// Package hasher computes streaming content digests for treeop.
//
// Files are read in fixed-size buffers and fed into a SHAKE-128 sponge;
// the digest is the first 16 bytes of output, rendered as 32 lowercase
// hex characters. The digest width is fixed across all tree indexes.
package hasher

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/jovermann/treeop/pkg/treeop/types"
	"golang.org/x/crypto/sha3"
)

// DefaultBufSize is the read buffer size used when none is configured.
// 1 MiB keeps syscall overhead low when streaming large files.
const DefaultBufSize = int(types.MiB)

// digestLen is the digest output length in bytes.
const digestLen = types.DigestHexLen / 2

// Hasher produces content digests using a configurable read buffer.
// A Hasher is stateless between calls and safe for concurrent use.
type Hasher struct {
	bufSize int
}

// New creates a Hasher with the given read buffer size in bytes.
// Sizes below 4 KiB fall back to the default.
func New(bufSize int) *Hasher {
	if bufSize < 4*int(types.KiB) {
		bufSize = DefaultBufSize
	}
	return &Hasher{bufSize: bufSize}
}

// BufSize returns the configured read buffer size.
func (h *Hasher) BufSize() int {
	return h.bufSize
}

// HashFile streams the file at path and returns its content digest as a
// lowercase hex string. onRead, if non-nil, is called with the byte count
// of every buffer read, for progress accounting.
func (h *Hasher) HashFile(path string, onRead func(int64)) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	shake := sha3.NewShake128()
	buf := make([]byte, h.bufSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			shake.Write(buf[:n])
			if onRead != nil {
				onRead(int64(n))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var sum [digestLen]byte
	if _, err := io.ReadFull(shake, sum[:]); err != nil {
		return "", fmt.Errorf("finalizing digest for %s: %w", path, err)
	}
	return hex.EncodeToString(sum[:]), nil
}

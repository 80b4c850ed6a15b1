// Package types provides core data types for the treeop directory tree tool.
// It includes the file record shared by the scanner, index, and engine, along
// with utility functions for parsing and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// DigestHexLen is the fixed width of a content digest in hex characters.
// All digests in all tree indexes share this width.
const DigestHexLen = 32

// CacheFileName is the name of the per-directory digest cache file.
// The cache file itself is never indexed or hashed.
const CacheFileName = ".dirdb"

// FileRecord describes one regular file inside a scanned tree.
// Dev and Ino identify the on-disk inode for hardlink accounting; all
// records sharing the same (Dev, Ino) refer to one byte sequence.
type FileRecord struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// MTime is the last modification time in seconds since the Unix epoch.
	MTime int64 `json:"mtime"`

	// Dev is the device id of the filesystem holding the file.
	Dev uint64 `json:"dev"`

	// Ino is the inode number of the file.
	Ino uint64 `json:"ino"`

	// Nlink is the number of hardlinks to the inode.
	Nlink uint64 `json:"nlink"`

	// Digest is the lowercase hex content digest of the file's bytes.
	// It is mandatory once the record is admitted to a tree index.
	Digest string `json:"digest"`
}

// Base returns the basename of the record's path.
func (f *FileRecord) Base() string {
	if i := strings.LastIndexByte(f.Path, '/'); i >= 0 {
		return f.Path[i+1:]
	}
	return f.Path
}

// InodeKey identifies an inode across a tree: the (device, inode) pair.
type InodeKey struct {
	Dev uint64
	Ino uint64
}

// Inode returns the record's inode key.
func (f *FileRecord) Inode() InodeKey {
	return InodeKey{Dev: f.Dev, Ino: f.Ino}
}

// Less orders records by (device, inode, path), the deterministic order
// used whenever the engine has to pick one file out of a matching set.
func (f *FileRecord) Less(other *FileRecord) bool {
	if f.Dev != other.Dev {
		return f.Dev < other.Dev
	}
	if f.Ino != other.Ino {
		return f.Ino < other.Ino
	}
	return f.Path < other.Path
}

// HumanSize returns the file size formatted as a human-readable string.
func (f *FileRecord) HumanSize() string {
	return FormatSize(f.Size)
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It supports plain bytes ("1024"), a byte suffix ("512B"), and binary
// multiples with K/M/G/T suffixes ("100K", "50MiB", "2G", "1TB").
// Decimal values are supported and truncated to the nearest byte.
//
// Returns ErrInvalidSize if the format is not recognized.
// Returns ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units, consistent with common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}

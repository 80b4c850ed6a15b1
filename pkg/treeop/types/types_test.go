package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"1024", 1024, false},
		{"512B", 512, false},
		{"100K", 100 * KiB, false},
		{"100KiB", 100 * KiB, false},
		{"50M", 50 * MiB, false},
		{"1.5M", 1536 * KiB, false},
		{"2G", 2 * GiB, false},
		{"1T", 1 * TiB, false},
		{" 10k ", 10 * KiB, false},
		{"", 0, true},
		{"abc", 0, true},
		{"10X", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileRecordBase(t *testing.T) {
	rec := FileRecord{Path: "/a/b/c.txt"}
	assert.Equal(t, "c.txt", rec.Base())

	rec = FileRecord{Path: "plain"}
	assert.Equal(t, "plain", rec.Base())
}

func TestFileRecordLess(t *testing.T) {
	a := FileRecord{Dev: 1, Ino: 10, Path: "/x"}
	b := FileRecord{Dev: 1, Ino: 11, Path: "/a"}
	c := FileRecord{Dev: 2, Ino: 1, Path: "/a"}
	d := FileRecord{Dev: 1, Ino: 10, Path: "/y"}

	assert.True(t, a.Less(&b), "lower inode wins on same device")
	assert.True(t, a.Less(&c), "lower device wins")
	assert.True(t, a.Less(&d), "path breaks inode ties")
	assert.False(t, d.Less(&a))
}

func TestInodeKey(t *testing.T) {
	a := FileRecord{Dev: 3, Ino: 7}
	b := FileRecord{Dev: 3, Ino: 7, Path: "/other"}
	assert.Equal(t, a.Inode(), b.Inode())
}

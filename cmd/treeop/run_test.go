package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScanPrintsAggregates drives the root command end to end over a
// small tree and checks the counter block labels.
func TestScanPrintsAggregates(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("hello"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--stats", root})
	require.NoError(t, rootCmd.Execute())

	got := out.String()
	assert.Contains(t, got, root+":")
	assert.Contains(t, got, "files:")
	assert.Contains(t, got, "dirs:")
	assert.Contains(t, got, "total-size:")
	assert.Contains(t, got, "redundant-files:")
	assert.Contains(t, got, "redundant-size:")
	assert.Contains(t, got, "hardlinked-files:")
	assert.Contains(t, got, "hardlinked-size:")
	assert.Contains(t, got, "elapsed:")
}

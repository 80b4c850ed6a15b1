package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOpts(t *testing.T, n int) *runOptions {
	t.Helper()
	roots := make([]string, n)
	for i := range roots {
		roots[i] = t.TempDir()
	}
	return &runOptions{roots: roots}
}

func TestValidateRequiresRoots(t *testing.T) {
	opts := &runOptions{}
	assert.Error(t, opts.validate())
}

func TestValidateRejectsMissingRoot(t *testing.T) {
	opts := &runOptions{roots: []string{"/does/not/exist"}}
	assert.Error(t, opts.validate())
}

func TestValidatePlainScan(t *testing.T) {
	require.NoError(t, validOpts(t, 1).validate())
}

func TestValidateNewAndUpdateConflict(t *testing.T) {
	opts := validOpts(t, 1)
	opts.newDB = true
	opts.updateDB = true
	assert.Error(t, opts.validate())
}

func TestValidateRemoveDBExclusive(t *testing.T) {
	opts := validOpts(t, 1)
	opts.removeDB = true
	require.NoError(t, opts.validate())

	opts.stats = true
	assert.Error(t, opts.validate())

	opts.stats = false
	opts.removeCopies = true
	assert.Error(t, opts.validate())
}

func TestValidateIntersectNeedsTwoRoots(t *testing.T) {
	opts := validOpts(t, 1)
	opts.intersect = true
	assert.Error(t, opts.validate())

	opts = validOpts(t, 2)
	opts.intersect = true
	require.NoError(t, opts.validate())
}

func TestValidateMutationsExclusive(t *testing.T) {
	opts := validOpts(t, 2)
	opts.removeCopies = true
	opts.hardlinkCopies = true
	assert.Error(t, opts.validate())

	opts = validOpts(t, 2)
	opts.removeFromLast = true
	opts.breakHardlinks = true
	assert.Error(t, opts.validate())
}

func TestValidateListFirstNeedsIntersect(t *testing.T) {
	opts := validOpts(t, 2)
	opts.listFirst = true
	assert.Error(t, opts.validate())

	opts.intersect = true
	require.NoError(t, opts.validate())
}

func TestValidateExtractNeedsIntersect(t *testing.T) {
	opts := validOpts(t, 2)
	opts.extractLast = "/tmp/out"
	assert.Error(t, opts.validate())

	opts.intersect = true
	require.NoError(t, opts.validate())
}

func TestValidateRemoveFromLastNeedsTwoRoots(t *testing.T) {
	opts := validOpts(t, 1)
	opts.removeFromLast = true
	assert.Error(t, opts.validate())
}

func TestValidateReadbenchExclusive(t *testing.T) {
	opts := validOpts(t, 1)
	opts.readbench = true
	require.NoError(t, opts.validate())

	opts.hardlinkCopies = true
	assert.Error(t, opts.validate())
}

func TestShowAggregates(t *testing.T) {
	opts := validOpts(t, 1)
	assert.True(t, opts.showAggregates(), "plain scan defaults to aggregates")

	opts.stats = true
	assert.True(t, opts.showAggregates())

	opts = validOpts(t, 2)
	opts.intersect = true
	assert.False(t, opts.showAggregates())

	opts = validOpts(t, 1)
	opts.listFiles = true
	assert.False(t, opts.showAggregates())
}

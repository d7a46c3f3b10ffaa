package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IntXgers/ohio-code/pkg/ingest"
	"github.com/IntXgers/ohio-code/pkg/store"
)

func TestIsBadInput(t *testing.T) {
	assert.True(t, isBadInput(fmt.Errorf("wrapped: %w", ingest.ErrBadInput)))
	assert.False(t, isBadInput(store.ErrIncompatibleStore))
	assert.False(t, isBadInput(fmt.Errorf("some other error")))
}

func TestIsIncompatibleStore(t *testing.T) {
	assert.True(t, isIncompatibleStore(fmt.Errorf("wrapped: %w", store.ErrIncompatibleStore)))
	assert.False(t, isIncompatibleStore(ingest.ErrBadInput))
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitBadInput, exitCodeFor(fmt.Errorf("%w: bad corpus", ingest.ErrBadInput)))
	assert.Equal(t, exitIncompatible, exitCodeFor(fmt.Errorf("%w: stale store", store.ErrIncompatibleStore)))
	assert.Equal(t, exitStoreIO, exitCodeFor(fmt.Errorf("disk full")))
}

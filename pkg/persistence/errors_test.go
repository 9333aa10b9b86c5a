package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayError_WrapsAndMatches(t *testing.T) {
	err := NewPlayError("PlayByID", "play-42", ErrPlayNotFound)

	require.ErrorIs(t, err, ErrPlayNotFound)
	assert.True(t, IsPlayNotFound(err))
	assert.Contains(t, err.Error(), "play-42")
	assert.Contains(t, err.Error(), "PlayByID")
}

func TestExecutionStateError_WrapsAndMatches(t *testing.T) {
	inner := errors.New("disk full")
	err := NewExecutionStateError("Upsert", "ws-1", "node-7", inner)

	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "ws-1")
	assert.Contains(t, err.Error(), "node-7")
}

func TestIsWorkstreamNotFound(t *testing.T) {
	assert.True(t, IsWorkstreamNotFound(ErrWorkstreamNotFound))
	assert.False(t, IsWorkstreamNotFound(errors.New("other")))
}

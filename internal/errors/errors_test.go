package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Validation("title is required")

	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrNetwork))
	assert.Equal(t, "title is required", err.Error())
}

func TestError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("confirm label: %w", Network("create label", io.EOF))

	assert.True(t, Is(err, ErrNetwork))
	assert.True(t, Is(err, io.EOF))
	assert.Contains(t, err.Error(), "create label: EOF")
}

func TestError_WithDetails(t *testing.T) {
	base := Validation("bad polygon")
	detailed := base.WithDetails(map[string]int{"vertices": 2})

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]int{"vertices": 2}, detailed.Details)
	assert.True(t, Is(detailed, ErrValidation))
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("wrap: %w", TileLoad("/api/tiles/global/1/0/0.jpg", io.ErrUnexpectedEOF)))
	require.True(t, ok)
	assert.Equal(t, CodeTileLoad, code)
	assert.True(t, code.Silent())

	_, ok = CodeOf(io.EOF)
	assert.False(t, ok)
}

func TestCode_Silent(t *testing.T) {
	for _, c := range []Code{CodeValidation, CodeAuth, CodeNetwork} {
		assert.False(t, c.Silent(), c)
	}
}

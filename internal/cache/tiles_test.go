package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTiles_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewTiles(0)
	require.Error(t, err)
}

func TestTiles_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewTiles(2)
	require.NoError(t, err)

	c.Add("a", []byte("A"))
	c.Add("b", []byte("B"))
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Add("c", []byte("C"))

	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

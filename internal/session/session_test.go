package session

import (
	"testing"

	"github.com/embiggen/planetmap/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get(UserIDKey)
	assert.False(t, ok)

	s.Set(UserIDKey, "7")
	v, ok := s.Get(UserIDKey)
	require.True(t, ok)
	assert.Equal(t, "7", v)

	s.Delete(UserIDKey)
	_, ok = s.Get(UserIDKey)
	assert.False(t, ok)
}

func TestOwners_Current(t *testing.T) {
	s := NewMemoryStore()
	o := NewOwners(s, 102, true)

	_, ok := o.Current()
	assert.False(t, ok)

	s.Set(UserIDKey, " 42 ")
	id, ok := o.Current()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	s.Set(UserIDKey, "not-a-number")
	_, ok = o.Current()
	assert.False(t, ok)

	s.Set(UserIDKey, "0")
	_, ok = o.Current()
	assert.False(t, ok)
}

func TestOwners_RequireWithoutSession(t *testing.T) {
	o := NewOwners(NewMemoryStore(), 102, true)

	_, err := o.Require()
	assert.True(t, errors.Is(err, errors.ErrAuth))
}

func TestOwners_LabelOwnerFallback(t *testing.T) {
	s := NewMemoryStore()

	id, err := NewOwners(s, 102, true).LabelOwner()
	require.NoError(t, err)
	assert.Equal(t, int64(102), id)

	_, err = NewOwners(s, 102, false).LabelOwner()
	assert.True(t, errors.Is(err, errors.ErrAuth))

	s.Set(UserIDKey, "9")
	id, err = NewOwners(s, 102, true).LabelOwner()
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

package slotmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGet(t *testing.T) {
	s := New[string]()

	k1 := s.Insert("a")
	k2 := s.Insert("b")
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, 2, s.Len())

	v, ok := s.Get(k1)
	require.True(t, ok)
	assert.Equal(t, "a", *v)

	v, ok = s.Get(k2)
	require.True(t, ok)
	assert.Equal(t, "b", *v)
}

func TestGetMissing(t *testing.T) {
	s := New[int]()

	_, ok := s.Get(0)
	assert.False(t, ok)
	_, ok = s.Get(-1)
	assert.False(t, ok)

	k := s.Insert(7)
	s.Remove(k)
	_, ok = s.Get(k)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	s := New[int]()

	k := s.Insert(42)
	v, ok := s.Remove(k)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains(k))

	_, ok = s.Remove(k)
	assert.False(t, ok)
}

func TestKeyReuse(t *testing.T) {
	s := New[int]()

	k1 := s.Insert(1)
	k2 := s.Insert(2)
	s.Remove(k1)

	// Freed keys are recycled before the arena grows.
	k3 := s.Insert(3)
	assert.Equal(t, k1, k3)

	v, ok := s.Get(k3)
	require.True(t, ok)
	assert.Equal(t, 3, *v)

	v, ok = s.Get(k2)
	require.True(t, ok)
	assert.Equal(t, 2, *v)
}

func TestGetPointerMutates(t *testing.T) {
	s := New[int]()

	k := s.Insert(1)
	v, ok := s.Get(k)
	require.True(t, ok)
	*v = 99

	v, ok = s.Get(k)
	require.True(t, ok)
	assert.Equal(t, 99, *v)
}

func TestDenseKeys(t *testing.T) {
	s := New[int]()

	for i := 0; i < 100; i++ {
		assert.Equal(t, i, s.Insert(i))
	}
	assert.Equal(t, 100, s.Len())

	for i := 0; i < 100; i += 2 {
		_, ok := s.Remove(i)
		require.True(t, ok)
	}
	assert.Equal(t, 50, s.Len())

	// Refilling stays within the old arena.
	for i := 0; i < 50; i++ {
		k := s.Insert(1000 + i)
		assert.Less(t, k, 100)
	}
	assert.Equal(t, 100, s.Len())
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneshotSetThenGet(t *testing.T) {
	s := NewOneshotStore()

	id := s.CreateSlot()
	_, ok := s.GetResult(id)
	assert.False(t, ok)

	s.SetResult(id, 42)
	v, ok := s.GetResult(id)
	require.True(t, ok)
	assert.Equal(t, int32(42), v)

	// Collecting removed the slot.
	assert.Equal(t, 0, s.Len())
}

func TestOneshotNegativeResult(t *testing.T) {
	s := NewOneshotStore()

	id := s.CreateSlot()
	s.SetResult(id, -11)
	v, ok := s.GetResult(id)
	require.True(t, ok)
	assert.Equal(t, int32(-11), v)
}

func TestOneshotDropBeforeSet(t *testing.T) {
	s := NewOneshotStore()

	id := s.CreateSlot()
	s.DropResult(id)
	// The slot stays alive until the kernel delivers.
	assert.Equal(t, 1, s.Len())

	s.SetResult(id, 1)
	assert.Equal(t, 0, s.Len())
}

func TestOneshotDropAfterSet(t *testing.T) {
	s := NewOneshotStore()

	id := s.CreateSlot()
	s.SetResult(id, 1)
	s.DropResult(id)
	assert.Equal(t, 0, s.Len())
}

func TestOneshotGetDroppedPanics(t *testing.T) {
	s := NewOneshotStore()

	id := s.CreateSlot()
	s.DropResult(id)
	assert.Panics(t, func() { s.GetResult(id) })
}

func TestOneshotDuplicateSetPanics(t *testing.T) {
	s := NewOneshotStore()

	id := s.CreateSlot()
	s.SetResult(id, 1)
	assert.Panics(t, func() { s.SetResult(id, 2) })
}

func TestOneshotMissingSlotPanics(t *testing.T) {
	s := NewOneshotStore()

	assert.Panics(t, func() { s.SetResult(99, 1) })
	assert.Panics(t, func() { s.GetResult(99) })
	assert.Panics(t, func() { s.DropResult(99) })
}

func TestOneshotSlotIDReuse(t *testing.T) {
	s := NewOneshotStore()

	id1 := s.CreateSlot()
	s.SetResult(id1, 5)
	_, ok := s.GetResult(id1)
	require.True(t, ok)

	id2 := s.CreateSlot()
	assert.Equal(t, id1, id2)
	_, ok = s.GetResult(id2)
	assert.False(t, ok)
}

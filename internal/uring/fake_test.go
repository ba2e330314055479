package uring

import (
	"syscall"
	"testing"

	"github.com/pawelgaczynski/giouring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakePushSubmitDrain(t *testing.T) {
	f := NewFakeRing(8)

	err := f.Push(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareNop()
	}, 7)
	require.NoError(t, err)
	assert.False(t, f.InFlight(7))

	require.NoError(t, f.SubmitAndWait(0))
	assert.True(t, f.InFlight(7))

	f.Complete(7, 1)
	assert.False(t, f.InFlight(7))

	var got []Completion
	n := f.Drain(func(c Completion) { got = append(got, c) })
	assert.Equal(t, uint32(1), n)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].UserData)
	assert.Equal(t, int32(1), got[0].Value)
	assert.False(t, got[0].More())
}

func TestFakeRingFull(t *testing.T) {
	f := NewFakeRing(1)

	require.NoError(t, f.Push(func(*giouring.SubmissionQueueEntry) {}, 1))
	err := f.Push(func(*giouring.SubmissionQueueEntry) {}, 2)
	assert.ErrorIs(t, err, ErrRingFull)
}

func TestFakeMoreFlag(t *testing.T) {
	f := NewFakeRing(8)

	require.NoError(t, f.Push(func(*giouring.SubmissionQueueEntry) {}, 3))
	require.NoError(t, f.SubmitAndWait(0))

	f.CompleteMore(3, 5)
	assert.True(t, f.InFlight(3))

	var got []Completion
	f.Drain(func(c Completion) { got = append(got, c) })
	require.Len(t, got, 1)
	assert.True(t, got[0].More())
}

func TestFakeCancelInFlight(t *testing.T) {
	f := NewFakeRing(8)

	require.NoError(t, f.Push(func(*giouring.SubmissionQueueEntry) {}, 9))
	require.NoError(t, f.SubmitAndWait(0))

	require.NoError(t, f.Push(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareCancel64(9, 0)
	}, 100))
	require.NoError(t, f.SubmitAndWait(0))

	assert.False(t, f.InFlight(9))

	var got []Completion
	f.Drain(func(c Completion) { got = append(got, c) })
	require.Len(t, got, 2)
	assert.Equal(t, uint64(9), got[0].UserData)
	assert.Equal(t, -int32(syscall.ECANCELED), got[0].Value)
	assert.Equal(t, uint64(100), got[1].UserData)
	assert.Equal(t, int32(0), got[1].Value)
}

func TestFakeCancelUnknownTarget(t *testing.T) {
	f := NewFakeRing(8)

	require.NoError(t, f.Push(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareCancel64(55, 0)
	}, 100))
	require.NoError(t, f.SubmitAndWait(0))

	var got []Completion
	f.Drain(func(c Completion) { got = append(got, c) })
	require.Len(t, got, 1)
	assert.Equal(t, -int32(syscall.ENOENT), got[0].Value)
}

func TestFakeWaitWithoutCompletionsPanics(t *testing.T) {
	f := NewFakeRing(8)

	require.NoError(t, f.Push(func(*giouring.SubmissionQueueEntry) {}, 1))
	assert.Panics(t, func() { _ = f.SubmitAndWait(1) })
}

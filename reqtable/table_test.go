package reqtable

import (
	"testing"
	"time"

	"github.com/meridianav/avcore"
	"github.com/stretchr/testify/require"
)

func TestSubmitCompleteFreesSlot(t *testing.T) {
	tbl := New(2)
	var got Completion
	id, aerr := tbl.Submit(func(c Completion) { got = c }, "ctx", KindUserVisible, time.Now(), 0)
	require.Nil(t, aerr)
	require.Equal(t, 1, tbl.Len())

	tbl.Complete(id, Completion{Payload: []byte("ok")})
	require.Equal(t, 0, tbl.Len())
	require.Equal(t, []byte("ok"), got.Payload)
	require.Equal(t, id, got.ID)
}

func TestOutOfRequests(t *testing.T) {
	tbl := New(1)
	_, aerr := tbl.Submit(func(Completion) {}, nil, KindUserVisible, time.Now(), 0)
	require.Nil(t, aerr)

	_, aerr = tbl.Submit(func(Completion) {}, nil, KindUserVisible, time.Now(), 0)
	require.NotNil(t, aerr)
	require.Equal(t, avcore.OutOfRequests, aerr.Kind)
}

func TestCancelIsIdempotentAndSkipsCallback(t *testing.T) {
	tbl := New(2)
	called := false
	id, _ := tbl.Submit(func(Completion) { called = true }, nil, KindUserVisible, time.Now(), 0)

	tbl.Cancel(id)
	require.False(t, called)
	require.Equal(t, 0, tbl.Len())

	// Cancelling an already-free id is a no-op, not an error (§8).
	tbl.Cancel(id)
	require.Equal(t, 0, tbl.Len())
}

func TestLateReplyAfterCancelIsDroppedSilently(t *testing.T) {
	tbl := New(2)
	called := false
	id, _ := tbl.Submit(func(Completion) { called = true }, nil, KindUserVisible, time.Now(), 0)
	tbl.Cancel(id)

	// A server reply that arrives after cancellation must not fire the
	// (already-gone) callback or panic.
	tbl.Complete(id, Completion{Payload: []byte("late")})
	require.False(t, called)
	require.True(t, tbl.WasRecentlyClosed(id))
}

func TestTickFiresTimedOut(t *testing.T) {
	tbl := New(2)
	var kind avcore.Kind
	now := time.Now()
	_, _ = tbl.Submit(func(c Completion) { kind = c.Err.Kind }, nil, KindUserVisible, now, 10*time.Millisecond)

	tbl.Tick(now.Add(5 * time.Millisecond))
	require.Equal(t, 1, tbl.Len(), "not yet expired")

	tbl.Tick(now.Add(11 * time.Millisecond))
	require.Equal(t, 0, tbl.Len())
	require.Equal(t, avcore.TimedOut, kind)
}

func TestCompleteAllWithFiresEveryLiveCallback(t *testing.T) {
	tbl := New(4)
	var kinds []avcore.Kind
	for i := 0; i < 3; i++ {
		_, aerr := tbl.Submit(func(c Completion) { kinds = append(kinds, c.Err.Kind) }, nil, KindUserVisible, time.Now(), 0)
		require.Nil(t, aerr)
	}
	require.Equal(t, 3, tbl.Len())

	tbl.CompleteAllWith(avcore.New(avcore.CapabilitiesChanged))
	require.Equal(t, 0, tbl.Len())
	require.Len(t, kinds, 3)
	for _, k := range kinds {
		require.Equal(t, avcore.CapabilitiesChanged, k)
	}
}

func TestReusedSlotGenerationRejectsStaleID(t *testing.T) {
	tbl := New(1)
	id1, _ := tbl.Submit(func(Completion) {}, nil, KindUserVisible, time.Now(), 0)
	tbl.Cancel(id1)

	called := false
	id2, _ := tbl.Submit(func(Completion) { called = true }, nil, KindUserVisible, time.Now(), 0)
	require.NotEqual(t, id1, id2, "reused slot must carry a bumped generation")

	// The stale id1 must never be able to complete id2's slot.
	tbl.Complete(id1, Completion{})
	require.False(t, called)
	require.Equal(t, 1, tbl.Len())
}

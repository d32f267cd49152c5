package routing

import (
	"testing"

	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/reqtable"
	"github.com/stretchr/testify/require"
)

func activeSession() *Session {
	reqs := reqtable.New(8)
	send := func(vendorType uint16, body []byte) *avcore.Error { return nil }
	s := New(avcore.Name("dev"), LocalStrategy{}, reqs, send, DefaultOptions())
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)
	return s
}

func TestTxFlowBuilderCommitReleasesHandle(t *testing.T) {
	s := activeSession()
	b := s.NewTxFlow()
	require.Nil(t, b.SetSlot(0, 3))
	require.Nil(t, b.SetLatency(avcore.Latency(1000)))

	called := false
	require.Nil(t, b.Commit(func(e *avcore.Error) { called = true; require.Nil(t, e) }))

	ids := s.reqs.LiveIDs()
	require.Len(t, ids, 1)
	s.reqs.Complete(ids[0], reqtable.Completion{})
	require.True(t, called)

	// The handle is released at Commit, not at completion.
	require.NotNil(t, b.SetLatency(avcore.Latency(2000)))
}

func TestTxFlowBuilderDiscardSendsNothing(t *testing.T) {
	s := activeSession()
	b := s.NewTxFlow()
	require.Nil(t, b.SetSlot(0, 1))
	b.Discard()
	require.Equal(t, 0, s.reqs.Len())
	require.NotNil(t, b.SetSlot(1, 2))
}

func TestEditExistingTxFlowPreservesUntouchedSlots(t *testing.T) {
	s := activeSession()
	s.txFlows[5] = &TxFlow{ID: 5, Slots: []uint16{1, 2, 3}}

	b, err := s.EditTxFlow(5)
	require.Nil(t, err)
	require.Nil(t, b.SetSlot(1, 9)) // rebind only slot 1

	require.Equal(t, uint16(1), b.flow.Slots[0], "untouched slot must keep its prior tx-channel")
	require.Equal(t, uint16(9), b.flow.Slots[1])
	require.Equal(t, uint16(3), b.flow.Slots[2])
}

func TestRxFlowBuilderRejectsDuplicateRxChannelIDInOneSlot(t *testing.T) {
	s := activeSession()
	b := s.NewRxFlow()
	require.Nil(t, b.SetSlot(0, []uint16{1, 2, 1}))

	err := b.Commit(nil)
	require.NotNil(t, err)
	require.Equal(t, avcore.InvalidParameter, err.Kind)
}

func TestRxFlowBuilderAcceptsFanOutAcrossDistinctIDs(t *testing.T) {
	s := activeSession()
	b := s.NewRxFlow()
	require.Nil(t, b.SetSlot(0, []uint16{1, 2, 3}))
	require.Nil(t, b.Commit(nil))
}

func TestEditNonexistentFlowFails(t *testing.T) {
	s := activeSession()
	_, err := s.EditTxFlow(99)
	require.NotNil(t, err)
	require.Equal(t, avcore.InvalidHandle, err.Kind)
}

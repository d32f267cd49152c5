package routing

import (
	"testing"

	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/reqtable"
	"github.com/meridianav/avcore/wire"
	"github.com/stretchr/testify/require"
)

func encodeRefreshResponse(t *testing.T, component avcore.Component, elements []wire.TxChannelElement) []byte {
	w := wire.NewWriter(make([]byte, 4096))
	require.True(t, wire.InitRefreshResponse(w, wire.RefreshResponse{Component: component, Count: uint16(len(elements))}))
	for _, e := range elements {
		require.True(t, wire.PutTxChannelElement(w, e))
	}
	return w.Bytes()
}

func newTestSession() (*Session, *int) {
	reqs := reqtable.New(8)
	sends := 0
	send := func(vendorType uint16, body []byte) *avcore.Error {
		sends++
		return nil
	}
	s := New(avcore.Name("dante-1"), LocalStrategy{}, reqs, send, DefaultOptions())
	return s, &sends
}

func TestSessionLifecycleForwardOnly(t *testing.T) {
	s, _ := newTestSession()
	require.Equal(t, StateResolving, s.State())

	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)
	require.Equal(t, StateActive, s.State())
	require.True(t, s.Changed().Has(avcore.ChangeState))

	s.failTo(avcore.DiscoveryFailed)
	require.Equal(t, StateError, s.State())

	// Error is terminal; advance must not move it back.
	s.advance(StateActive)
	require.Equal(t, StateError, s.State())
}

func TestQueryBeforeActiveIsRejected(t *testing.T) {
	s, _ := newTestSession()
	s.advance(StateResolved)
	err := s.UpdateComponent(avcore.ComponentTxChannels, nil, func(*avcore.Error) {})
	require.NotNil(t, err)
	require.Equal(t, avcore.InvalidState, err.Kind)
}

func TestUpdateComponentClearsStaleOnlyAfterAllBatchesReply(t *testing.T) {
	s, sends := newTestSession()
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)
	s.MarkStale(avcore.ComponentTxChannels, true, 0)
	require.True(t, s.Stale().Has(avcore.ComponentTxChannels))

	done := false
	err := s.UpdateComponent(avcore.ComponentTxChannels, nil, func(e *avcore.Error) {
		done = true
		require.Nil(t, e)
	})
	require.Nil(t, err)
	require.Equal(t, 1, *sends)
	require.False(t, done, "must not complete before the reply arrives")

	payload := encodeRefreshResponse(t, avcore.ComponentTxChannels, []wire.TxChannelElement{
		{ID: 1, Name: avcore.Name("out1"), Enabled: true},
	})
	s.onRefreshReply(avcore.ComponentTxChannels, reqtable.Completion{Payload: payload})
	require.True(t, done)
	require.False(t, s.Stale().Has(avcore.ComponentTxChannels))
	require.True(t, s.Changed().Has(avcore.ChangeTxChannelsFresh))

	require.Equal(t, 1, s.NumTxChannels())
	ch, ok := s.TxChannel(1)
	require.True(t, ok)
	require.Equal(t, avcore.Name("out1"), ch.Name)
}

func TestQueryAccessorsUndefinedBeforeActive(t *testing.T) {
	s, _ := newTestSession()
	s.advance(StateResolved)
	require.Equal(t, 0, s.NumTxChannels())
	_, ok := s.TxChannel(1)
	require.False(t, ok)
}

func TestAddLabelRejectsCanonicalNameCollisions(t *testing.T) {
	s, _ := newTestSession()
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)
	s.MarkStale(avcore.ComponentTxChannels, true, 0)
	require.Nil(t, s.UpdateComponent(avcore.ComponentTxChannels, nil, nil))
	payload := encodeRefreshResponse(t, avcore.ComponentTxChannels, []wire.TxChannelElement{
		{ID: 1, Name: avcore.Name("out1")},
		{ID: 2, Name: avcore.Name("out2")},
	})
	s.onRefreshReply(avcore.ComponentTxChannels, reqtable.Completion{Payload: payload})

	err := s.AddLabel(1, avcore.Name("out1"), nil)
	require.NotNil(t, err)
	require.Equal(t, avcore.OwnCanonicalName, err.Kind)

	err = s.AddLabel(1, avcore.Name("out2"), nil)
	require.NotNil(t, err)
	require.Equal(t, avcore.OtherCanonicalName, err.Kind)

	require.Nil(t, s.AddLabel(1, avcore.Name("studio-mix"), nil))
}

func TestRemoveLabelRejectsUnknownName(t *testing.T) {
	s, _ := newTestSession()
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)

	err := s.RemoveLabel(1, avcore.Name("nope"), nil)
	require.NotNil(t, err)
	require.Equal(t, avcore.LabelDoesntExist, err.Kind)
}

func TestCompleteAllWithFiresEveryPendingKind(t *testing.T) {
	s, _ := newTestSession()
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)

	var pingErr, renameErr *avcore.Error
	require.Nil(t, s.Ping(func(e *avcore.Error) { pingErr = e }))
	require.Nil(t, s.Rename(avcore.Name("new-name"), func(e *avcore.Error) { renameErr = e }))
	s.HandleCapabilityQuery(avcore.CapCanIdentify)

	s.HandleCapabilityQuery(avcore.CapCanIdentify | avcore.CapHasMetering)
	require.Equal(t, StateError, s.State())
	require.NotNil(t, pingErr)
	require.Equal(t, avcore.CapabilitiesChanged, pingErr.Kind)
	require.NotNil(t, renameErr)
	require.Equal(t, avcore.CapabilitiesChanged, renameErr.Kind)
}

func TestCapabilitiesChangedFailsSessionAndCompletesPending(t *testing.T) {
	s, _ := newTestSession()
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)
	s.HandleCapabilityQuery(avcore.CapCanIdentify)
	require.Equal(t, StateActive, s.State())

	s.MarkStale(avcore.ComponentProperties, true, 0)
	var got *avcore.Error
	require.Nil(t, s.UpdateComponent(avcore.ComponentProperties, nil, func(e *avcore.Error) { got = e }))

	s.HandleCapabilityQuery(avcore.CapCanIdentify | avcore.CapHasMetering)
	require.Equal(t, StateError, s.State())
	require.NotNil(t, got)
	require.Equal(t, avcore.CapabilitiesChanged, got.Kind)
}

func TestRenameLocalAltersNameInPlace(t *testing.T) {
	s, _ := newTestSession()
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)

	require.Nil(t, s.Rename(avcore.Name("new-name"), nil))
	ids := s.reqs.LiveIDs()
	require.Len(t, ids, 1)
	s.reqs.Complete(ids[0], reqtable.Completion{})
	require.Equal(t, avcore.Name("new-name"), s.Name())
	require.Equal(t, StateActive, s.State())
}

func TestRenameRemoteEntersError(t *testing.T) {
	reqs := reqtable.New(8)
	send := func(vendorType uint16, body []byte) *avcore.Error { return nil }
	s := New(avcore.Name("remote-dev"), RemoteStrategy{Name: avcore.Name("remote-dev")}, reqs, send, DefaultOptions())
	s.advance(StateResolved)
	s.advance(StateQuerying)
	s.advance(StateActive)

	require.Nil(t, s.Rename(avcore.Name("renamed"), nil))
	ids := reqs.LiveIDs()
	require.Len(t, ids, 1)
	reqs.Complete(ids[0], reqtable.Completion{})
	require.Equal(t, StateError, s.State())
}

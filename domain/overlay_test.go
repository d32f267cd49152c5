package domain

import (
	"testing"

	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/reqtable"
	"github.com/stretchr/testify/require"
)

func newTestOverlay(send Sender) (*Overlay, *reqtable.Table) {
	reqs := reqtable.New(4)
	if send == nil {
		send = func(Credentials) *avcore.Error { return nil }
	}
	return New(reqs, send, DefaultOptions()), reqs
}

func TestDiscoveryToConnectedHappyPath(t *testing.T) {
	o, reqs := newTestOverlay(nil)
	require.Equal(t, StateDisabled, o.State())

	require.Nil(t, o.StartDiscovery())
	require.Equal(t, StateDiscovering, o.State())

	addr := avcore.Address{}
	require.Nil(t, o.ManagerFound(addr))
	require.Equal(t, StateDisconnected, o.State())

	require.Nil(t, o.Identify())
	require.Equal(t, StateIdentifying, o.State())

	require.Nil(t, o.IdentityReceived())
	require.Equal(t, StateIdentified, o.State())

	called := false
	require.Nil(t, o.Connect(Credentials{Username: "admin"}, func(e *avcore.Error) {
		called = true
		require.Nil(t, e)
	}))
	require.Equal(t, StateConnecting, o.State())

	ids := reqs.LiveIDs()
	require.Len(t, ids, 1)
	reqs.Complete(ids[0], reqtable.Completion{})
	require.True(t, called)
	require.Equal(t, StateConnected, o.State())
	require.False(t, o.Errored())
}

func TestDisconnectedConnectSkipsIdentified(t *testing.T) {
	o, reqs := newTestOverlay(nil)
	require.Nil(t, o.SetManualAddress(avcore.Address{}))
	require.Equal(t, StateDisconnected, o.State())

	require.Nil(t, o.Connect(Credentials{}, nil))
	require.Equal(t, StateConnecting, o.State())
	ids := reqs.LiveIDs()
	reqs.Complete(ids[0], reqtable.Completion{})
	require.Equal(t, StateConnected, o.State())
}

func TestAuthFailReturnsToDisconnectedWithErrorFlag(t *testing.T) {
	o, reqs := newTestOverlay(nil)
	require.Nil(t, o.SetManualAddress(avcore.Address{}))
	require.Nil(t, o.Connect(Credentials{}, nil))

	ids := reqs.LiveIDs()
	reqs.Complete(ids[0], reqtable.Completion{Err: avcore.New(avcore.PolicyError)})
	require.Equal(t, StateDisconnected, o.State())
	require.True(t, o.Errored())
	require.Equal(t, avcore.PolicyError, o.LastError().Kind)
}

func TestDiscoveryTimeoutReturnsToDisabled(t *testing.T) {
	o, _ := newTestOverlay(nil)
	require.Nil(t, o.StartDiscovery())
	require.Nil(t, o.DiscoveryTimeout())
	require.Equal(t, StateDisabled, o.State())
}

func TestInvalidTransitionsRejected(t *testing.T) {
	o, _ := newTestOverlay(nil)
	err := o.Identify()
	require.NotNil(t, err)
	require.Equal(t, avcore.InvalidState, err.Kind)

	err = o.Connect(Credentials{}, nil)
	require.NotNil(t, err)
	require.Equal(t, avcore.InvalidState, err.Kind)
}

func TestFatalErrorFromAnyStateExceptDisabled(t *testing.T) {
	o, _ := newTestOverlay(nil)
	require.Nil(t, o.StartDiscovery())
	o.FatalError(avcore.New(avcore.DiscoveryFailed))
	require.Equal(t, StateError, o.State())

	o2, _ := newTestOverlay(nil)
	o2.FatalError(avcore.New(avcore.DiscoveryFailed))
	require.Equal(t, StateDisabled, o2.State(), "fatal error from disabled is not a valid transition and is ignored")
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) DomainChanging(old, new avcore.DomainUUID) {
	l.events = append(l.events, "changing")
}
func (l *recordingListener) DomainChanged(old, new avcore.DomainUUID) {
	l.events = append(l.events, "changed")
}

func connectedOverlay(t *testing.T) (*Overlay, *reqtable.Table) {
	o, reqs := newTestOverlay(nil)
	require.Nil(t, o.SetManualAddress(avcore.Address{}))
	require.Nil(t, o.Connect(Credentials{}, nil))
	ids := reqs.LiveIDs()
	reqs.Complete(ids[0], reqtable.Completion{})
	require.Equal(t, StateConnected, o.State())
	return o, reqs
}

func TestSelectDomainFiresChangingThenChanged(t *testing.T) {
	o, _ := connectedOverlay(t)
	uuid, err := avcore.NewDomainUUID()
	require.NoError(t, err)
	require.Nil(t, o.SetDomains([]Info{{UUID: uuid, Role: avcore.Name("admin")}}))

	l := &recordingListener{}
	o.AddListener(l)

	require.Nil(t, o.SelectDomain(uuid))
	require.Equal(t, []string{"changing", "changed"}, l.events)
	require.Equal(t, uuid, o.Current())
}

func TestSelectUnknownDomainFails(t *testing.T) {
	o, _ := connectedOverlay(t)
	uuid, err := avcore.NewDomainUUID()
	require.NoError(t, err)
	err2 := o.SelectDomain(uuid)
	require.NotNil(t, err2)
	require.Equal(t, avcore.NotFound, err2.Kind)
}

func TestDisconnectClearsSelectedDomain(t *testing.T) {
	o, _ := connectedOverlay(t)
	uuid, err := avcore.NewDomainUUID()
	require.NoError(t, err)
	require.Nil(t, o.SetDomains([]Info{{UUID: uuid}}))
	require.Nil(t, o.SelectDomain(uuid))

	l := &recordingListener{}
	o.AddListener(l)
	require.Nil(t, o.Disconnect())
	require.Equal(t, StateDisconnected, o.State())
	require.True(t, o.Current().IsNone())
	require.Equal(t, []string{"changing", "changed"}, l.events)
}

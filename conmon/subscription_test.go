package conmon

import (
	"net"
	"testing"
	"time"

	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/reqtable"
	"github.com/meridianav/avcore/wire"
	"github.com/stretchr/testify/require"
)

// fakeWire captures the last request sent and lets the test script
// the server's reply, mirroring the teacher's ResponseTransport
// pattern (transport_mock_response.go) of a hand-scripted responder.
type fakeWire struct {
	lastReq wire.SubscribeRequest
	sends   int
}

func (f *fakeWire) send(req wire.SubscribeRequest) *avcore.Error {
	f.lastReq = req
	f.sends++
	return nil
}

func encodeAck(t *testing.T, ack wire.SubscribeAck) []byte {
	buf := make([]byte, 64)
	w := wire.NewWriter(buf)
	require.True(t, wire.InitSubscribeAck(w, ack))
	return w.Bytes()
}

func TestSubscribeResolvesToUnicast(t *testing.T) {
	reqs := reqtable.New(4)
	fw := &fakeWire{}
	tbl := New(reqs, fw.send)

	key := Key{Type: wire.ChannelTypeRx, ChannelName: avcore.Name("in1"), DeviceName: avcore.Name("dante-device")}
	var got Result
	aerr := tbl.Subscribe(key, false, func(r Result) { got = r })
	require.Nil(t, aerr)
	require.Equal(t, StatusPreparing, tbl.Status(key))
	require.Equal(t, 1, fw.sends)

	ack := wire.SubscribeAck{
		Kind:     wire.SubscribeAckResolved,
		Instance: avcore.InstanceID{Device: avcore.DeviceID(7), Process: avcore.ProcessID(1)},
		AddrKind: wire.AddressKindUnicast,
		Address:  avcore.Address{IP: net.IPv4(10, 0, 0, 5), Port: 4440},
	}
	id, ok := tbl.PendingRequestID(key)
	require.True(t, ok)
	reqs.Complete(id, reqtable.Completion{Payload: encodeAck(t, ack)})

	require.Equal(t, StatusUnicast, got.Status)
	require.Equal(t, StatusUnicast, tbl.Status(key))
	require.Equal(t, uint16(4440), got.Address.Port)
}

func TestConcurrentSubscribersCoalesce(t *testing.T) {
	reqs := reqtable.New(4)
	fw := &fakeWire{}
	tbl := New(reqs, fw.send)

	key := Key{Type: wire.ChannelTypeTx, ChannelName: avcore.Name("out1"), DeviceName: avcore.Name("dante-device")}
	var first, second Result
	require.Nil(t, tbl.Subscribe(key, false, func(r Result) { first = r }))
	require.Nil(t, tbl.Subscribe(key, false, func(r Result) { second = r }))

	// Only one request should have reached the wire.
	require.Equal(t, 1, fw.sends)

	id, ok := tbl.PendingRequestID(key)
	require.True(t, ok)
	ack := wire.SubscribeAck{Kind: wire.SubscribeAckUnresolved}
	reqs.Complete(id, reqtable.Completion{Payload: encodeAck(t, ack)})

	require.Equal(t, StatusUnresolved, first.Status)
	require.Equal(t, first, second)
}

func TestUnsubscribeCancelsInFlightSubscribe(t *testing.T) {
	reqs := reqtable.New(4)
	fw := &fakeWire{}
	tbl := New(reqs, fw.send)

	key := Key{Type: wire.ChannelTypeRx, ChannelName: avcore.Name("in2"), DeviceName: avcore.Name("dev")}
	called := false
	require.Nil(t, tbl.Subscribe(key, false, func(Result) { called = true }))
	require.Equal(t, 1, reqs.Len())

	require.Nil(t, tbl.Unsubscribe(key, nil))
	require.False(t, called, "the cancelled subscribe's callback must never fire")
	require.True(t, fw.lastReq.Unsubscribe)
}

func TestTerminalErrorStaysUntilControllerActs(t *testing.T) {
	reqs := reqtable.New(4)
	fw := &fakeWire{}
	tbl := New(reqs, fw.send)

	key := Key{Type: wire.ChannelTypeRx, ChannelName: avcore.Name("in3"), DeviceName: avcore.Name("dev")}
	var got Result
	require.Nil(t, tbl.Subscribe(key, false, func(r Result) { got = r }))

	id, ok := tbl.PendingRequestID(key)
	require.True(t, ok)
	ack := wire.SubscribeAck{Kind: wire.SubscribeAckError, ErrorKind: uint16(avcore.PolicyError)}
	reqs.Complete(id, reqtable.Completion{Payload: encodeAck(t, ack)})

	require.Equal(t, StatusPolicy, got.Status)
	require.True(t, got.Status.Terminal())
	require.Equal(t, StatusPolicy, tbl.Status(key))

	// Without an explicit unsubscribe/re-subscribe, Tick must not move
	// the record out of its terminal state.
	tbl.Tick(time.Now().Add(time.Hour))
	require.Equal(t, StatusPolicy, tbl.Status(key))
}

func TestSubscribeToEmptyDeviceNameIsInvalidParameter(t *testing.T) {
	reqs := reqtable.New(4)
	fw := &fakeWire{}
	tbl := New(reqs, fw.send)

	key := Key{Type: wire.ChannelTypeRx, ChannelName: avcore.Name("in1")}
	err := tbl.Subscribe(key, false, nil)
	require.NotNil(t, err)
	require.Equal(t, avcore.InvalidParameter, err.Kind)
	require.Equal(t, 0, fw.sends)

	// SubscribeGlobal legitimately carries an empty DeviceName.
	require.Nil(t, tbl.SubscribeGlobal(wire.ChannelTypeRx, avcore.Name("in1"), nil))
	require.Equal(t, 1, fw.sends)
}

package runtimeglue

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	deadline time.Time
	hasOne   bool
	ticks    []time.Time
}

func (f *fakeTicker) NextDeadline() (time.Time, bool) { return f.deadline, f.hasOne }
func (f *fakeTicker) Tick(now time.Time)              { f.ticks = append(f.ticks, now); f.hasOne = false }

func TestGetSocketsAndTimeoutPicksEarliestDeadline(t *testing.T) {
	rt := New()
	now := time.Unix(1000, 0)

	far := &fakeTicker{deadline: now.Add(10 * time.Second), hasOne: true}
	near := &fakeTicker{deadline: now.Add(1 * time.Second), hasOne: true}
	none := &fakeTicker{}
	rt.Register("far", far)
	rt.Register("near", near)
	rt.Register("none", none)

	_, timeout, has := rt.GetSocketsAndTimeout(now)
	require.True(t, has)
	require.Equal(t, 1*time.Second, timeout)
}

func TestGetSocketsAndTimeoutNoDeadlineWaitsIndefinitely(t *testing.T) {
	rt := New()
	rt.Register("idle", &fakeTicker{})
	_, _, has := rt.GetSocketsAndTimeout(time.Unix(0, 0))
	require.False(t, has)
}

func TestProcessTicksOnlyExpiredTickers(t *testing.T) {
	rt := New()
	now := time.Unix(2000, 0)
	expired := &fakeTicker{deadline: now.Add(-time.Second), hasOne: true}
	future := &fakeTicker{deadline: now.Add(time.Second), hasOne: true}
	rt.Register("expired", expired)
	rt.Register("future", future)

	rt.Process(now, nil)
	require.Len(t, expired.ticks, 1)
	require.Len(t, future.ticks, 0)
}

func TestUnregisterStopsTicking(t *testing.T) {
	rt := New()
	now := time.Unix(3000, 0)
	tk := &fakeTicker{deadline: now.Add(-time.Second), hasOne: true}
	rt.Register("gone", tk)
	rt.Unregister(tk)

	rt.Process(now, nil)
	require.Len(t, tk.ticks, 0)
}

func TestUnicastSocketRoundTrip(t *testing.T) {
	var got []byte
	var gotFrom *net.UDPAddr

	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()

	server := NewUnicastSocket("server", serverConn, func(from *net.UDPAddr, iface int, body []byte) {
		got = append([]byte(nil), body...)
		gotFrom = from
	})

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer clientConn.Close()

	_, err = clientConn.WriteToUDP([]byte("hello"), serverConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	require.NoError(t, server.readOnce())
	require.Equal(t, []byte("hello"), got)
	require.NotNil(t, gotFrom)
}

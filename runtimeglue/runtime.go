package runtimeglue

import (
	"time"

	"github.com/meridianav/avcore/internal/avlog"
)

var log = avlog.New("runtimeglue")

// Ticker is implemented by anything owning an internal deadline that
// must be serviced from the event loop: reqtable.Table (request
// timeouts), conmon.Table (subscription re-resolution), or any future
// client wrapping one. Runtime never reaches into a client's internals
// beyond this pair of methods.
type Ticker interface {
	NextDeadline() (time.Time, bool)
	Tick(now time.Time)
}

type namedTicker struct {
	name   string
	ticker Ticker
}

// Runtime aggregates every registered Ticker's next deadline and every
// registered Socket's readiness into the one GetSocketsAndTimeout/
// Process pair spec.md §2 describes. It owns no sockets or tickers of
// its own; Register/RegisterSocket just remembers references the
// embedder keeps alive elsewhere (a routing.Session's *reqtable.Table,
// a conmon.Table, ...).
type Runtime struct {
	tickers []namedTicker
	sockets []*Socket
}

// New creates an empty Runtime.
func New() *Runtime {
	return &Runtime{}
}

// Register adds a Ticker to the set serviced by Process. name is used
// only for diagnostics (log lines, panics-would-be-bugs messages).
func (rt *Runtime) Register(name string, t Ticker) {
	rt.tickers = append(rt.tickers, namedTicker{name: name, ticker: t})
}

// Unregister removes a previously registered Ticker, e.g. when a
// routing.Session is closed and its request table should no longer be
// ticked.
func (rt *Runtime) Unregister(t Ticker) {
	for i, nt := range rt.tickers {
		if nt.ticker == t {
			rt.tickers = append(rt.tickers[:i], rt.tickers[i+1:]...)
			return
		}
	}
}

// RegisterSocket adds a Socket to the set Process reads from when the
// host reports it ready.
func (rt *Runtime) RegisterSocket(s *Socket) {
	rt.sockets = append(rt.sockets, s)
}

// RemoveSocket stops tracking a socket, e.g. after the embedder closes
// it.
func (rt *Runtime) RemoveSocket(s *Socket) {
	for i, existing := range rt.sockets {
		if existing == s {
			rt.sockets = append(rt.sockets[:i], rt.sockets[i+1:]...)
			return
		}
	}
}

// GetSocketsAndTimeout returns every registered socket plus how long
// the host may wait before the earliest registered Ticker's deadline,
// per spec.md §2: "collects all read/write sockets and the earliest
// next-action time from the runtime". If no Ticker has a pending
// deadline, hasTimeout is false and the host should wait indefinitely
// (until a socket becomes readable).
func (rt *Runtime) GetSocketsAndTimeout(now time.Time) (sockets []*Socket, timeout time.Duration, hasTimeout bool) {
	sockets = append(sockets, rt.sockets...)

	var earliest time.Time
	found := false
	for _, nt := range rt.tickers {
		d, ok := nt.ticker.NextDeadline()
		if !ok {
			continue
		}
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}
	if !found {
		return sockets, 0, false
	}
	if earliest.Before(now) {
		return sockets, 0, true
	}
	return sockets, earliest.Sub(now), true
}

// Process is the other half of the event loop: it ticks every
// registered Ticker whose deadline has passed, then reads exactly one
// datagram from each socket the host reports as ready, dispatching it
// to that socket's handler. Per spec.md §5, every callback fires
// synchronously within this call and MUST NOT call Process itself;
// Runtime does not guard against that reentrancy call bug, the same
// way reqtable does not guard against a callback calling Submit on its
// own table mid-callback being bogus but harmless.
func (rt *Runtime) Process(now time.Time, ready []*Socket) {
	for _, nt := range rt.tickers {
		if d, ok := nt.ticker.NextDeadline(); ok && !d.After(now) {
			nt.ticker.Tick(now)
		}
	}
	for _, s := range ready {
		if err := s.readOnce(); err != nil {
			log.Debugf("socket %s read error: %v", s.Name, err)
		}
	}
}

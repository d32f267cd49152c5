package reqtable

import (
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/meridianav/avcore"
)

// Kind distinguishes a request submitted on the caller's behalf
// (Internal — e.g. a capability query the session issues itself
// during `active` negotiation) from one a caller submitted directly
// (UserVisible), per §3's "request class (internal vs. user-visible)".
type Kind uint8

const (
	KindInternal Kind = iota
	KindUserVisible
)

// DefaultCapacity is the pool size used when a client doesn't
// override it (§4.2: "default 16").
const DefaultCapacity = 16

// ID is an opaque request identifier. Internally it packs a slot
// index and a generation counter (design note: "Opaque handle
// pointers to internal structs are best modelled as identifier-indexed
// entries in per-client arenas, with a short generation counter per
// slot to catch use-after-free") so a stale id from a freed slot is
// never mistaken for a live one, even if the slot was reused.
type ID uint64

func makeID(slot int, gen uint32) ID {
	return ID(uint64(gen)<<32 | uint64(uint32(slot)))
}

func (id ID) slot() int     { return int(uint32(id)) }
func (id ID) generation() uint32 { return uint32(id >> 32) }

// Completion is what a Table hands to a request's callback.
type Completion struct {
	ID      ID
	Err     *avcore.Error // nil on success
	Payload []byte        // raw reply body, if any
}

// Callback is invoked exactly once per request: on server reply (via
// Complete), on deadline expiry (via Tick), or never, if the request
// is cancelled first.
type Callback func(Completion)

type entry struct {
	live        bool
	generation  uint32
	callback    Callback
	userContext interface{}
	kind        Kind
	submittedAt time.Time
	hasDeadline bool
	deadline    time.Time
}

// Table is the fixed-capacity pending-request pool of §4.2. It is not
// safe for concurrent use — like every client in this module, it is
// driven from a single thread inside runtimeglue.Process.
type Table struct {
	entries []entry
	free    []int // stack of free slot indices
	// recentDrops remembers ids that were cancelled or completed
	// recently, bounded by an LRU so a late server reply for one of
	// them is recognised and dropped silently instead of panicking on
	// a freed slot (§4.2 idempotency: "the server MAY still respond to
	// the cancelled request, in which case the codec drops the reply
	// silently"). Grounded on the teacher's ackedRequestIDs *lru.Cache
	// (kryptco-kr/krd/enclave_client.go), which exists for exactly
	// this purpose: recognise a reply for a request we're done with.
	recentDrops *lru.Cache
}

// New creates a Table with the given capacity. Capacity is meant to be
// set once at client-create time and left alone while connected (§4.2:
// "settable only while disconnected" — enforced by the owning client,
// not by Table itself).
func New(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t := &Table{
		entries:     make([]entry, capacity),
		free:        make([]int, capacity),
		recentDrops: lru.New(capacity * 4),
	}
	for i := range t.free {
		t.free[i] = capacity - 1 - i
	}
	return t
}

// Len reports how many slots are currently occupied.
func (t *Table) Len() int {
	return len(t.entries) - len(t.free)
}

// Cap reports the pool's fixed capacity.
func (t *Table) Cap() int { return len(t.entries) }

// Submit allocates a slot and returns its id, or OutOfRequests if the
// pool is full (§4.2: "submit allocates a slot or fails with
// OutOfRequests").
func (t *Table) Submit(cb Callback, userContext interface{}, kind Kind, now time.Time, timeout time.Duration) (ID, *avcore.Error) {
	if len(t.free) == 0 {
		return 0, avcore.New(avcore.OutOfRequests)
	}
	slot := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	e := &t.entries[slot]
	e.live = true
	e.generation++
	e.callback = cb
	e.userContext = userContext
	e.kind = kind
	e.submittedAt = now
	if timeout > 0 {
		e.hasDeadline = true
		e.deadline = now.Add(timeout)
	} else {
		e.hasDeadline = false
	}
	return makeID(slot, e.generation), nil
}

// UserContext returns the context passed to Submit for a still-live
// id, or nil if the id is stale.
func (t *Table) UserContext(id ID) interface{} {
	e, ok := t.live(id)
	if !ok {
		return nil
	}
	return e.userContext
}

// Kind returns the request class for a still-live id.
func (t *Table) Kind(id ID) (Kind, bool) {
	e, ok := t.live(id)
	if !ok {
		return 0, false
	}
	return e.kind, true
}

func (t *Table) live(id ID) (*entry, bool) {
	slot := id.slot()
	if slot < 0 || slot >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[slot]
	if !e.live || e.generation != id.generation() {
		return nil, false
	}
	return e, true
}

func (t *Table) release(slot int) {
	t.entries[slot].live = false
	t.entries[slot].callback = nil
	t.entries[slot].userContext = nil
	t.free = append(t.free, slot)
}

// Complete invokes id's callback with result and frees its slot. If id
// is not live (already completed, cancelled, or never issued by this
// table), Complete is a silent no-op — this is what lets a late reply
// for a cancelled request be dropped per §4.2.
func (t *Table) Complete(id ID, result Completion) {
	e, ok := t.live(id)
	if !ok {
		return
	}
	cb := e.callback
	slot := id.slot()
	t.release(slot)
	t.recentDrops.Add(id, struct{}{})
	result.ID = id
	if cb != nil {
		cb(result)
	}
}

// Cancel frees id's slot without invoking its callback and without
// informing the server (§4.2: "cancel(id) frees the slot without
// calling the callback"). Cancelling an id that is already free is a
// no-op (§8 idempotence: "cancel(id) on an id that is already free is
// a no-op and returns Success").
func (t *Table) Cancel(id ID) {
	if _, ok := t.live(id); !ok {
		return
	}
	t.release(id.slot())
	t.recentDrops.Add(id, struct{}{})
}

// WasRecentlyClosed reports whether id belonged to a request that was
// completed or cancelled recently enough to still be remembered. A
// codec dispatch loop uses this to recognise and drop a stray reply
// for a request nobody is waiting on anymore instead of logging it as
// a protocol error.
func (t *Table) WasRecentlyClosed(id ID) bool {
	_, ok := t.recentDrops.Get(id)
	return ok
}

// CancelAll frees every live slot without invoking any callback, used
// when the owning session closes (§5: "Closing a session cancels
// every request owned by that session without firing their
// callbacks").
func (t *Table) CancelAll() {
	for slot := range t.entries {
		if t.entries[slot].live {
			t.release(slot)
		}
	}
}

// CompleteAllWith completes every live request with err, invoking each
// one's callback. Unlike CancelAll, no callback is skipped: this is
// what lets a session transition (e.g. CapabilitiesChanged, §3 Open
// Question #1) surface to every caller with a pending request instead
// of silently freeing them.
func (t *Table) CompleteAllWith(err *avcore.Error) {
	for slot := range t.entries {
		if t.entries[slot].live {
			id := makeID(slot, t.entries[slot].generation)
			t.Complete(id, Completion{Err: err})
		}
	}
}

// Tick completes every request whose deadline has passed with
// TimedOut, per §4.2: "tick(now) fires timeout completions with
// TimedOut and frees the slot."
func (t *Table) Tick(now time.Time) {
	for slot := range t.entries {
		e := &t.entries[slot]
		if e.live && e.hasDeadline && !now.Before(e.deadline) {
			id := makeID(slot, e.generation)
			t.Complete(id, Completion{Err: avcore.New(avcore.TimedOut)})
		}
	}
}

// NextDeadline returns the earliest pending deadline across all live
// requests and whether one exists, for runtimeglue's next-action-time
// computation (§2, §5).
func (t *Table) NextDeadline() (time.Time, bool) {
	var earliest time.Time
	found := false
	for slot := range t.entries {
		e := &t.entries[slot]
		if e.live && e.hasDeadline {
			if !found || e.deadline.Before(earliest) {
				earliest = e.deadline
				found = true
			}
		}
	}
	return earliest, found
}

// LiveIDs returns the ids of every currently occupied slot, in no
// particular order. Intended for host-side diagnostics (listing
// outstanding requests) and for tests that need to script a
// completion without the submitting package exposing its own id.
func (t *Table) LiveIDs() []ID {
	ids := make([]ID, 0, t.Len())
	for slot := range t.entries {
		if t.entries[slot].live {
			ids = append(ids, makeID(slot, t.entries[slot].generation))
		}
	}
	return ids
}

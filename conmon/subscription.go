package conmon

import (
	"time"

	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/reqtable"
	"github.com/meridianav/avcore/wire"
)

// ReceiveStatus is the subscription receive-status state machine of
// §4.3. `StatusResolved` is never held onto: it is the name the spec
// gives the transient instant between an ack arriving and the status
// being refined to Unicast/Multicast/Domain by address kind, so this
// package folds straight through it and never surfaces it to callers.
type ReceiveStatus uint8

const (
	StatusNone ReceiveStatus = iota
	StatusPreparing
	StatusUnresolved
	StatusUnicast
	StatusMulticast
	StatusDomain

	// Terminal failure states (§4.3); a record parked here stays there
	// until the controller issues an explicit re-subscribe or unsubscribe.
	StatusCommsError
	StatusNoConnection
	StatusInvalidReply
	StatusPolicy
	StatusTxNoChannel
)

func (s ReceiveStatus) Terminal() bool {
	return s >= StatusCommsError
}

// retryInterval governs how often an Unresolved subscription attempts
// re-resolution (§4.3: "periodic re-resolution attempts continue until
// unsubscribe or successful resolution").
const retryInterval = 5 * time.Second

// Key identifies a subscription record: a channel of a given type on a
// named device, or, with an empty DeviceName, on every device as used
// by SubscribeGlobal (§4.3: "subscribe_global (accept all senders for
// a channel)").
type Key struct {
	Type        wire.ChannelType
	ChannelName avcore.Name
	DeviceName  avcore.Name
}

// Result is delivered to a Subscribe/Unsubscribe caller's callback
// once the server acknowledges (or the attempt fails outright).
type Result struct {
	Key      Key
	Status   ReceiveStatus
	Instance avcore.InstanceID
	AddrKind wire.AddressKind
	Address  avcore.Address
	Err      *avcore.Error
}

// Callback receives exactly one Result per Subscribe/Unsubscribe call,
// including coalesced callers (§4.3 edge case: "the second caller's
// result is the first caller's result").
type Callback func(Result)

type record struct {
	key       Key
	status    ReceiveStatus
	global    bool
	instance  avcore.InstanceID
	addrKind  wire.AddressKind
	address   avcore.Address
	hasReq    bool
	reqID     reqtable.ID
	waiters   []Callback
	nextRetry time.Time
}

// Sender transmits a subscribe/unsubscribe request frame. The table
// does not own a socket; the Sender supplied to New serializes the
// request (wire.InitSubscribeRequest) and hands it to the session's
// transport.
type Sender func(req wire.SubscribeRequest) *avcore.Error

// Table is the per-client subscription table of §4.3, keyed by
// (channel-type, channel@device). Grounded on the teacher's
// EnclaveClient.requestCallbacksByRequestID coalescing concurrent
// callers onto one in-flight exchange, generalized into the full
// receive-status machine.
type Table struct {
	records map[Key]*record
	reqs    *reqtable.Table
	send    Sender
}

// New creates a Table that submits its requests through reqs and
// transmits them via send.
func New(reqs *reqtable.Table, send Sender) *Table {
	return &Table{
		records: make(map[Key]*record),
		reqs:    reqs,
		send:    send,
	}
}

// Status reports a key's current receive status, StatusNone if no
// record exists.
func (t *Table) Status(key Key) ReceiveStatus {
	if r, ok := t.records[key]; ok {
		return r.status
	}
	return StatusNone
}

// PendingRequestID returns the reqtable id of key's in-flight
// subscribe/unsubscribe exchange, if any. A dispatch loop correlates
// an incoming ack frame's id directly and doesn't need this; it exists
// for callers (and tests) that need to script a completion for a
// specific key.
func (t *Table) PendingRequestID(key Key) (reqtable.ID, bool) {
	r, ok := t.records[key]
	if !ok || !r.hasReq {
		return 0, false
	}
	return r.reqID, true
}

// Subscribe asks the server to resolve and track key. If a subscribe
// is already in flight for key, cb is coalesced onto it instead of
// issuing a second request.
func (t *Table) Subscribe(key Key, global bool, cb Callback) *avcore.Error {
	return t.subscribeOrUnsubscribe(key, global, false, cb)
}

// SubscribeGlobal is Subscribe with Global set: "accept all senders
// for a channel" (§4.3).
func (t *Table) SubscribeGlobal(channelType wire.ChannelType, channelName avcore.Name, cb Callback) *avcore.Error {
	return t.Subscribe(Key{Type: channelType, ChannelName: channelName}, true, cb)
}

// Unsubscribe cancels any in-flight subscribe for key (§4.3: "Unsubscribe
// cancels any in-flight subscribe") and asks the server to drop the
// subscription; the record transitions to StatusNone once acknowledged.
func (t *Table) Unsubscribe(key Key, cb Callback) *avcore.Error {
	r := t.records[key]
	if r != nil && r.hasReq {
		t.reqs.Cancel(r.reqID)
		r.hasReq = false
		r.waiters = nil
	}
	return t.subscribeOrUnsubscribe(key, r != nil && r.global, true, cb)
}

// UnsubscribeGlobal is Unsubscribe for a global subscription.
func (t *Table) UnsubscribeGlobal(channelType wire.ChannelType, channelName avcore.Name, cb Callback) *avcore.Error {
	return t.Unsubscribe(Key{Type: channelType, ChannelName: channelName}, cb)
}

func (t *Table) subscribeOrUnsubscribe(key Key, global bool, unsubscribe bool, cb Callback) *avcore.Error {
	if !global && key.DeviceName == "" {
		return avcore.New(avcore.InvalidParameter)
	}
	r := t.records[key]
	if r == nil {
		r = &record{key: key, status: StatusNone}
		t.records[key] = r
	}
	if r.hasReq {
		// Coalesce: the pending exchange's completion will serve every
		// waiter registered against it (§4.3 edge case).
		if cb != nil {
			r.waiters = append(r.waiters, cb)
		}
		return nil
	}

	r.global = global
	if !unsubscribe {
		r.status = StatusPreparing
	}
	if cb != nil {
		r.waiters = append(r.waiters[:0], cb)
	} else {
		r.waiters = r.waiters[:0]
	}

	id, aerr := t.reqs.Submit(func(c reqtable.Completion) {
		if unsubscribe && c.Err == nil {
			// An acknowledged unsubscribe drops the record, so its
			// status reads StatusNone again.
			if r := t.records[key]; r != nil {
				waiters := r.waiters
				delete(t.records, key)
				for _, w := range waiters {
					w(Result{Key: key, Status: StatusNone})
				}
			}
			return
		}
		t.onCompletion(key, c)
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		t.deliverTerminal(r, statusForErrorKind(aerr.Kind), aerr)
		return aerr
	}
	r.hasReq = true
	r.reqID = id

	req := wire.SubscribeRequest{
		Type:        key.Type,
		ChannelName: key.ChannelName,
		DeviceName:  key.DeviceName,
		Global:      global,
		Unsubscribe: unsubscribe,
	}
	if sendErr := t.send(req); sendErr != nil {
		t.reqs.Cancel(id)
		r.hasReq = false
		t.deliverTerminal(r, StatusCommsError, sendErr)
		return sendErr
	}
	return nil
}

// Deliver is called by the session's dispatch loop with the decoded
// ack body once the request table has correlated a reply to this
// table's pending request. It mirrors reqtable's own Complete
// signature so a dispatch loop can route a frame straight through.
func (t *Table) Deliver(id reqtable.ID, payload []byte, err *avcore.Error) {
	if err != nil {
		t.reqs.Complete(id, reqtable.Completion{Err: err})
		return
	}
	t.reqs.Complete(id, reqtable.Completion{Payload: payload})
}

func (t *Table) onCompletion(key Key, c reqtable.Completion) {
	r := t.records[key]
	if r == nil {
		return
	}
	r.hasReq = false
	waiters := r.waiters
	r.waiters = nil

	if c.Err != nil {
		t.deliverTerminalWaiters(r, waiters, statusForErrorKind(c.Err.Kind), c.Err)
		return
	}

	ack, ok := wire.GetSubscribeAck(wire.NewReader(c.Payload))
	if !ok {
		t.deliverTerminalWaiters(r, waiters, StatusInvalidReply, avcore.New(avcore.InvalidReply))
		return
	}

	switch ack.Kind {
	case wire.SubscribeAckResolved:
		r.status = statusForAddressKind(ack.AddrKind)
		r.instance = ack.Instance
		r.addrKind = ack.AddrKind
		r.address = ack.Address
	case wire.SubscribeAckUnresolved:
		r.status = StatusUnresolved
		r.nextRetry = time.Now().Add(retryInterval)
	case wire.SubscribeAckError:
		r.status = statusForErrorKind(avcore.Kind(ack.ErrorKind))
	default:
		r.status = StatusInvalidReply
	}

	result := Result{
		Key:      key,
		Status:   r.status,
		Instance: r.instance,
		AddrKind: r.addrKind,
		Address:  r.address,
	}
	for _, w := range waiters {
		w(result)
	}
}

func (t *Table) deliverTerminal(r *record, status ReceiveStatus, err *avcore.Error) {
	waiters := r.waiters
	r.waiters = nil
	t.deliverTerminalWaiters(r, waiters, status, err)
}

func (t *Table) deliverTerminalWaiters(r *record, waiters []Callback, status ReceiveStatus, err *avcore.Error) {
	r.status = status
	result := Result{Key: r.key, Status: status, Err: err}
	for _, w := range waiters {
		w(result)
	}
}

// Tick drives periodic re-resolution for subscriptions stuck in
// StatusUnresolved (§4.3).
func (t *Table) Tick(now time.Time) {
	for key, r := range t.records {
		if r.status == StatusUnresolved && !r.hasReq && !r.nextRetry.IsZero() && !now.Before(r.nextRetry) {
			_ = t.subscribeOrUnsubscribe(key, r.global, false, nil)
		}
	}
}

// NextDeadline returns the earliest pending re-resolution retry across
// all records, for runtimeglue.Runtime's next-action-time computation.
// Satisfies runtimeglue.Ticker alongside Tick.
func (t *Table) NextDeadline() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, r := range t.records {
		if r.status == StatusUnresolved && !r.hasReq && !r.nextRetry.IsZero() {
			if !found || r.nextRetry.Before(earliest) {
				earliest = r.nextRetry
				found = true
			}
		}
	}
	return earliest, found
}

func statusForAddressKind(k wire.AddressKind) ReceiveStatus {
	switch k {
	case wire.AddressKindUnicast:
		return StatusUnicast
	case wire.AddressKindMulticast:
		return StatusMulticast
	case wire.AddressKindDomain:
		return StatusDomain
	default:
		return StatusInvalidReply
	}
}

func statusForErrorKind(k avcore.Kind) ReceiveStatus {
	switch k {
	case avcore.NoConnection:
		return StatusNoConnection
	case avcore.PolicyError:
		return StatusPolicy
	case avcore.TxNoChannel:
		return StatusTxNoChannel
	case avcore.InvalidReply:
		return StatusInvalidReply
	default:
		return StatusCommsError
	}
}

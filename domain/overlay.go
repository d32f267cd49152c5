package domain

import (
	"time"

	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/internal/avlog"
	"github.com/meridianav/avcore/reqtable"
)

var log = avlog.New("domain")

// State is one of the 8 states of the domain overlay's authentication
// and domain-selection state machine (§4.7).
type State uint8

const (
	StateDisabled State = iota
	StateDiscovering
	StateDisconnected
	StateIdentifying
	StateIdentified
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateDiscovering:
		return "discovering"
	case StateDisconnected:
		return "disconnected"
	case StateIdentifying:
		return "identifying"
	case StateIdentified:
		return "identified"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "state(?)"
	}
}

// Credentials is an opaque credential bundle handed to the managed
// controller's auth step. The core never interprets or derives keys
// from it; that is the embedder's concern (see DESIGN.md's note on why
// the teacher's libsodium/cryptobox pairing crypto was not carried).
type Credentials struct {
	Username string
	Secret   []byte
}

// Info describes one domain the authenticated principal may enter
// (§4.7: "role label, an access-policy summary, a short numeric id,
// and a clock-subdomain name").
type Info struct {
	UUID           avcore.DomainUUID
	Role           avcore.Name
	AccessPolicy   avcore.Name
	ShortID        uint16
	ClockSubdomain avcore.Name
}

// Listener receives domain-selection notifications, in the order
// DomainChanging then DomainChanged (§4.7: "Selecting a different
// domain emits DomainChanging then DomainChanged to every dependent
// client, which MUST drop cached peer state acquired under the old
// domain"). Implementations are expected to drop cached peer state on
// DomainChanging and are safe to rebuild it only once DomainChanged
// fires.
type Listener interface {
	DomainChanging(old, next avcore.DomainUUID)
	DomainChanged(old, next avcore.DomainUUID)
}

// Sender issues the connect(creds) request to the managed controller.
// The returned error, if non-nil, aborts the connect attempt before any
// state change.
type Sender func(creds Credentials) *avcore.Error

// Options configures an Overlay, mirroring the Default*() option shape
// used by routing/browse. New does not read RequestPoolCapacity: the
// overlay uses the request table passed to it as-is.
type Options struct {
	RequestPoolCapacity int
}

func DefaultOptions() Options {
	return Options{RequestPoolCapacity: reqtable.DefaultCapacity}
}

// Overlay is the domain overlay of §4.7: an 8-state machine gating
// browse/routing operations on discovery, identification and
// authentication against a managed controller (or bypassing all of
// that with a manual address, for the ad-hoc case).
//
// Like every client in this module, Overlay is single-threaded and
// driven from runtimeglue.Process; it holds no goroutines or mutexes.
type Overlay struct {
	state State
	// errored records the "(error flag set)" annotation on the
	// connecting->disconnected auth-fail transition (§4.7): the state
	// alone can't distinguish "never tried" from "tried and failed".
	errored bool
	lastErr *avcore.Error

	managerAddr avcore.Address
	haveManager bool

	domains []Info
	current avcore.DomainUUID
	listeners []Listener

	reqs          *reqtable.Table
	send          Sender
	connectID     reqtable.ID
	hasConnectID  bool
}

// New creates an Overlay in the disabled state.
func New(reqs *reqtable.Table, send Sender, opts Options) *Overlay {
	return &Overlay{
		state:   StateDisabled,
		reqs:    reqs,
		send:    send,
		current: avcore.NoneDomain,
	}
}

func (o *Overlay) State() State { return o.state }

// Requests exposes the overlay's request table so runtimeglue can
// register it as a Ticker without domain depending on runtimeglue.
func (o *Overlay) Requests() *reqtable.Table { return o.reqs }

// Errored reports whether the last connect attempt ended in an
// auth-fail (§4.7's "(error flag set)" annotation), cleared by the
// next successful connect.
func (o *Overlay) Errored() bool { return o.errored }

// LastError returns the cause of the most recent failed transition, if
// any.
func (o *Overlay) LastError() *avcore.Error { return o.lastErr }

// AddListener registers a dependent client for DomainChanging/
// DomainChanged notification.
func (o *Overlay) AddListener(l Listener) { o.listeners = append(o.listeners, l) }

// ManagerAddress returns the address of the manager found during
// discovery, or set manually, and whether one is known yet.
func (o *Overlay) ManagerAddress() (avcore.Address, bool) { return o.managerAddr, o.haveManager }

// StartDiscovery begins passive discovery of a managed controller
// (disabled -> discovering, §4.7).
func (o *Overlay) StartDiscovery() *avcore.Error {
	if o.state != StateDisabled {
		return avcore.New(avcore.InvalidState)
	}
	o.state = StateDiscovering
	return nil
}

// SetManualAddress bypasses discovery with a known controller address
// (disabled -> disconnected, §4.7).
func (o *Overlay) SetManualAddress(addr avcore.Address) *avcore.Error {
	if o.state != StateDisabled {
		return avcore.New(avcore.InvalidState)
	}
	o.managerAddr = addr
	o.haveManager = true
	o.state = StateDisconnected
	return nil
}

// ManagerFound is the discovery adapter's callback reporting a
// controller sighting (discovering -> disconnected, §4.7).
func (o *Overlay) ManagerFound(addr avcore.Address) *avcore.Error {
	if o.state != StateDiscovering {
		return avcore.New(avcore.InvalidState)
	}
	o.managerAddr = addr
	o.haveManager = true
	o.state = StateDisconnected
	return nil
}

// DiscoveryTimeout abandons discovery (discovering -> disabled, §4.7).
func (o *Overlay) DiscoveryTimeout() *avcore.Error {
	if o.state != StateDiscovering {
		return avcore.New(avcore.InvalidState)
	}
	o.haveManager = false
	o.state = StateDisabled
	return nil
}

// Identify requests the controller's identity (disconnected ->
// identifying, §4.7).
func (o *Overlay) Identify() *avcore.Error {
	if o.state != StateDisconnected {
		return avcore.New(avcore.InvalidState)
	}
	o.state = StateIdentifying
	return nil
}

// IdentityReceived reports the controller's identity ack (identifying
// -> identified, §4.7).
func (o *Overlay) IdentityReceived() *avcore.Error {
	if o.state != StateIdentifying {
		return avcore.New(avcore.InvalidState)
	}
	o.state = StateIdentified
	return nil
}

// Connect authenticates against the controller. It is valid from
// either identified or disconnected (§4.7: "disconnected -> connect
// (creds) -> connecting (skips identified)"). cb fires once, when the
// auth result arrives.
func (o *Overlay) Connect(creds Credentials, cb func(*avcore.Error)) *avcore.Error {
	if o.state != StateIdentified && o.state != StateDisconnected {
		return avcore.New(avcore.InvalidState)
	}
	id, aerr := o.reqs.Submit(func(c reqtable.Completion) {
		o.onAuthReply(c, cb)
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		return aerr
	}
	if sendErr := o.send(creds); sendErr != nil {
		o.reqs.Cancel(id)
		return sendErr
	}
	o.connectID = id
	o.hasConnectID = true
	o.state = StateConnecting
	return nil
}

func (o *Overlay) onAuthReply(c reqtable.Completion, cb func(*avcore.Error)) {
	o.hasConnectID = false
	if o.state != StateConnecting {
		// A fatal error or re-entrant connect already moved the
		// overlay on; this reply belongs to a prior attempt.
		return
	}
	if c.Err != nil {
		o.errored = true
		o.lastErr = c.Err
		o.state = StateDisconnected
		if cb != nil {
			cb(c.Err)
		}
		return
	}
	o.errored = false
	o.lastErr = nil
	o.state = StateConnected
	if cb != nil {
		cb(nil)
	}
}

// Disconnect tears down an authenticated session (connected ->
// disconnected, §4.7), clearing the domain list and, if a domain was
// selected, notifying listeners it is gone.
func (o *Overlay) Disconnect() *avcore.Error {
	if o.state != StateConnected {
		return avcore.New(avcore.InvalidState)
	}
	old := o.current
	o.domains = nil
	o.current = avcore.NoneDomain
	o.state = StateDisconnected
	if !old.IsNone() {
		o.notify(old, avcore.NoneDomain)
	}
	return nil
}

// FatalError forces the overlay into the terminal error state from any
// state except disabled (§4.7: "any except disabled -> fatal error ->
// error"). Any in-flight connect is cancelled without firing its
// callback.
func (o *Overlay) FatalError(cause *avcore.Error) {
	if o.state == StateDisabled {
		log.Warningf("fatal error ignored while disabled: %v", cause)
		return
	}
	if o.hasConnectID {
		o.reqs.Cancel(o.connectID)
		o.hasConnectID = false
	}
	o.lastErr = cause
	o.state = StateError
}

// SetDomains replaces the domain list the authenticated principal may
// enter. Valid only while connected (§4.7).
func (o *Overlay) SetDomains(domains []Info) *avcore.Error {
	if o.state != StateConnected {
		return avcore.New(avcore.InvalidState)
	}
	o.domains = domains
	return nil
}

// Domains returns a copy of the current domain list.
func (o *Overlay) Domains() []Info {
	out := make([]Info, len(o.domains))
	copy(out, o.domains)
	return out
}

// Current returns the currently selected domain, or NoneDomain if none
// has been selected yet.
func (o *Overlay) Current() avcore.DomainUUID { return o.current }

// SelectDomain switches the current domain, firing DomainChanging then
// DomainChanged to every registered listener in that order (§4.7).
func (o *Overlay) SelectDomain(uuid avcore.DomainUUID) *avcore.Error {
	if o.state != StateConnected {
		return avcore.New(avcore.InvalidState)
	}
	if !o.hasDomain(uuid) {
		return avcore.New(avcore.NotFound)
	}
	old := o.current
	for _, l := range o.listeners {
		l.DomainChanging(old, uuid)
	}
	o.current = uuid
	for _, l := range o.listeners {
		l.DomainChanged(old, uuid)
	}
	return nil
}

func (o *Overlay) hasDomain(uuid avcore.DomainUUID) bool {
	for _, d := range o.domains {
		if d.UUID == uuid {
			return true
		}
	}
	return false
}

func (o *Overlay) notify(old, next avcore.DomainUUID) {
	for _, l := range o.listeners {
		l.DomainChanging(old, next)
	}
	for _, l := range o.listeners {
		l.DomainChanged(old, next)
	}
}

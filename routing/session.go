package routing

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/internal/avlog"
	"github.com/meridianav/avcore/reqtable"
	"github.com/meridianav/avcore/wire"
)

var log = avlog.New("routing")

// State is the device-session state machine of §4.4: forward-only
// among successes, with error and deleting reachable from anywhere.
type State uint8

const (
	StateResolving State = iota
	StateResolved
	StateQuerying
	StateActive
	StateError
	StateDeleting
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateQuerying:
		return "querying"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	case StateDeleting:
		return "deleting"
	default:
		return "state(?)"
	}
}

// Sender transmits a request frame belonging to this session; the
// frame header is added by whoever supplies the Sender, which knows the session's class/vendor-id/source-device-id to stamp onto
// every frame's header.
type Sender func(vendorType uint16, body []byte) *avcore.Error

// RefreshBatch is the batched element-range refresh request
// supplementing §4.4's "update_component ... issues one or more
// batched requests that return only the stale elements", grounded on
// original_source/include/audinate/dante/routing_flows.h's range-based
// "get" calls. A single batch always fits one frame body.
type RefreshBatch struct {
	Component avcore.Component
	Start     uint16
	Count     uint16
}

const maxBatchElements = 64

// Options configures a Session's stale-cache bound, following the
// teacher's Timeouts value-struct pattern (kryptco-kr/timeouts.go).
// New does not read RequestPoolCapacity: the session uses the request
// table passed to it as-is.
type Options struct {
	RequestPoolCapacity int
	StaleCacheSize       int
}

func DefaultOptions() Options {
	return Options{RequestPoolCapacity: reqtable.DefaultCapacity, StaleCacheSize: 256}
}

// Session is a device session (§3, §4.4): the client-side cache of one
// device's channels/labels/flows plus the state machine governing when
// that cache may be trusted.
//
// Grounded on kryptco-kr/krd/enclave_client.go's EnclaveClient: one
// object bundling a transport-reaching request table and a cached
// remote profile. Session generalizes that single cached-profile field
// into six independently stale-tracked caches.
type Session struct {
	name           avcore.Name
	advertisedName avcore.Name
	actualName     avcore.Name
	connectName    avcore.Name
	strategy       Strategy

	state  State
	status avcore.StatusFlag

	capabilities       avcore.Capability
	capabilitiesLatched bool

	addresses    [2]avcore.Address
	numAddresses int
	version      avcore.Version
	routingID    DomainRoutingID

	stale   avcore.ComponentSet
	changed avcore.ChangeFlag

	reqs *reqtable.Table
	send Sender

	// recentlyTouched remembers when element ids were last refreshed
	// per component; an element-level MarkStale evicts that element's
	// entry. UpdateComponent does not consult it: the caller passes the
	// element ids to refresh. Distinct from reqtable's
	// groupcache LRU: this one is keyed by (component, element id) and
	// used for element-level bookkeeping, not request correlation.
	recentlyTouched *lru.Cache

	txChannels map[uint16]*TxChannel
	rxChannels map[uint16]*RxChannel
	labels     map[uint16]*Label
	txFlows    map[uint16]*TxFlow
	rxFlows    map[uint16]*RxFlow

	pendingRefresh map[avcore.Component]int // outstanding RefreshBatch replies per component
	refreshDone    map[avcore.Component]func(*avcore.Error)
}

// New creates a Session in state Resolving, addressed via strategy.
func New(name avcore.Name, strategy Strategy, reqs *reqtable.Table, send Sender, opts Options) *Session {
	cache, err := lru.New(opts.StaleCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size; opts is
		// caller-controlled and DefaultOptions is always positive.
		cache, _ = lru.New(reqtable.DefaultCapacity)
	}
	return &Session{
		name:            name,
		advertisedName:  name,
		actualName:      name,
		strategy:        strategy,
		state:           StateResolving,
		reqs:            reqs,
		send:            send,
		recentlyTouched: cache,
		txChannels:      make(map[uint16]*TxChannel),
		rxChannels:      make(map[uint16]*RxChannel),
		labels:          make(map[uint16]*Label),
		txFlows:         make(map[uint16]*TxFlow),
		rxFlows:         make(map[uint16]*RxFlow),
		pendingRefresh:  make(map[avcore.Component]int),
		refreshDone:     make(map[avcore.Component]func(*avcore.Error)),
	}
}

// Requests exposes the session's request table so runtimeglue can
// register it as a Ticker (for timeout servicing) without Session
// itself depending on runtimeglue.
func (s *Session) Requests() *reqtable.Table { return s.reqs }

func (s *Session) State() State           { return s.state }
func (s *Session) Name() avcore.Name      { return s.actualName }
func (s *Session) Status() avcore.StatusFlag { return s.status }
func (s *Session) Stale() avcore.ComponentSet { return s.stale }

// Changed returns the accumulated change bitmask since the last call
// and clears it, so reading it once per process step yields the union
// of that step's changes (§4.4).
func (s *Session) Changed() avcore.ChangeFlag {
	c := s.changed
	s.changed = 0
	return c
}

func (s *Session) markChanged(f avcore.ChangeFlag) { s.changed = s.changed.Set(f) }

// advance moves the session forward through resolving→resolved→
// querying→active; a target at or before the current state is ignored.
// Any state may be forced to StateError or StateDeleting directly via
// failTo/Close.
func (s *Session) advance(to State) {
	if s.state == StateError || s.state == StateDeleting {
		return
	}
	if to <= s.state {
		return
	}
	s.state = to
	s.markChanged(avcore.ChangeState)
}

func (s *Session) failTo(kind avcore.Kind) {
	if s.state == StateError || s.state == StateDeleting {
		return
	}
	s.state = StateError
	s.markChanged(avcore.ChangeState)
	log.Warningf("session %s: entering error state (%s)", s.name, kind)
	s.reqs.CancelAll()
}

// requireActive rejects query operations before §4.4's "prior to
// active MUST NOT report channels, labels, or flows" invariant.
func (s *Session) requireActive() *avcore.Error {
	if s.state != StateActive {
		return avcore.New(avcore.InvalidState)
	}
	return nil
}

// MarkStale flags component as needing refresh, either wholly or (by
// passing a specific elementID with whole=false) at element
// granularity (§4.4 "Staleness-driven refresh").
func (s *Session) MarkStale(component avcore.Component, whole bool, elementID uint16) {
	s.stale = s.stale.Add(component)
	if !whole {
		s.recentlyTouched.Remove(staleKey{component, elementID})
	}
	s.markChanged(avcore.ChangeStale)
}

type staleKey struct {
	component avcore.Component
	element   uint16
}

// Ping issues a no-op round trip, valid in Resolved or later (§4.4).
func (s *Session) Ping(cb func(*avcore.Error)) *avcore.Error {
	if s.state == StateResolving {
		return avcore.New(avcore.InvalidState)
	}
	_, aerr := s.reqs.Submit(func(c reqtable.Completion) {
		if cb != nil {
			cb(c.Err)
		}
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		return aerr
	}
	return s.send(pingVendorType, nil)
}

// StoreConfig persists server-side configuration. Per §4.4, the local
// cache is not mutated here; a later PropertyChanged notification
// drives the actual cache update via update_component.
func (s *Session) StoreConfig(body []byte, cb func(*avcore.Error)) *avcore.Error {
	return s.submitOpaque(storeConfigVendorType, body, cb)
}

// ClearConfig resets server-side configuration, same caching
// discipline as StoreConfig.
func (s *Session) ClearConfig(cb func(*avcore.Error)) *avcore.Error {
	return s.submitOpaque(clearConfigVendorType, nil, cb)
}

func (s *Session) submitOpaque(vendorType uint16, body []byte, cb func(*avcore.Error)) *avcore.Error {
	if err := s.requireActive(); err != nil {
		return err
	}
	_, aerr := s.reqs.Submit(func(c reqtable.Completion) {
		if cb != nil {
			cb(c.Err)
		}
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		return aerr
	}
	return s.send(vendorType, body)
}

// Rename requests the device be renamed. For a LocalStrategy session
// the local name changes in place; for a remote session the session
// enters StateError after the ack because the connect-name used to
// reach it is no longer valid (§4.4).
func (s *Session) Rename(newName avcore.Name, cb func(*avcore.Error)) *avcore.Error {
	if err := s.requireActive(); err != nil {
		return err
	}
	_, isLocal := s.strategy.(LocalStrategy)
	_, aerr := s.reqs.Submit(func(c reqtable.Completion) {
		if c.Err == nil {
			if isLocal {
				s.actualName = newName
				s.markChanged(avcore.ChangeName)
			} else {
				s.failTo(avcore.InvalidState)
			}
		}
		if cb != nil {
			cb(c.Err)
		}
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		return aerr
	}
	return s.send(renameVendorType, []byte(newName))
}

// HandleCapabilityQuery is called once a capability-query reply
// arrives. The bitset latches on first success; a later reply
// reporting a different bitset is a fatal CapabilitiesChanged
// transition (§4.4) — per Open Question decision #1, every request
// still pending on this session at that point is completed with
// Kind=CapabilitiesChanged instead of being dropped silently.
func (s *Session) HandleCapabilityQuery(caps avcore.Capability) {
	if !s.capabilitiesLatched {
		s.capabilities = caps
		s.capabilitiesLatched = true
		return
	}
	if caps != s.capabilities {
		s.completeAllWith(avcore.CapabilitiesChanged)
		s.failTo(avcore.CapabilitiesChanged)
	}
}

// completeAllWith fires every request this session has outstanding
// with kind, per Open Question decision #1: a CapabilitiesChanged
// transition surfaces to every pending caller (Ping, StoreConfig,
// ClearConfig, Rename, flow Commit, RefreshBatch) instead of silently
// freeing them. reqtable.Table.CompleteAllWith invokes each entry's own
// registered callback, which for a refresh batch routes back through
// onRefreshReply and clears pendingRefresh/refreshDone as a side
// effect of that per-component bookkeeping.
func (s *Session) completeAllWith(kind avcore.Kind) {
	s.reqs.CompleteAllWith(avcore.New(kind))
}

// UpdateComponent completes once every RefreshBatch it issued has a
// reply (§4.4), issuing RefreshBatch requests capped at
// maxBatchElements each. With explicit elementIDs, every listed id is
// covered by a batch. With no elementIDs (a whole-component refresh),
// a single batch for ids 0 through maxBatchElements-1 is sent; elements
// beyond that range are not requested, and the component's stale bit
// clears when that one reply arrives.
func (s *Session) UpdateComponent(component avcore.Component, elementIDs []uint16, cb func(*avcore.Error)) *avcore.Error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if !s.stale.Has(component) {
		if cb != nil {
			cb(nil)
		}
		return nil
	}
	if len(elementIDs) == 0 {
		// Whole-component refresh: one batch of maxBatchElements
		// elements starting at 0.
		elementIDs = []uint16{0}
	}
	batches := batchRanges(elementIDs, maxBatchElements)
	s.pendingRefresh[component] = len(batches)
	s.refreshDone[component] = cb
	for _, b := range batches {
		batch := RefreshBatch{Component: component, Start: b[0], Count: b[1]}
		_, aerr := s.reqs.Submit(func(c reqtable.Completion) {
			s.onRefreshReply(component, c)
		}, nil, reqtable.KindInternal, time.Now(), 0)
		if aerr != nil {
			delete(s.pendingRefresh, component)
			delete(s.refreshDone, component)
			return aerr
		}
		body, ok := encodeRefreshRequest(batch)
		if !ok {
			delete(s.pendingRefresh, component)
			delete(s.refreshDone, component)
			return avcore.New(avcore.InvalidData)
		}
		if sendErr := s.send(uint16(wire.VendorTypeRefreshRequest), body); sendErr != nil {
			return sendErr
		}
	}
	return nil
}

func (s *Session) onRefreshReply(component avcore.Component, c reqtable.Completion) {
	remaining, ok := s.pendingRefresh[component]
	if !ok {
		return
	}
	remaining--
	if c.Err == nil {
		if !s.ingestRefreshResponse(component, c.Payload) {
			c.Err = avcore.New(avcore.InvalidReply)
		}
	}
	if c.Err != nil {
		delete(s.pendingRefresh, component)
		done := s.refreshDone[component]
		delete(s.refreshDone, component)
		if done != nil {
			done(c.Err)
		}
		return
	}
	if remaining > 0 {
		s.pendingRefresh[component] = remaining
		return
	}
	delete(s.pendingRefresh, component)
	done := s.refreshDone[component]
	delete(s.refreshDone, component)
	s.stale = s.stale.Remove(component)
	s.recentlyTouched.Add(staleKey{component: component}, time.Now())
	s.markChanged(componentFreshFlag(component))
	if done != nil {
		done(nil)
	}
}

// ingestRefreshResponse decodes a RefreshResponse envelope and folds
// its elements into the matching cache, replacing any prior entry for
// the same element id (§4.4: a RefreshBatch reply is authoritative for
// every element it carries).
func (s *Session) ingestRefreshResponse(component avcore.Component, payload []byte) bool {
	r := wire.NewReader(payload)
	resp, ok := wire.GetRefreshResponse(r)
	if !ok || resp.Component != component {
		return false
	}
	for i := 0; i < int(resp.Count); i++ {
		switch component {
		case avcore.ComponentTxChannels:
			e, ok := wire.GetTxChannelElement(r)
			if !ok {
				return false
			}
			s.txChannels[e.ID] = &TxChannel{
				ID: e.ID, Name: e.Name, Format: e.Format,
				Enabled: e.Enabled, Muted: e.Muted, RefLevel: e.RefLevel,
				LabelIDs: e.LabelIDs,
			}
			s.recentlyTouched.Add(staleKey{component, e.ID}, time.Now())
		case avcore.ComponentRxChannels:
			e, ok := wire.GetRxChannelElement(r)
			if !ok {
				return false
			}
			s.rxChannels[e.ID] = &RxChannel{
				ID: e.ID, Name: e.Name, Format: e.Format,
				SubChannel: e.SubChannel, SubDevice: e.SubDevice,
				Status: e.Status, SubLatency: e.SubLatency,
				Available: e.Available, Active: e.Active, Muted: e.Muted,
			}
			s.recentlyTouched.Add(staleKey{component, e.ID}, time.Now())
		case avcore.ComponentTxLabels:
			e, ok := wire.GetLabelElement(r)
			if !ok {
				return false
			}
			s.labels[e.ID] = &Label{ID: e.ID, TxChannelID: e.TxChannelID, Name: e.Name}
			s.recentlyTouched.Add(staleKey{component, e.ID}, time.Now())
		case avcore.ComponentTxFlows:
			e, ok := wire.GetTxFlowElement(r)
			if !ok {
				return false
			}
			s.txFlows[e.ID] = &TxFlow{
				ID: e.ID, Name: e.Name, Latency: e.Latency, Fpp: e.Fpp,
				Slots: e.Slots, Destinations: e.Destinations,
				Manual: e.Manual, Advertised: e.Advertised, Persistent: e.Persistent,
				DestDevice: e.DestDevice, DestFlowName: e.DestFlowName,
			}
			s.recentlyTouched.Add(staleKey{component, e.ID}, time.Now())
		case avcore.ComponentRxFlows:
			e, ok := wire.GetRxFlowElement(r)
			if !ok {
				return false
			}
			s.rxFlows[e.ID] = &RxFlow{
				ID: e.ID, Name: e.Name, Format: e.Format, Multicast: e.Multicast,
				Slots: e.Slots, Sources: e.Sources, Latency: e.Latency,
				TxDevice: e.TxDevice, TxFlowName: e.TxFlowName, Active: e.Active,
				Manual: e.Manual, Persistent: e.Persistent,
			}
			s.recentlyTouched.Add(staleKey{component, e.ID}, time.Now())
		default:
			// ComponentProperties carries no cached element shape of its
			// own; its RefreshResponse is consumed for the staleness
			// side-effect only.
		}
	}
	return true
}

// Close cancels every request this session owns and invalidates its
// caches atomically (§3 lifecycle: "Closing frees every handle it
// owned; all child pointers into its channel/flow caches are
// invalidated atomically").
func (s *Session) Close() {
	s.reqs.CancelAll()
	s.txChannels = make(map[uint16]*TxChannel)
	s.rxChannels = make(map[uint16]*RxChannel)
	s.labels = make(map[uint16]*Label)
	s.txFlows = make(map[uint16]*TxFlow)
	s.rxFlows = make(map[uint16]*RxFlow)
	s.state = StateDeleting
}

// Query accessors (§8 scenario 2, §3 invariant "a session prior to
// active MUST NOT report channels, labels, or flows: query functions
// return an undefined sentinel"). Before StateActive, the counts read
// 0 and the by-id getters read (nil, false) regardless of what the
// caches happen to hold left over from a prior active period.

func (s *Session) NumTxChannels() int {
	if s.requireActive() != nil {
		return 0
	}
	return len(s.txChannels)
}

func (s *Session) TxChannel(id uint16) (*TxChannel, bool) {
	if s.requireActive() != nil {
		return nil, false
	}
	c, ok := s.txChannels[id]
	return c, ok
}

func (s *Session) NumRxChannels() int {
	if s.requireActive() != nil {
		return 0
	}
	return len(s.rxChannels)
}

func (s *Session) RxChannel(id uint16) (*RxChannel, bool) {
	if s.requireActive() != nil {
		return nil, false
	}
	c, ok := s.rxChannels[id]
	return c, ok
}

func (s *Session) NumLabels() int {
	if s.requireActive() != nil {
		return 0
	}
	return len(s.labels)
}

func (s *Session) Label(id uint16) (*Label, bool) {
	if s.requireActive() != nil {
		return nil, false
	}
	l, ok := s.labels[id]
	return l, ok
}

func (s *Session) NumTxFlows() int {
	if s.requireActive() != nil {
		return 0
	}
	return len(s.txFlows)
}

func (s *Session) TxFlow(id uint16) (*TxFlow, bool) {
	if s.requireActive() != nil {
		return nil, false
	}
	f, ok := s.txFlows[id]
	return f, ok
}

func (s *Session) NumRxFlows() int {
	if s.requireActive() != nil {
		return 0
	}
	return len(s.rxFlows)
}

func (s *Session) RxFlow(id uint16) (*RxFlow, bool) {
	if s.requireActive() != nil {
		return nil, false
	}
	f, ok := s.rxFlows[id]
	return f, ok
}

// checkLabelName enforces the device-global label namespace (§3: "a
// label MUST NOT duplicate any canonical name, its own or another's,
// on the same device"), grounded on dr_txchannel_add_txlabel's
// DANTE_NAME_IN_USE/DANTE_ALREADY_TX_LABEL failure modes
// (original_source/include/audinate/dante/routing.h). Validated
// against the locally cached state before a slot is submitted, the
// same discipline as RxFlowBuilder.Commit's duplicate-id check.
func (s *Session) checkLabelName(txChannelID uint16, name avcore.Name) *avcore.Error {
	if ch, ok := s.txChannels[txChannelID]; ok && ch.Name == name {
		return avcore.New(avcore.OwnCanonicalName)
	}
	for id, ch := range s.txChannels {
		if id != txChannelID && ch.Name == name {
			return avcore.New(avcore.OtherCanonicalName)
		}
	}
	for _, l := range s.labels {
		if l.Name == name {
			return avcore.New(avcore.LabelExists)
		}
	}
	return nil
}

// AddLabel attaches name to txChannelID. The cache is not mutated here;
// a TxChannelLabelChange notification followed by update_component
// brings s.labels up to date (§4.4), the same discipline as
// StoreConfig/ClearConfig.
func (s *Session) AddLabel(txChannelID uint16, name avcore.Name, cb func(*avcore.Error)) *avcore.Error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if err := s.checkLabelName(txChannelID, name); err != nil {
		return err
	}
	return s.submitLabelRequest(wire.VendorTypeTxLabelAdd, txChannelID, name, cb)
}

// RemoveLabel detaches name from txChannelID. Removing a name that
// isn't currently a label on that channel is rejected client-side with
// LabelDoesntExist rather than sent to the device.
func (s *Session) RemoveLabel(txChannelID uint16, name avcore.Name, cb func(*avcore.Error)) *avcore.Error {
	if err := s.requireActive(); err != nil {
		return err
	}
	found := false
	for _, l := range s.labels {
		if l.TxChannelID == txChannelID && l.Name == name {
			found = true
			break
		}
	}
	if !found {
		return avcore.New(avcore.LabelDoesntExist)
	}
	return s.submitLabelRequest(wire.VendorTypeTxLabelRemove, txChannelID, name, cb)
}

const labelRequestBufSize = wire.VendorHeaderSize + 2 + avcore.MaxNameBytes + 1

func (s *Session) submitLabelRequest(vendorType wire.VendorType, txChannelID uint16, name avcore.Name, cb func(*avcore.Error)) *avcore.Error {
	id, aerr := s.reqs.Submit(func(c reqtable.Completion) {
		if cb != nil {
			cb(c.Err)
		}
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		return aerr
	}
	w := wire.NewWriter(make([]byte, labelRequestBufSize))
	req := wire.LabelRequest{TxChannelID: txChannelID, Name: name}
	var ok bool
	switch vendorType {
	case wire.VendorTypeTxLabelAdd:
		ok = wire.InitTxLabelAddRequest(w, req)
	case wire.VendorTypeTxLabelRemove:
		ok = wire.InitTxLabelRemoveRequest(w, req)
	}
	if !ok {
		s.reqs.Cancel(id)
		return avcore.New(avcore.InvalidData)
	}
	if sendErr := s.send(uint16(vendorType), w.Bytes()); sendErr != nil {
		s.reqs.Cancel(id)
		return sendErr
	}
	return nil
}

func batchRanges(elementIDs []uint16, max int) [][2]uint16 {
	if len(elementIDs) == 1 && elementIDs[0] == 0 {
		return [][2]uint16{{0, uint16(max)}}
	}
	// Each batch is a contiguous id range, so a run of consecutive ids
	// shares one batch and a gap starts a new one.
	var out [][2]uint16
	for i := 0; i < len(elementIDs); {
		start := elementIDs[i]
		n := 1
		for i+n < len(elementIDs) && n < max && elementIDs[i+n] == start+uint16(n) {
			n++
		}
		out = append(out, [2]uint16{start, uint16(n)})
		i += n
	}
	return out
}

func componentFreshFlag(c avcore.Component) avcore.ChangeFlag {
	switch c {
	case avcore.ComponentTxChannels:
		return avcore.ChangeTxChannelsFresh
	case avcore.ComponentRxChannels:
		return avcore.ChangeRxChannelsFresh
	case avcore.ComponentTxLabels:
		return avcore.ChangeTxLabelsFresh
	case avcore.ComponentTxFlows:
		return avcore.ChangeTxFlowsFresh
	case avcore.ComponentRxFlows:
		return avcore.ChangeRxFlowsFresh
	default:
		return avcore.ChangePropertiesFresh
	}
}

// Vendor message types this package speaks, beyond conmon's
// subscribe/ack and browse's discovery payloads.
const (
	pingVendorType        uint16 = 0x0001
	storeConfigVendorType uint16 = 0x0002
	clearConfigVendorType uint16 = 0x0003
	renameVendorType      uint16 = 0x0004
)

// refreshRequestBufSize generously bounds a RefreshRequest body: just
// the vendor header plus a component byte and two uint16s.
const refreshRequestBufSize = wire.VendorHeaderSize + 5

func encodeRefreshRequest(b RefreshBatch) ([]byte, bool) {
	w := wire.NewWriter(make([]byte, refreshRequestBufSize))
	req := wire.RefreshRequest{Component: b.Component, Start: b.Start, Count: b.Count}
	if !wire.InitRefreshRequest(w, req) {
		return nil, false
	}
	return w.Bytes(), true
}

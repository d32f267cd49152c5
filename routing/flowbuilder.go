package routing

import (
	"time"

	"github.com/meridianav/avcore"
	"github.com/meridianav/avcore/reqtable"
	"github.com/meridianav/avcore/wire"
)

// TxFlowBuilder is the two-phase tx-flow configuration builder of
// §4.5: create (new or edit-existing), mutate, then commit or
// discard. Grounded on the teacher's generatePairing → activatePairing
// two-step sequence (kryptco-kr/krd/enclave_client.go), generalized
// from "build up one pairing, then activate it" to "build up one flow
// config, then commit or discard it".
type TxFlowBuilder struct {
	session    *Session
	editing    *TxFlow // non-nil in edit-existing mode
	flow       TxFlow
	released   bool
}

// NewTxFlow starts a builder for a brand-new tx-flow.
func (s *Session) NewTxFlow() *TxFlowBuilder {
	return &TxFlowBuilder{session: s}
}

// EditTxFlow starts a builder in edit-existing mode against id. Slots
// neither re-bound nor removed through the builder's mutators keep
// their prior tx-channel at commit, satisfying the glitch-free
// guarantee (§4.5).
func (s *Session) EditTxFlow(id uint16) (*TxFlowBuilder, *avcore.Error) {
	existing, ok := s.txFlows[id]
	if !ok {
		return nil, avcore.New(avcore.InvalidHandle)
	}
	copyFlow := *existing
	copyFlow.Slots = append([]uint16(nil), existing.Slots...)
	return &TxFlowBuilder{session: s, editing: existing, flow: copyFlow}, nil
}

func (b *TxFlowBuilder) checkLive() *avcore.Error {
	if b.released {
		return avcore.New(avcore.InvalidHandle)
	}
	return nil
}

// SetSlot binds slot to txChannelID (0 clears it).
func (b *TxFlowBuilder) SetSlot(slot int, txChannelID uint16) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	for len(b.flow.Slots) <= slot {
		b.flow.Slots = append(b.flow.Slots, 0)
	}
	b.flow.Slots[slot] = txChannelID
	return nil
}

// SetDestination sets the per-interface destination address.
func (b *TxFlowBuilder) SetDestination(iface int, addr avcore.Address) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if b.flow.Destinations == nil {
		b.flow.Destinations = make(map[int]avcore.Address)
	}
	b.flow.Destinations[iface] = addr
	return nil
}

func (b *TxFlowBuilder) SetLatency(l avcore.Latency) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	b.flow.Latency = l
	return nil
}

func (b *TxFlowBuilder) SetFpp(f avcore.Fpp) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	b.flow.Fpp = f
	return nil
}

// Commit sends the flow configuration and releases the handle.
// Completion reflects transmission, not device-side application (§4.5:
// the device's PropertyChanged or TxFlowChange events reflect that).
func (b *TxFlowBuilder) Commit(cb func(*avcore.Error)) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	b.released = true
	if err := b.session.requireActive(); err != nil {
		return err
	}
	id, aerr := b.session.reqs.Submit(func(c reqtable.Completion) {
		if cb != nil {
			cb(c.Err)
		}
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		return aerr
	}
	body, ok := encodeTxFlowCommit(b.flow)
	if !ok {
		b.session.reqs.Cancel(id)
		return avcore.New(avcore.InvalidData)
	}
	if sendErr := b.session.send(uint16(wire.VendorTypeTxFlowCommit), body); sendErr != nil {
		b.session.reqs.Cancel(id)
		return sendErr
	}
	return nil
}

// Discard releases the handle without sending anything.
func (b *TxFlowBuilder) Discard() {
	b.released = true
}

// RxFlowBuilder mirrors TxFlowBuilder for rx-flows, whose slots fan
// out to a set of rx-channel ids instead of carrying a single one.
type RxFlowBuilder struct {
	session  *Session
	editing  *RxFlow
	flow     RxFlow
	released bool
}

func (s *Session) NewRxFlow() *RxFlowBuilder {
	return &RxFlowBuilder{session: s}
}

func (s *Session) EditRxFlow(id uint16) (*RxFlowBuilder, *avcore.Error) {
	existing, ok := s.rxFlows[id]
	if !ok {
		return nil, avcore.New(avcore.InvalidHandle)
	}
	copyFlow := *existing
	copyFlow.Slots = make([][]uint16, len(existing.Slots))
	for i, slot := range existing.Slots {
		copyFlow.Slots[i] = append([]uint16(nil), slot...)
	}
	return &RxFlowBuilder{session: s, editing: existing, flow: copyFlow}, nil
}

func (b *RxFlowBuilder) checkLive() *avcore.Error {
	if b.released {
		return avcore.New(avcore.InvalidHandle)
	}
	return nil
}

// SetSlot replaces slot's fan-out set of rx-channel ids.
func (b *RxFlowBuilder) SetSlot(slot int, rxChannelIDs []uint16) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	for len(b.flow.Slots) <= slot {
		b.flow.Slots = append(b.flow.Slots, nil)
	}
	b.flow.Slots[slot] = append([]uint16(nil), rxChannelIDs...)
	return nil
}

func (b *RxFlowBuilder) SetSource(iface int, addr avcore.Address) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if b.flow.Sources == nil {
		b.flow.Sources = make(map[int]avcore.Address)
	}
	b.flow.Sources[iface] = addr
	return nil
}

func (b *RxFlowBuilder) SetMulticast(multicast bool) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	b.flow.Multicast = multicast
	return nil
}

// Commit validates and sends the rx-flow configuration. Per Open
// Question decision #2, a duplicate rx-channel id within one slot is
// rejected here with InvalidParameter rather than silently
// deduplicated or accepted.
func (b *RxFlowBuilder) Commit(cb func(*avcore.Error)) *avcore.Error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if b.flow.slotHasDuplicateRxChannelID() {
		b.released = true
		return avcore.New(avcore.InvalidParameter)
	}
	b.released = true
	if err := b.session.requireActive(); err != nil {
		return err
	}
	id, aerr := b.session.reqs.Submit(func(c reqtable.Completion) {
		if cb != nil {
			cb(c.Err)
		}
	}, nil, reqtable.KindUserVisible, time.Now(), 0)
	if aerr != nil {
		return aerr
	}
	body, ok := encodeRxFlowCommit(b.flow)
	if !ok {
		b.session.reqs.Cancel(id)
		return avcore.New(avcore.InvalidData)
	}
	if sendErr := b.session.send(uint16(wire.VendorTypeRxFlowCommit), body); sendErr != nil {
		b.session.reqs.Cancel(id)
		return sendErr
	}
	return nil
}

func (b *RxFlowBuilder) Discard() {
	b.released = true
}

// flowCommitBufSize generously bounds a tx/rx-flow commit body: header
// plus name plus per-slot/destination overhead. Writer.fits rejects
// anything that doesn't fit rather than silently truncating.
const flowCommitBufSize = wire.VendorHeaderSize + 2*avcore.MaxNameBytes + 4096

func encodeTxFlowCommit(f TxFlow) ([]byte, bool) {
	w := wire.NewWriter(make([]byte, flowCommitBufSize))
	req := wire.TxFlowCommitRequest{
		Flow: wire.TxFlowElement{
			ID:           f.ID,
			Name:         f.Name,
			Latency:      f.Latency,
			Fpp:          f.Fpp,
			Slots:        f.Slots,
			Destinations: f.Destinations,
			Manual:       f.Manual,
			Advertised:   f.Advertised,
			Persistent:   f.Persistent,
			DestDevice:   f.DestDevice,
			DestFlowName: f.DestFlowName,
		},
	}
	if !wire.InitTxFlowCommitRequest(w, req) {
		return nil, false
	}
	return w.Bytes(), true
}

func encodeRxFlowCommit(f RxFlow) ([]byte, bool) {
	w := wire.NewWriter(make([]byte, flowCommitBufSize))
	req := wire.RxFlowCommitRequest{
		Flow: wire.RxFlowElement{
			ID:         f.ID,
			Name:       f.Name,
			Format:     f.Format,
			Multicast:  f.Multicast,
			Slots:      f.Slots,
			Sources:    f.Sources,
			Latency:    f.Latency,
			TxDevice:   f.TxDevice,
			TxFlowName: f.TxFlowName,
			Active:     f.Active,
			Manual:     f.Manual,
			Persistent: f.Persistent,
		},
	}
	if !wire.InitRxFlowCommitRequest(w, req) {
		return nil, false
	}
	return w.Bytes(), true
}

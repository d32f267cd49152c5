package wire

import (
	"net"

	"github.com/meridianav/avcore"
)

// RefreshRequest asks the device for a range of a component's elements
// (§4.4 "update_component ... issues one or more batched requests that
// return only the stale elements", §6 "component updates use
// element-range request/response"). Grounded on
// original_source/include/audinate/dante/routing_flows.h's range-based
// "get" calls.
type RefreshRequest struct {
	Header    VendorHeader
	Component avcore.Component
	Start     uint16
	Count     uint16
}

func InitRefreshRequest(w *Writer, req RefreshRequest) bool {
	req.Header.Type = VendorTypeRefreshRequest
	ok := InitVendorHeader(w, req.Header)
	ok = ok && w.PutUint8(uint8(req.Component))
	ok = ok && w.PutUint16(req.Start)
	ok = ok && w.PutUint16(req.Count)
	return ok
}

func GetRefreshRequest(r *Reader) (RefreshRequest, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != VendorTypeRefreshRequest {
		return RefreshRequest{}, false
	}
	c, ok := r.GetUint8()
	if !ok {
		return RefreshRequest{}, false
	}
	start, ok := r.GetUint16()
	if !ok {
		return RefreshRequest{}, false
	}
	count, ok := r.GetUint16()
	if !ok {
		return RefreshRequest{}, false
	}
	return RefreshRequest{Header: h, Component: avcore.Component(c), Start: start, Count: count}, true
}

// RefreshResponse is the element-range reply envelope: Count elements
// of Component follow immediately, each encoded with that component's
// own Get*Element. The envelope itself doesn't know the element shape;
// the caller decodes Count of them in a loop once it knows Component.
type RefreshResponse struct {
	Header    VendorHeader
	Component avcore.Component
	Count     uint16
}

func InitRefreshResponse(w *Writer, resp RefreshResponse) bool {
	resp.Header.Type = VendorTypeRefreshResponse
	ok := InitVendorHeader(w, resp.Header)
	ok = ok && w.PutUint8(uint8(resp.Component))
	ok = ok && w.PutUint16(resp.Count)
	return ok
}

func GetRefreshResponse(r *Reader) (RefreshResponse, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != VendorTypeRefreshResponse {
		return RefreshResponse{}, false
	}
	c, ok := r.GetUint8()
	if !ok {
		return RefreshResponse{}, false
	}
	count, ok := r.GetUint16()
	if !ok {
		return RefreshResponse{}, false
	}
	return RefreshResponse{Header: h, Component: avcore.Component(c), Count: count}, true
}

func putAddress(w *Writer, a avcore.Address) bool {
	var ip4 [4]byte
	if ip := a.IP.To4(); ip != nil {
		copy(ip4[:], ip)
	}
	return w.PutAddressBE(ip4, a.Port)
}

func getAddress(r *Reader) (avcore.Address, bool) {
	ip4, port, ok := r.GetAddressBE()
	if !ok {
		return avcore.Address{}, false
	}
	return avcore.Address{IP: net.IPv4(ip4[0], ip4[1], ip4[2], ip4[3]), Port: port}, true
}

// TxChannelElement is one tx-channel's wire-carried state (§3 Tx
// channel), the shape a RefreshResponse(ComponentTxChannels) element
// decodes into.
type TxChannelElement struct {
	ID       uint16
	Name     avcore.Name
	Format   avcore.Format
	Enabled  bool
	Muted    bool
	RefLevel int32
	LabelIDs []uint16
}

func PutTxChannelElement(w *Writer, e TxChannelElement) bool {
	var flags uint8
	if e.Enabled {
		flags |= 1
	}
	if e.Muted {
		flags |= 2
	}
	ok := w.PutUint16(e.ID)
	ok = ok && w.PutUint8(flags)
	ok = ok && w.PutUint32(uint32(e.RefLevel))
	ok = ok && w.PutName(e.Name)
	ok = ok && w.PutFormat(e.Format)
	ok = ok && w.PutUint8(uint8(len(e.LabelIDs)))
	for _, id := range e.LabelIDs {
		ok = ok && w.PutUint16(id)
	}
	return ok
}

func GetTxChannelElement(r *Reader) (TxChannelElement, bool) {
	id, ok := r.GetUint16()
	if !ok {
		return TxChannelElement{}, false
	}
	flags, ok := r.GetUint8()
	if !ok {
		return TxChannelElement{}, false
	}
	refLevel, ok := r.GetUint32()
	if !ok {
		return TxChannelElement{}, false
	}
	name, ok := r.GetName()
	if !ok {
		return TxChannelElement{}, false
	}
	format, ok := r.GetFormat()
	if !ok {
		return TxChannelElement{}, false
	}
	n, ok := r.GetUint8()
	if !ok {
		return TxChannelElement{}, false
	}
	labelIDs := make([]uint16, 0, n)
	for i := 0; i < int(n); i++ {
		lid, ok := r.GetUint16()
		if !ok {
			return TxChannelElement{}, false
		}
		labelIDs = append(labelIDs, lid)
	}
	return TxChannelElement{
		ID:       id,
		Name:     name,
		Format:   format,
		Enabled:  flags&1 != 0,
		Muted:    flags&2 != 0,
		RefLevel: int32(refLevel),
		LabelIDs: labelIDs,
	}, true
}

// RxChannelElement is one rx-channel's wire-carried state (§3 Rx
// channel), including its subscription and last-reported receive
// status. Status carries conmon.ReceiveStatus's numeric value opaquely
// (routing doesn't import conmon; see routing/channels.go's
// ReceiveStatus note).
type RxChannelElement struct {
	ID         uint16
	Name       avcore.Name
	Format     avcore.Format
	SubChannel avcore.Name
	SubDevice  avcore.Name
	Status     uint8
	SubLatency avcore.Latency
	Available  avcore.InterfaceMask
	Active     avcore.InterfaceMask
	Muted      bool
}

func PutRxChannelElement(w *Writer, e RxChannelElement) bool {
	var flags uint8
	if e.Muted {
		flags |= 1
	}
	ok := w.PutUint16(e.ID)
	ok = ok && w.PutUint8(flags)
	ok = ok && w.PutUint8(e.Status)
	ok = ok && w.PutName(e.Name)
	ok = ok && w.PutFormat(e.Format)
	ok = ok && w.PutName(e.SubChannel)
	ok = ok && w.PutName(e.SubDevice)
	ok = ok && w.PutUint32(uint32(e.SubLatency))
	ok = ok && w.PutUint32(uint32(e.Available))
	ok = ok && w.PutUint32(uint32(e.Active))
	return ok
}

func GetRxChannelElement(r *Reader) (RxChannelElement, bool) {
	id, ok := r.GetUint16()
	if !ok {
		return RxChannelElement{}, false
	}
	flags, ok := r.GetUint8()
	if !ok {
		return RxChannelElement{}, false
	}
	status, ok := r.GetUint8()
	if !ok {
		return RxChannelElement{}, false
	}
	name, ok := r.GetName()
	if !ok {
		return RxChannelElement{}, false
	}
	format, ok := r.GetFormat()
	if !ok {
		return RxChannelElement{}, false
	}
	subChannel, ok := r.GetName()
	if !ok {
		return RxChannelElement{}, false
	}
	subDevice, ok := r.GetName()
	if !ok {
		return RxChannelElement{}, false
	}
	subLatency, ok := r.GetUint32()
	if !ok {
		return RxChannelElement{}, false
	}
	available, ok := r.GetUint32()
	if !ok {
		return RxChannelElement{}, false
	}
	active, ok := r.GetUint32()
	if !ok {
		return RxChannelElement{}, false
	}
	return RxChannelElement{
		ID:         id,
		Name:       name,
		Format:     format,
		SubChannel: subChannel,
		SubDevice:  subDevice,
		Status:     status,
		SubLatency: avcore.Latency(subLatency),
		Available:  avcore.InterfaceMask(available),
		Active:     avcore.InterfaceMask(active),
		Muted:      flags&1 != 0,
	}, true
}

// LabelElement is one label's wire-carried state (§3 Label type).
type LabelElement struct {
	ID          uint16
	TxChannelID uint16
	Name        avcore.Name
}

func PutLabelElement(w *Writer, e LabelElement) bool {
	ok := w.PutUint16(e.ID)
	ok = ok && w.PutUint16(e.TxChannelID)
	ok = ok && w.PutName(e.Name)
	return ok
}

func GetLabelElement(r *Reader) (LabelElement, bool) {
	id, ok := r.GetUint16()
	if !ok {
		return LabelElement{}, false
	}
	txChannelID, ok := r.GetUint16()
	if !ok {
		return LabelElement{}, false
	}
	name, ok := r.GetName()
	if !ok {
		return LabelElement{}, false
	}
	return LabelElement{ID: id, TxChannelID: txChannelID, Name: name}, true
}

// TxFlowElement is one tx-flow's wire-carried state (§3 Tx flow).
type TxFlowElement struct {
	ID           uint16
	Name         avcore.Name
	Latency      avcore.Latency
	Fpp          avcore.Fpp
	Slots        []uint16
	Destinations map[int]avcore.Address
	Manual       bool
	Advertised   bool
	Persistent   bool
	DestDevice   avcore.Name
	DestFlowName avcore.Name
}

func PutTxFlowElement(w *Writer, e TxFlowElement) bool {
	var flags uint8
	if e.Manual {
		flags |= 1
	}
	if e.Advertised {
		flags |= 2
	}
	if e.Persistent {
		flags |= 4
	}
	ok := w.PutUint16(e.ID)
	ok = ok && w.PutUint8(flags)
	ok = ok && w.PutName(e.Name)
	ok = ok && w.PutUint32(uint32(e.Latency))
	ok = ok && w.PutUint16(uint16(e.Fpp))
	ok = ok && w.PutUint8(uint8(len(e.Slots)))
	for _, id := range e.Slots {
		ok = ok && w.PutUint16(id)
	}
	ok = ok && w.PutUint8(uint8(len(e.Destinations)))
	for iface, addr := range e.Destinations {
		ok = ok && w.PutUint8(uint8(iface))
		ok = ok && putAddress(w, addr)
	}
	ok = ok && w.PutName(e.DestDevice)
	ok = ok && w.PutName(e.DestFlowName)
	return ok
}

func GetTxFlowElement(r *Reader) (TxFlowElement, bool) {
	id, ok := r.GetUint16()
	if !ok {
		return TxFlowElement{}, false
	}
	flags, ok := r.GetUint8()
	if !ok {
		return TxFlowElement{}, false
	}
	name, ok := r.GetName()
	if !ok {
		return TxFlowElement{}, false
	}
	latency, ok := r.GetUint32()
	if !ok {
		return TxFlowElement{}, false
	}
	fpp, ok := r.GetUint16()
	if !ok {
		return TxFlowElement{}, false
	}
	slotCount, ok := r.GetUint8()
	if !ok {
		return TxFlowElement{}, false
	}
	slots := make([]uint16, 0, slotCount)
	for i := 0; i < int(slotCount); i++ {
		v, ok := r.GetUint16()
		if !ok {
			return TxFlowElement{}, false
		}
		slots = append(slots, v)
	}
	destCount, ok := r.GetUint8()
	if !ok {
		return TxFlowElement{}, false
	}
	var dests map[int]avcore.Address
	if destCount > 0 {
		dests = make(map[int]avcore.Address, destCount)
	}
	for i := 0; i < int(destCount); i++ {
		iface, ok := r.GetUint8()
		if !ok {
			return TxFlowElement{}, false
		}
		addr, ok := getAddress(r)
		if !ok {
			return TxFlowElement{}, false
		}
		dests[int(iface)] = addr
	}
	destDevice, ok := r.GetName()
	if !ok {
		return TxFlowElement{}, false
	}
	destFlowName, ok := r.GetName()
	if !ok {
		return TxFlowElement{}, false
	}
	return TxFlowElement{
		ID:           id,
		Name:         name,
		Latency:      avcore.Latency(latency),
		Fpp:          avcore.Fpp(fpp),
		Slots:        slots,
		Destinations: dests,
		Manual:       flags&1 != 0,
		Advertised:   flags&2 != 0,
		Persistent:   flags&4 != 0,
		DestDevice:   destDevice,
		DestFlowName: destFlowName,
	}, true
}

// RxFlowElement is one rx-flow's wire-carried state (§3 Rx flow); each
// slot fans out to a set of rx-channel ids rather than carrying one.
type RxFlowElement struct {
	ID         uint16
	Name       avcore.Name
	Format     avcore.Format
	Multicast  bool
	Slots      [][]uint16
	Sources    map[int]avcore.Address
	Latency    avcore.Latency
	TxDevice   avcore.Name
	TxFlowName avcore.Name
	Active     avcore.InterfaceMask
	Manual     bool
	Persistent bool
}

func PutRxFlowElement(w *Writer, e RxFlowElement) bool {
	var flags uint8
	if e.Multicast {
		flags |= 1
	}
	if e.Manual {
		flags |= 2
	}
	if e.Persistent {
		flags |= 4
	}
	ok := w.PutUint16(e.ID)
	ok = ok && w.PutUint8(flags)
	ok = ok && w.PutName(e.Name)
	ok = ok && w.PutFormat(e.Format)
	ok = ok && w.PutUint32(uint32(e.Latency))
	ok = ok && w.PutUint32(uint32(e.Active))
	ok = ok && w.PutUint8(uint8(len(e.Slots)))
	for _, slot := range e.Slots {
		ok = ok && w.PutUint8(uint8(len(slot)))
		for _, id := range slot {
			ok = ok && w.PutUint16(id)
		}
	}
	ok = ok && w.PutUint8(uint8(len(e.Sources)))
	for iface, addr := range e.Sources {
		ok = ok && w.PutUint8(uint8(iface))
		ok = ok && putAddress(w, addr)
	}
	ok = ok && w.PutName(e.TxDevice)
	ok = ok && w.PutName(e.TxFlowName)
	return ok
}

func GetRxFlowElement(r *Reader) (RxFlowElement, bool) {
	id, ok := r.GetUint16()
	if !ok {
		return RxFlowElement{}, false
	}
	flags, ok := r.GetUint8()
	if !ok {
		return RxFlowElement{}, false
	}
	name, ok := r.GetName()
	if !ok {
		return RxFlowElement{}, false
	}
	format, ok := r.GetFormat()
	if !ok {
		return RxFlowElement{}, false
	}
	latency, ok := r.GetUint32()
	if !ok {
		return RxFlowElement{}, false
	}
	active, ok := r.GetUint32()
	if !ok {
		return RxFlowElement{}, false
	}
	slotCount, ok := r.GetUint8()
	if !ok {
		return RxFlowElement{}, false
	}
	slots := make([][]uint16, 0, slotCount)
	for i := 0; i < int(slotCount); i++ {
		idCount, ok := r.GetUint8()
		if !ok {
			return RxFlowElement{}, false
		}
		ids := make([]uint16, 0, idCount)
		for j := 0; j < int(idCount); j++ {
			v, ok := r.GetUint16()
			if !ok {
				return RxFlowElement{}, false
			}
			ids = append(ids, v)
		}
		slots = append(slots, ids)
	}
	srcCount, ok := r.GetUint8()
	if !ok {
		return RxFlowElement{}, false
	}
	var sources map[int]avcore.Address
	if srcCount > 0 {
		sources = make(map[int]avcore.Address, srcCount)
	}
	for i := 0; i < int(srcCount); i++ {
		iface, ok := r.GetUint8()
		if !ok {
			return RxFlowElement{}, false
		}
		addr, ok := getAddress(r)
		if !ok {
			return RxFlowElement{}, false
		}
		sources[int(iface)] = addr
	}
	txDevice, ok := r.GetName()
	if !ok {
		return RxFlowElement{}, false
	}
	txFlowName, ok := r.GetName()
	if !ok {
		return RxFlowElement{}, false
	}
	return RxFlowElement{
		ID:         id,
		Name:       name,
		Format:     format,
		Multicast:  flags&1 != 0,
		Slots:      slots,
		Sources:    sources,
		Latency:    avcore.Latency(latency),
		TxDevice:   txDevice,
		TxFlowName: txFlowName,
		Active:     avcore.InterfaceMask(active),
		Manual:     flags&2 != 0,
		Persistent: flags&4 != 0,
	}, true
}

// TxFlowCommitRequest carries a fully-built tx-flow configuration to
// the device (§4.5's two-phase builder's Commit step).
type TxFlowCommitRequest struct {
	Header VendorHeader
	Flow   TxFlowElement
}

func InitTxFlowCommitRequest(w *Writer, req TxFlowCommitRequest) bool {
	req.Header.Type = VendorTypeTxFlowCommit
	ok := InitVendorHeader(w, req.Header)
	ok = ok && PutTxFlowElement(w, req.Flow)
	return ok
}

func GetTxFlowCommitRequest(r *Reader) (TxFlowCommitRequest, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != VendorTypeTxFlowCommit {
		return TxFlowCommitRequest{}, false
	}
	f, ok := GetTxFlowElement(r)
	if !ok {
		return TxFlowCommitRequest{}, false
	}
	return TxFlowCommitRequest{Header: h, Flow: f}, true
}

// RxFlowCommitRequest mirrors TxFlowCommitRequest for rx-flows.
type RxFlowCommitRequest struct {
	Header VendorHeader
	Flow   RxFlowElement
}

func InitRxFlowCommitRequest(w *Writer, req RxFlowCommitRequest) bool {
	req.Header.Type = VendorTypeRxFlowCommit
	ok := InitVendorHeader(w, req.Header)
	ok = ok && PutRxFlowElement(w, req.Flow)
	return ok
}

func GetRxFlowCommitRequest(r *Reader) (RxFlowCommitRequest, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != VendorTypeRxFlowCommit {
		return RxFlowCommitRequest{}, false
	}
	f, ok := GetRxFlowElement(r)
	if !ok {
		return RxFlowCommitRequest{}, false
	}
	return RxFlowCommitRequest{Header: h, Flow: f}, true
}

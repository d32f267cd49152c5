package wire

// ComponentChange is the shared shape of every "*Change" notification
// in §6 (tx/rx channel/label/flow change, property change): a
// VendorHeader plus an optional element id. When Whole is true the
// notification covers the entire component (mark the whole component
// stale); otherwise ElementID identifies the single stale element,
// matching §4.4's "either wholly or at the element granularity".
type ComponentChange struct {
	Header    VendorHeader
	Whole     bool
	ElementID uint16
}

func initComponentChange(w *Writer, vendorType VendorType, c ComponentChange) bool {
	c.Header.Type = vendorType
	ok := InitVendorHeader(w, c.Header)
	var wholeByte uint8
	if c.Whole {
		wholeByte = 1
	}
	ok = ok && w.PutUint8(wholeByte)
	ok = ok && w.PutUint16(c.ElementID)
	return ok
}

func getComponentChange(r *Reader, vendorType VendorType) (ComponentChange, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != vendorType {
		return ComponentChange{}, false
	}
	wholeByte, ok := r.GetUint8()
	if !ok {
		return ComponentChange{}, false
	}
	elementID, ok := r.GetUint16()
	if !ok {
		return ComponentChange{}, false
	}
	return ComponentChange{Header: h, Whole: wholeByte != 0, ElementID: elementID}, true
}

func InitTxChannelChange(w *Writer, c ComponentChange) bool { return initComponentChange(w, VendorTypeTxChannelChange, c) }
func GetTxChannelChange(r *Reader) (ComponentChange, bool)  { return getComponentChange(r, VendorTypeTxChannelChange) }

func InitRxChannelChange(w *Writer, c ComponentChange) bool { return initComponentChange(w, VendorTypeRxChannelChange, c) }
func GetRxChannelChange(r *Reader) (ComponentChange, bool)  { return getComponentChange(r, VendorTypeRxChannelChange) }

func InitTxLabelChange(w *Writer, c ComponentChange) bool { return initComponentChange(w, VendorTypeTxLabelChange, c) }
func GetTxLabelChange(r *Reader) (ComponentChange, bool)  { return getComponentChange(r, VendorTypeTxLabelChange) }

func InitTxFlowChange(w *Writer, c ComponentChange) bool { return initComponentChange(w, VendorTypeTxFlowChange, c) }
func GetTxFlowChange(r *Reader) (ComponentChange, bool)  { return getComponentChange(r, VendorTypeTxFlowChange) }

func InitRxFlowChange(w *Writer, c ComponentChange) bool { return initComponentChange(w, VendorTypeRxFlowChange, c) }
func GetRxFlowChange(r *Reader) (ComponentChange, bool)  { return getComponentChange(r, VendorTypeRxFlowChange) }

func InitPropertyChange(w *Writer, c ComponentChange) bool { return initComponentChange(w, VendorTypePropertyChange, c) }
func GetPropertyChange(r *Reader) (ComponentChange, bool)  { return getComponentChange(r, VendorTypePropertyChange) }

func InitTxChannelLabelChange(w *Writer, c ComponentChange) bool {
	return initComponentChange(w, VendorTypeTxChannelLabelChange, c)
}
func GetTxChannelLabelChange(r *Reader) (ComponentChange, bool) {
	return getComponentChange(r, VendorTypeTxChannelLabelChange)
}

// RxErrorThreshold reports that an rx-channel's error counters crossed
// a threshold (§3: device session "rxflow error counters" change bit).
type RxErrorThreshold struct {
	Header     VendorHeader
	ChannelID  uint16
	ErrorCount uint32
}

func InitRxErrorThreshold(w *Writer, e RxErrorThreshold) bool {
	e.Header.Type = VendorTypeRxErrorThreshold
	ok := InitVendorHeader(w, e.Header)
	ok = ok && w.PutUint16(e.ChannelID)
	ok = ok && w.PutUint32(e.ErrorCount)
	return ok
}

func GetRxErrorThreshold(r *Reader) (RxErrorThreshold, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != VendorTypeRxErrorThreshold {
		return RxErrorThreshold{}, false
	}
	chID, ok := r.GetUint16()
	if !ok {
		return RxErrorThreshold{}, false
	}
	count, ok := r.GetUint32()
	if !ok {
		return RxErrorThreshold{}, false
	}
	return RxErrorThreshold{Header: h, ChannelID: chID, ErrorCount: count}, true
}

// MaxBodySizeChanged signals a runtime MTU change (§4.1). It carries
// no channel/flow reference. Unlike the other payloads it is encoded
// without a VendorHeader: only NewMaxBody is written and read, and
// GetMaxBodySizeChanged leaves Header zero.
type MaxBodySizeChanged struct {
	Header     VendorHeader
	NewMaxBody uint16
}

func InitMaxBodySizeChanged(w *Writer, m MaxBodySizeChanged) bool {
	ok := w.PutUint16(m.NewMaxBody)
	return ok
}

func GetMaxBodySizeChanged(r *Reader) (MaxBodySizeChanged, bool) {
	v, ok := r.GetUint16()
	if !ok {
		return MaxBodySizeChanged{}, false
	}
	return MaxBodySizeChanged{NewMaxBody: v}, true
}

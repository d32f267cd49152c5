package wire

import "github.com/meridianav/avcore"

// VendorType is the 16-bit type field of a vendor-specific payload
// (§6). The full enumeration is carried for completeness; only the
// handful the conmon/routing clients actually act on (see
// payload_*.go) get dedicated init_*/get_* pairs. Everything else
// round-trips as an opaque body, per §1: "their semantic meaning is
// carried opaquely by the core."
type VendorType uint16

const (
	VendorTypePing VendorType = iota + 0x0100
	VendorTypeInterfaceStatus
	VendorTypeInterfaceControl
	VendorTypeClockingStatus
	VendorTypeClockingControl
	VendorTypeIfStats
	VendorTypeIGMPVersion
	VendorTypeVersions
	VendorTypeIdentify
	VendorTypeUpgradeV3
	VendorTypeSampleRate
	VendorTypeEncoding
	VendorTypeSampleRatePullup
	VendorTypeAudioInterface
	VendorTypeSystemReset
	VendorTypeAccessControl
	VendorTypeManufacturerVersions
	VendorTypeLED
	VendorTypeMeteringParameters
	VendorTypeSerialPort
	VendorTypeRoutingReady
	VendorTypeTxChannelChange
	VendorTypeRxChannelChange
	VendorTypeTxLabelChange
	VendorTypeTxFlowChange
	VendorTypeRxFlowChange
	VendorTypeRxErrorThreshold
	VendorTypePropertyChange
	VendorTypeDanteReady
	VendorTypeGPIO
	VendorTypeHARemote
	VendorTypeAES67
	VendorTypeCodec
	VendorTypeTxChannelLabelChange

	// Routing-core commands (§4.4/§4.5/§3): these ride the same
	// vendor-header envelope as the notification types above but are
	// client->server requests rather than device-originated pushes.
	VendorTypeRefreshRequest
	VendorTypeRefreshResponse
	VendorTypeTxFlowCommit
	VendorTypeRxFlowCommit
	VendorTypeTxLabelAdd
	VendorTypeTxLabelRemove
)

// VendorHeaderSize is the fixed 8-byte prefix every vendor payload
// carries (§6): format-version:16, type:16, congestion-delay-micros:32.
const VendorHeaderSize = 8

// VendorHeader is the parsed accessor set for the 8-byte prefix common
// to every vendor-specific payload.
type VendorHeader struct {
	FormatVersion    avcore.Version
	Type             VendorType
	CongestionDelay  uint32 // microseconds; GLOSSARY "Congestion-delay window"
}

// InitVendorHeader writes the 8-byte prefix and returns true if it
// fit. Writers follow this with type-specific fields via the
// message's own Init* function.
func InitVendorHeader(w *Writer, h VendorHeader) bool {
	ok := w.PutUint16(h.FormatVersion.Wire())
	ok = ok && w.PutUint16(uint16(h.Type))
	ok = ok && w.PutUint32(h.CongestionDelay)
	return ok
}

// GetVendorHeader reads the 8-byte prefix.
func GetVendorHeader(r *Reader) (VendorHeader, bool) {
	var h VendorHeader
	v, ok := r.GetUint16()
	if !ok {
		return h, false
	}
	h.FormatVersion = avcore.VersionFromWire(v)

	t, ok := r.GetUint16()
	if !ok {
		return h, false
	}
	h.Type = VendorType(t)

	d, ok := r.GetUint32()
	if !ok {
		return h, false
	}
	h.CongestionDelay = d
	return h, true
}

package wire

import (
	"github.com/meridianav/avcore"
)

// HeaderSize is the on-wire size of the control-monitoring frame
// header. See doc.go for why this is 28, not the "24-byte" figure in
// spec.md's prose.
const HeaderSize = 28

// MaxFrameSize is the UDP-datagram-safe ceiling spec.md §4.1 names
// ("≈1472 bytes" avoiding IP fragmentation).
const MaxFrameSize = 1472

// MaxBodySize is the default body-size ceiling (MaxFrameSize minus the
// header). It can shrink at runtime if the server signals an MTU
// change (§4.1); callers track the current value themselves and pass
// it to the *MaxBodySizeChanged* event, the codec does not hold
// mutable state.
const MaxBodySize = MaxFrameSize - HeaderSize

// ClassVendorSpecific and ClassReserved are the two reserved message
// classes named in §6; every other value is a recognised message
// type, interpreted by the conmon package.
const (
	ClassVendorSpecific uint16 = 0xFFFF
	ClassReserved       uint16 = 0xFFFE
)

// Header is the parsed, host-order view of a frame's fixed header
// (§6). The accessor set (the exported fields here, all produced only
// by ParseHeader or PutHeader) is the only supported way to read or
// write a header — spec.md: "the accessor set forms the only
// supported way to read the header."
type Header struct {
	Version           avcore.Version
	Sequence          uint16
	BodyLength        uint16
	Class             uint16
	VendorID          avcore.VendorID
	SourceDeviceID    avcore.DeviceID
	SourceProcessID   avcore.ProcessID
}

// PutHeader writes h into w. It fails (returns false) if w does not
// have HeaderSize bytes remaining; on success w.Len() == HeaderSize.
func PutHeader(w *Writer, h Header) bool {
	if w.Len() != 0 {
		// Headers are always the first thing written to a fresh frame
		// buffer; a non-empty writer here is a caller bug, not a data
		// error, so we refuse rather than silently prepend garbage.
		return false
	}
	ok := w.PutUint16(h.Version.Wire())
	ok = ok && w.PutUint16(h.Sequence)
	ok = ok && w.PutUint16(h.BodyLength)
	ok = ok && w.PutUint16(h.Class)
	ok = ok && w.PutUint64(uint64(h.VendorID))
	ok = ok && w.PutUint64(uint64(h.SourceDeviceID))
	ok = ok && w.PutUint32(uint32(h.SourceProcessID))
	return ok
}

// ParseHeader reads a Header from the front of r. It does not
// validate BodyLength against r's remaining length; callers check
// that separately against their own MaxBodySize (§8: "a frame
// arriving with body-length exceeding max_body_size is dropped and
// counted as Truncated").
func ParseHeader(r *Reader) (Header, bool) {
	var h Header
	versionWire, ok := r.GetUint16()
	if !ok {
		return h, false
	}
	h.Version = avcore.VersionFromWire(versionWire)

	if h.Sequence, ok = r.GetUint16(); !ok {
		return h, false
	}
	if h.BodyLength, ok = r.GetUint16(); !ok {
		return h, false
	}
	if h.Class, ok = r.GetUint16(); !ok {
		return h, false
	}
	vendorID, ok := r.GetUint64()
	if !ok {
		return h, false
	}
	h.VendorID = avcore.VendorID(vendorID)

	deviceID, ok := r.GetUint64()
	if !ok {
		return h, false
	}
	h.SourceDeviceID = avcore.DeviceID(deviceID)

	processID, ok := r.GetUint32()
	if !ok {
		return h, false
	}
	h.SourceProcessID = avcore.ProcessID(processID)

	return h, true
}

// NewHeader constructs a header with a given class and vendor (§4.1:
// "Construct header with a given class and vendor"). Sequence,
// SourceDeviceID and SourceProcessID are filled in by the caller
// (typically the conmon client, which owns the sequence counter and
// local identity) before PutHeader.
func NewHeader(class uint16, vendor avcore.VendorID, version avcore.Version) Header {
	return Header{
		Version:  version,
		Class:    class,
		VendorID: vendor,
	}
}

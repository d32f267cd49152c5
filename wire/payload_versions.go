package wire

import "github.com/meridianav/avcore"

// Versions is the capability/version-query response payload (§8
// scenario 2: "server returns capability bitset {CAN_IDENTIFY,
// HAS_WEBSERVER, CAN_SET_SRATE}"). ProtocolVersion is the device's
// negotiated protocol version (§3: device session "protocol
// version"); Capabilities is the bitset §4.4 latches at the first
// successful query.
type Versions struct {
	Header          VendorHeader
	ProtocolVersion avcore.Version
	Capabilities    avcore.Capability
}

func InitVersions(w *Writer, v Versions) bool {
	v.Header.Type = VendorTypeVersions
	ok := InitVendorHeader(w, v.Header)
	ok = ok && w.PutUint16(v.ProtocolVersion.Wire())
	ok = ok && w.PutUint32(uint32(v.Capabilities))
	return ok
}

func GetVersions(r *Reader) (Versions, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != VendorTypeVersions {
		return Versions{}, false
	}
	pv, ok := r.GetUint16()
	if !ok {
		return Versions{}, false
	}
	caps, ok := r.GetUint32()
	if !ok {
		return Versions{}, false
	}
	return Versions{
		Header:          h,
		ProtocolVersion: avcore.VersionFromWire(pv),
		Capabilities:    avcore.Capability(caps),
	}, true
}

// Identify requests or reports a device's friendly identity. Minor
// versions may append fields after DefaultName; readers must not
// assume a field beyond what the body's remaining length supports
// (§4.1 versioning discipline), so GetIdentify returns the fields it
// could read along with ok=true as long as the fixed prefix decoded,
// letting the minimum-version reader still function.
type Identify struct {
	Header       VendorHeader
	InstanceID   avcore.InstanceID
	ModelID      uint32
	ManufacturerID uint32
	FriendlyName avcore.Name
	DefaultName  avcore.Name // present from minor version 1 onward
}

const identifyMinVersionWithDefaultName = 1

func InitIdentify(w *Writer, id Identify) bool {
	id.Header.Type = VendorTypeIdentify
	ok := InitVendorHeader(w, id.Header)
	ok = ok && w.PutUint64(uint64(id.InstanceID.Device))
	ok = ok && w.PutUint32(uint32(id.InstanceID.Process))
	ok = ok && w.PutUint32(id.ModelID)
	ok = ok && w.PutUint32(id.ManufacturerID)
	ok = ok && w.PutName(id.FriendlyName)
	if id.Header.FormatVersion.Minor >= identifyMinVersionWithDefaultName {
		ok = ok && w.PutName(id.DefaultName)
	}
	return ok
}

func GetIdentify(r *Reader) (Identify, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != VendorTypeIdentify {
		return Identify{}, false
	}
	var id Identify
	id.Header = h

	dev, ok := r.GetUint64()
	if !ok {
		return Identify{}, false
	}
	id.InstanceID.Device = avcore.DeviceID(dev)

	proc, ok := r.GetUint32()
	if !ok {
		return Identify{}, false
	}
	id.InstanceID.Process = avcore.ProcessID(proc)

	if id.ModelID, ok = r.GetUint32(); !ok {
		return Identify{}, false
	}
	if id.ManufacturerID, ok = r.GetUint32(); !ok {
		return Identify{}, false
	}
	if id.FriendlyName, ok = r.GetName(); !ok {
		return Identify{}, false
	}

	// DefaultName only exists from minor version 1; an older peer's
	// frame simply ends here, and that is not an error.
	if h.FormatVersion.Minor >= identifyMinVersionWithDefaultName && r.Len() > 0 {
		id.DefaultName, _ = r.GetName()
	}
	return id, true
}

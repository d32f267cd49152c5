package wire

import (
	"net"

	"github.com/meridianav/avcore"
)

// ChannelType distinguishes a subscription's channel kind (§4.3 key:
// "(channel-type, peer-name)").
type ChannelType uint8

const (
	ChannelTypeTx ChannelType = iota
	ChannelTypeRx
)

// SubscribeRequest asks the daemon to resolve and track a named
// channel on a named device (§4.3 operations: subscribe,
// unsubscribe, subscribe_global, unsubscribe_global). Global requests
// carry an empty DeviceName and Global=true ("accept all senders for
// a channel").
type SubscribeRequest struct {
	Header      VendorHeader
	Type        ChannelType
	DeviceName  avcore.Name
	ChannelName avcore.Name
	Global      bool
	Unsubscribe bool
}

func InitSubscribeRequest(w *Writer, s SubscribeRequest) bool {
	ok := InitVendorHeader(w, s.Header)
	ok = ok && w.PutUint8(uint8(s.Type))
	var flags uint8
	if s.Global {
		flags |= 1
	}
	if s.Unsubscribe {
		flags |= 2
	}
	ok = ok && w.PutUint8(flags)
	ok = ok && w.PutName(s.ChannelName)
	ok = ok && w.PutName(s.DeviceName)
	return ok
}

func GetSubscribeRequest(r *Reader) (SubscribeRequest, bool) {
	h, ok := GetVendorHeader(r)
	if !ok {
		return SubscribeRequest{}, false
	}
	typeByte, ok := r.GetUint8()
	if !ok {
		return SubscribeRequest{}, false
	}
	flags, ok := r.GetUint8()
	if !ok {
		return SubscribeRequest{}, false
	}
	chanName, ok := r.GetName()
	if !ok {
		return SubscribeRequest{}, false
	}
	devName, ok := r.GetName()
	if !ok {
		return SubscribeRequest{}, false
	}
	return SubscribeRequest{
		Header:      h,
		Type:        ChannelType(typeByte),
		ChannelName: chanName,
		DeviceName:  devName,
		Global:      flags&1 != 0,
		Unsubscribe: flags&2 != 0,
	}, true
}

// SubscribeAckKind distinguishes the three shapes a subscribe
// acknowledgement can take (§4.3 transitions): resolved to an
// address, name-unresolved, or a terminal error kind.
type SubscribeAckKind uint8

const (
	SubscribeAckResolved SubscribeAckKind = iota
	SubscribeAckUnresolved
	SubscribeAckError
)

// AddressKind distinguishes how a resolved subscription reaches its
// source, feeding the receive-status transition in §4.3
// ("unicast"|"multicast"|"domain" depending on address kind").
type AddressKind uint8

const (
	AddressKindUnicast AddressKind = iota
	AddressKindMulticast
	AddressKindDomain
)

type SubscribeAck struct {
	Header     VendorHeader
	Kind       SubscribeAckKind
	Instance   avcore.InstanceID
	AddrKind   AddressKind
	Address    avcore.Address
	ErrorKind  uint16 // valid when Kind == SubscribeAckError; maps to avcore.Kind
}

func InitSubscribeAck(w *Writer, a SubscribeAck) bool {
	ok := InitVendorHeader(w, a.Header)
	ok = ok && w.PutUint8(uint8(a.Kind))
	switch a.Kind {
	case SubscribeAckResolved:
		ok = ok && w.PutUint64(uint64(a.Instance.Device))
		ok = ok && w.PutUint32(uint32(a.Instance.Process))
		ok = ok && w.PutUint8(uint8(a.AddrKind))
		var ip4 [4]byte
		if ip := a.Address.IP.To4(); ip != nil {
			copy(ip4[:], ip)
		}
		ok = ok && w.PutAddressBE(ip4, a.Address.Port)
	case SubscribeAckError:
		ok = ok && w.PutUint16(a.ErrorKind)
	}
	return ok
}

func GetSubscribeAck(r *Reader) (SubscribeAck, bool) {
	h, ok := GetVendorHeader(r)
	if !ok {
		return SubscribeAck{}, false
	}
	kindByte, ok := r.GetUint8()
	if !ok {
		return SubscribeAck{}, false
	}
	a := SubscribeAck{Header: h, Kind: SubscribeAckKind(kindByte)}
	switch a.Kind {
	case SubscribeAckResolved:
		dev, ok := r.GetUint64()
		if !ok {
			return SubscribeAck{}, false
		}
		a.Instance.Device = avcore.DeviceID(dev)
		proc, ok := r.GetUint32()
		if !ok {
			return SubscribeAck{}, false
		}
		a.Instance.Process = avcore.ProcessID(proc)
		addrKindByte, ok := r.GetUint8()
		if !ok {
			return SubscribeAck{}, false
		}
		a.AddrKind = AddressKind(addrKindByte)
		ip4, port, ok := r.GetAddressBE()
		if !ok {
			return SubscribeAck{}, false
		}
		a.Address = avcore.Address{IP: net.IPv4(ip4[0], ip4[1], ip4[2], ip4[3]), Port: port}
	case SubscribeAckError:
		errKind, ok := r.GetUint16()
		if !ok {
			return SubscribeAck{}, false
		}
		a.ErrorKind = errKind
	}
	return a, true
}

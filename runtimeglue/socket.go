package runtimeglue

import (
	"context"
	"net"

	"golang.org/x/net/ipv4"
)

// FrameHandler receives one decoded datagram: the raw bytes, the
// sender's address, and (for multicast sockets joined with control
// messages enabled) the local interface index it arrived on, 0 if
// unknown. Interface is fed straight into browse.Sighting.Interface
// by the client that owns this socket.
type FrameHandler func(from *net.UDPAddr, iface int, body []byte)

// Socket wraps one UDP endpoint the runtime multiplexes. Name is used
// only for diagnostics.
type Socket struct {
	Name    string
	conn    *net.UDPConn
	pc      *ipv4.PacketConn // non-nil only for multicast sockets with control messages enabled
	handler FrameHandler
	buf     []byte
}

// NewUnicastSocket wraps an already-bound *net.UDPConn (a routing
// session's reply socket, the domain overlay's controller connection)
// for runtime registration. handler is invoked once per datagram
// Process reads from it.
func NewUnicastSocket(name string, conn *net.UDPConn, handler FrameHandler) *Socket {
	return &Socket{Name: name, conn: conn, handler: handler, buf: make([]byte, wireMaxDatagram)}
}

// ListenUnicastUDP binds address with SO_REUSEPORT set (via the
// per-OS reusePortControl), so several clients on the same host can
// share a reply port, and wraps the result as a Socket.
func ListenUnicastUDP(name, address string, handler FrameHandler) (*Socket, error) {
	lc := net.ListenConfig{Control: reusePortControl}
	pc, err := lc.ListenPacket(context.Background(), "udp", address)
	if err != nil {
		return nil, err
	}
	conn := pc.(*net.UDPConn)
	return NewUnicastSocket(name, conn, handler), nil
}

// NewMulticastSocket joins group on every interface in ifaces (or
// every multicast-capable interface, if ifaces is empty) and enables
// per-packet interface-index control messages so FrameHandler can tell
// browse which interface a sighting arrived on. Grounded on
// joshuafuller-beacon's internal/transport/udp.go
// (ipv4.NewPacketConn(conn) + SetControlMessage(ipv4.FlagInterface,
// true)).
func NewMulticastSocket(name string, group *net.UDPAddr, ifaces []net.Interface, handler FrameHandler) (*Socket, error) {
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	// Best-effort: interface index falls back to 0 (unknown) if the
	// host OS doesn't deliver control messages, matching the beacon
	// transport's graceful-degradation comment.
	_ = pc.SetControlMessage(ipv4.FlagInterface, true)

	for _, iface := range ifaces {
		_ = pc.JoinGroup(&iface, group)
	}
	if len(ifaces) == 0 {
		if all, err := net.Interfaces(); err == nil {
			for i := range all {
				if all[i].Flags&net.FlagMulticast != 0 {
					_ = pc.JoinGroup(&all[i], group)
				}
			}
		}
	}

	return &Socket{Name: name, conn: conn, pc: pc, handler: handler, buf: make([]byte, wireMaxDatagram)}, nil
}

// wireMaxDatagram is sized for wire.MaxFrameSize without importing the
// wire package here (runtimeglue stays below the client packages in
// the dependency graph; clients register handlers with it, not the
// other way around).
const wireMaxDatagram = 1472

// Close releases the socket's underlying connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Fd exposes the underlying file descriptor for embedders that drive
// their own select/poll/epoll loop instead of relying on Go's runtime
// poller via a goroutine. Most embedders don't need this: they can
// just call Process and let net.UDPConn's read block with a deadline.
func (s *Socket) Fd() (uintptr, error) {
	raw, err := s.conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd uintptr
	ctrlErr := raw.Control(func(f uintptr) { fd = f })
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}

func (s *Socket) readOnce() error {
	if s.pc != nil {
		n, cm, from, err := s.pc.ReadFrom(s.buf)
		if err != nil {
			return err
		}
		iface := 0
		if cm != nil {
			iface = cm.IfIndex
		}
		udpFrom, _ := from.(*net.UDPAddr)
		if s.handler != nil {
			s.handler(udpFrom, iface, s.buf[:n])
		}
		return nil
	}

	n, from, err := s.conn.ReadFromUDP(s.buf)
	if err != nil {
		return err
	}
	if s.handler != nil {
		s.handler(from, 0, s.buf[:n])
	}
	return nil
}

// WriteTo sends body to dest on this socket's underlying connection.
func (s *Socket) WriteTo(body []byte, dest *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(body, dest)
	return err
}

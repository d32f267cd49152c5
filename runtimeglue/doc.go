// Package runtimeglue is the single-threaded cooperative event loop
// of spec.md §2/§5: it aggregates every registered client's sockets
// and next-action time behind one GetSocketsAndTimeout/Process pair,
// so the host never has to know how many conmon/routing/domain/browse
// clients are alive or what each one is separately waiting on.
//
// There is no internal goroutine here, matching spec.md §5's
// "Scheduling model: single-threaded cooperative. There is no internal
// thread; the host drives progress by calling runtime.process(sockets)
// after a select-style wait." Grounded on the teacher's per-OS
// socket_unix.go/socket_linux.go/socket_darwin.go split (kept here for
// the one piece of real platform divergence: SO_REUSEPORT, set by
// ListenUnicastUDP so more than one process can bind the same unicast
// reply port) and
// generalized with golang.org/x/net/ipv4's ipv4.PacketConn for
// per-interface control-message access (joshuafuller-beacon's
// internal/transport/udp.go), which the browse package's per-interface
// Sighting needs to know which interface a datagram arrived on.
package runtimeglue

//go:build !windows

package runtimeglue

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reusePortControl sets SO_REUSEPORT before bind, so more than one
// process on the same host can share the routing/conmon unicast reply
// port (§4.4: a host MAY run several independent clients against the
// same local identity). Grounded on the teacher's per-OS
// socket_unix.go/socket_linux.go split, generalized from unix-domain
// IPC socket setup to this option.
func reusePortControl(_, _ string, c syscall.RawConn) error {
	var setErr error
	err := c.Control(func(fd uintptr) {
		setErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return setErr
}

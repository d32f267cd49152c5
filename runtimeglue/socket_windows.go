//go:build windows

package runtimeglue

import "syscall"

// reusePortControl is a no-op on Windows: there is no SO_REUSEPORT
// equivalent that behaves the same way, and binding exclusively is the
// platform's normal socket-sharing story.
func reusePortControl(_, _ string, _ syscall.RawConn) error {
	return nil
}

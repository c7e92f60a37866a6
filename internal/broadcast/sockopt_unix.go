//go:build unix && !solaris

package broadcast

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddr lets several listeners on one host share the announcement port.
// BSD kernels only share a bound UDP port with SO_REUSEPORT.
func reuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if sockErr == nil {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

//go:build !unix || solaris

package broadcast

import "syscall"

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}

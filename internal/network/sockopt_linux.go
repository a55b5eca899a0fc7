//go:build linux

package network

import "syscall"

func setReceiveBuffer(c syscall.RawConn, size int) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, size)
	})
	if err != nil {
		return err
	}
	return opErr
}

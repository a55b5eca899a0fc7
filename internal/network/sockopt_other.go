//go:build !linux && !windows

package network

import "syscall"

// setReceiveBuffer is a no-op here; the kernel default buffer is used.
func setReceiveBuffer(c syscall.RawConn, size int) error {
	return nil
}

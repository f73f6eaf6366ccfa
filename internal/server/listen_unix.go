//go:build unix

package server

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket はバインド前のリスニングソケットに SO_REUSEADDR を設定する。
// 再起動直後に TIME_WAIT のポートへバインドし直せるようにする。
func controlSocket(_, _ string, rawConn syscall.RawConn) error {
	var sockErr error
	err := rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

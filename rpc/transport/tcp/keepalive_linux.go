package tcp

import "golang.org/x/sys/unix"

// setKeepAlivePeriod sets the idle time and the probe interval in seconds
func setKeepAlivePeriod(fd int, sec int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, sec); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, sec)
}

package base

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// detachListener takes the descriptor of a bound listener out of the Go
// runtime and returns a non-blocking duplicate owned by the caller.
// The runtime listener is closed.
func detachListener(l net.Listener) (int, error) {
	defer l.Close()

	var (
		fd  int
		err error
	)
	switch ln := l.(type) {
	case *net.TCPListener:
		f, ferr := ln.File()
		if ferr != nil {
			return -1, ferr
		}
		fd, err = unix.Dup(int(f.Fd()))
		f.Close()
	case *net.UnixListener:
		// the socket file must survive closing the runtime listener
		ln.SetUnlinkOnClose(false)
		f, ferr := ln.File()
		if ferr != nil {
			return -1, ferr
		}
		fd, err = unix.Dup(int(f.Fd()))
		f.Close()
	default:
		return -1, fmt.Errorf("unsupported listener type %T", l)
	}
	if err != nil {
		return -1, fmt.Errorf("failed to duplicate listener: %w", err)
	}
	if err := prepareDescriptor(fd); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// prepareDescriptor puts fd into non-blocking close-on-exec mode
func prepareDescriptor(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("failed to set non-blocking mode: %w", err)
	}
	unix.CloseOnExec(fd)
	return nil
}

// isWouldBlock reports whether err means the operation has to wait for readiness
func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// writeSome writes as much of data as the socket accepts. A full socket
// buffer is not an error, the caller queues the remainder.
func writeSome(fd int, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := unix.Write(fd, data[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil:
		case errors.Is(err, unix.EINTR):
			continue
		case isWouldBlock(err):
			return written, nil
		default:
			return written, err
		}
		if n == 0 {
			break
		}
	}
	return written, nil
}

// peerName formats the address of an accepted socket for logging
func peerName(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(addr.Addr), uint16(addr.Port)).String()
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(addr.Addr), uint16(addr.Port)).String()
	case *unix.SockaddrUnix:
		if addr.Name == "" {
			return "unix:@"
		}
		return "unix:" + addr.Name
	default:
		return "unknown"
	}
}

// listenerAddr returns the bound address of fd
func listenerAddr(fd int) string {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return ""
	}
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(addr.Addr), uint16(addr.Port)).String()
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(addr.Addr), uint16(addr.Port)).String()
	case *unix.SockaddrUnix:
		return addr.Name
	default:
		return strconv.Itoa(fd)
	}
}

package tcp

import (
	"fmt"
	"net"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/ValentinKolb/eKV/rpc/transport/base"
	"golang.org/x/sys/unix"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	// Create TCP socket listener
	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}

	return listener, nil
}

// UpgradeConnection applies the options from TCPConf and SocketConf to an
// accepted TCP socket
func (c *serverConnector) UpgradeConnection(fd int, config common.ServerConfig) error {
	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if config.Transport.TCPNoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("TCP_NODELAY: %w", err)
		}
	}

	// Set socket buffer sizes if configured
	if err := applySocketBuffers(fd, config.Transport.SocketConf); err != nil {
		return err
	}

	// Enable TCP keep-alive if configured
	if config.Transport.TCPKeepAliveSec > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			return fmt.Errorf("SO_KEEPALIVE: %w", err)
		}
		if err := setKeepAlivePeriod(fd, config.Transport.TCPKeepAliveSec); err != nil {
			return fmt.Errorf("keep-alive period: %w", err)
		}
	}

	// Set TCP linger option if configured
	if config.Transport.TCPLingerSec > 0 {
		linger := &unix.Linger{Onoff: 1, Linger: int32(config.Transport.TCPLingerSec)}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, linger); err != nil {
			return fmt.Errorf("SO_LINGER: %w", err)
		}
	}

	return nil
}

func (c *serverConnector) Cleanup(common.ServerConfig) error {
	return nil
}

// applySocketBuffers sets SO_SNDBUF and SO_RCVBUF, zero keeps the kernel default
func applySocketBuffers(fd int, conf common.SocketConf) error {
	if conf.WriteBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, conf.WriteBufferSize); err != nil {
			return fmt.Errorf("SO_SNDBUF: %w", err)
		}
	}
	if conf.ReadBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, conf.ReadBufferSize); err != nil {
			return fmt.Errorf("SO_RCVBUF: %w", err)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}

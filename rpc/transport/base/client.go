package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
)

const defaultClientReadBuffer = 4096

// ErrNotConnected is returned by Send before Connect or after Close
var ErrNotConnected = errors.New("transport is not connected")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.).
// Requests are serialised on a single connection.
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	conn      net.Conn
	connMu    sync.Mutex // Protects the connection and the request/response cycle
	buf       []byte
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()

	// Close an existing connection
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}

	t.config = config
	size := config.ReadBufferSize
	if size <= 0 {
		size = defaultClientReadBuffer
	}
	t.buf = make([]byte, size)

	conn, err := t.connector.Connect(config.Endpoint, t.timeout())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", config.Endpoint, err)
	}

	t.conn = conn
	Logger.Debugf("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(req []byte, complete transport.ResponseComplete) ([]byte, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return nil, ErrNotConnected
	}

	// Set one deadline for the whole request/response cycle
	if timeout := t.timeout(); timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	if _, err := t.conn.Write(req); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	var resp []byte
	for {
		n, err := t.conn.Read(t.buf)
		resp = append(resp, t.buf[:n]...)

		if n > 0 && (complete == nil || complete(resp)) {
			return resp, nil
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			if len(resp) == 0 {
				return nil, io.EOF
			}
			// the server closed the connection, return what was sent
			return resp, nil
		case errors.Is(err, os.ErrDeadlineExceeded):
			if len(resp) > 0 {
				return resp, fmt.Errorf("incomplete response after %s: %w", t.timeout(), err)
			}
			return nil, fmt.Errorf("request timed out: %w", err)
		default:
			return resp, fmt.Errorf("failed to read response: %w", err)
		}
	}
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) timeout() time.Duration {
	if t.config.TimeoutSecond <= 0 {
		return 0
	}
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

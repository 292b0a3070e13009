package transport

import (
	"context"

	"github.com/ValentinKolb/eKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests.
// This function is called by a server transport layer for every complete
// command line (without the delimiter) it receives. It returns the response to
// write back to the same connection and whether the connection should be
// closed once the response has been sent.
// The request slice is only valid during the call.
type ServerHandleFunc func(req []byte) (resp []byte, closeConn bool)

// IRPCServerTransport is the interface for the server side transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the listening socket. It does not block.
	Listen(config common.ServerConfig, metrics *common.ServerMetrics) error
	// Addr returns the address the transport is bound to (empty before Listen)
	Addr() string
	// Serve runs the dispatch loop until ctx is cancelled or a fatal error occurs.
	// It must be called after Listen and only once.
	Serve(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// ResponseComplete reports whether the bytes received so far form a whole response
type ResponseComplete func(resp []byte) bool

// IRPCClientTransport is the interface for the client side transport layer
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response.
	// The transport keeps reading until complete accepts the received bytes.
	// A nil complete returns after the first read.
	Send(req []byte, complete ResponseComplete) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}

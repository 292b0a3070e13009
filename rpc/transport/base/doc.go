// Package base provides the foundation of the stream transports of the eKV
// server (TCP and Unix sockets). Protocol specific behavior is injected with
// connectors, everything else is shared.
//
// Key Components:
//
//   - IServerConnector/IClientConnector: Interfaces for protocol-specific operations
//     (binding the listener, dialing, applying socket options).
//
//   - serverTransport: A single threaded event loop. The listening socket and
//     every accepted connection are registered with a readiness poller
//     (lib/poll) under a token. Each readiness event is looked up in the
//     registry and dispatched to either the listener (accept until the
//     socket would block) or the connection (read until the socket would
//     block, split the stream into lines, call the handler, write the
//     response).
//
//   - registry: The token table. A token is in the registry exactly when it is
//     registered with the poller. Tokens are never reused while the server runs,
//     token 0 belongs to the listener.
//
//   - clientTransport: A synchronous client on a single connection. A request is
//     written and the response is read until the caller supplied completeness
//     check accepts it, the connection is closed or the timeout expires.
//
// Framing:
//
//	Requests are '\n' terminated lines, a trailing '\r' is removed. Lines may
//	arrive split over several reads or several lines in one read. Responses are
//	written as returned by the handler without any framing. Unwritten response
//	bytes are queued per connection and flushed when the socket becomes
//	writable again.
//
// Thread Safety:
//
//	The server transport must be driven by one goroutine (Serve). Cancelling the
//	context passed to Serve is safe from any goroutine. The client transport
//	serialises concurrent Send calls with a mutex.
package base

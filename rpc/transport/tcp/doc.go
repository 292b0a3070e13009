// Package tcp implements the TCP socket transport of the eKV server and client.
// It provides the TCP specific connectors for the base package: binding the
// listener and applying socket options (TCP_NODELAY, buffer sizes, keep-alive
// and linger) to every accepted connection.
//
// See the base package documentation for the event loop and the framing.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
package tcp

// Package transport defines the interfaces and abstractions for the network layer
// of the eKV key-value store. It provides a common contract that all transport
// implementations must fulfill, enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Decoupling the dispatch loop from request handling
//   - Enabling multiple transport implementations (TCP, Unix sockets)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     accept connections, frame incoming commands and hand them to a handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
//   - ResponseComplete: Function type clients use to tell the transport when a
//     response has been fully received.
package transport

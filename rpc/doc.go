// Package rpc provides the communication layer of the eKV key-value server.
// It connects clients and the server over a line based text protocol.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the command protocol, configuration structures, metrics and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets) on top of a single threaded event loop.
//
//   - codec: Compression of values and responses (zlib, zstd, s2 or none).
//
//   - client: RPC client implementing the store interface on top of a transport.
//
//   - server: RPC server components that turn protocol lines into store operations.
package rpc

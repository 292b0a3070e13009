// Package unix implements the Unix domain socket transport of the eKV server
// and client. It is meant for clients on the same machine and skips the TCP/IP
// stack entirely.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates the socket file, applies buffer sizes to accepted
//     connections and removes the socket file again after shutdown
//
// A stale socket file from a previous run is removed before binding.
package unix

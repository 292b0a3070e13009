// Package common provides core data structures and utilities shared across
// the eKV key-value store. It defines the wire protocol, configuration
// structures, metrics and the logging setup used by other packages.
//
// The package focuses on:
//   - Textual protocol definition (commands and response payloads)
//   - Configuration structures for client and server components
//   - Custom logging implementation on top of dragonboat's logger facade
//   - Server metrics based on VictoriaMetrics
//
// Key Components:
//
//   - Command: A parsed protocol line. ParseCommand tokenizes a line on
//     whitespace and recognizes SET <key> <hex>, GET <key> and BYE;
//     everything else is CmdTUnknown. Encode produces the newline terminated
//     wire form used by clients.
//
//   - Response constants: The plain text payloads (OK, NOT FOUND, Goodbye!,
//     ERROR) that the server compresses before sending.
//
//   - ServerConfig: Configuration of the server: endpoint, socket options,
//     framing limits, strict hex mode, metrics endpoint and log level.
//
//   - ClientConfig: Configuration of clients: endpoint, timeout, socket options.
//
//   - ServerMetrics: Per server VictoriaMetrics set with connection, byte and
//     request counters.
//
//   - Logger: Custom logging implementation that plugs into dragonboat's
//     logging facade while providing consistent formatting across the application.
package common

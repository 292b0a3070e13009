// Package cmd implements the command-line interface of the eKV key-value
// server. It provides a hierarchical command structure with operations for
// running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Client commands (set, get, has, an interactive console and a benchmark)
//   - serve: Command for starting and configuring the eKV server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ekv -help for a list of all commands.
package cmd

package server

import (
	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for turning a parsed command into a response
type IRPCServerAdapter interface {
	// Handle executes a command against the store and returns the raw response
	// bytes together with a flag that asks the transport to close the connection
	// once the response is written.
	// Failures are reported in-band, the adapter never returns an error.
	Handle(cmd common.Command, store store.IStore) (resp []byte, closeConn bool)
}

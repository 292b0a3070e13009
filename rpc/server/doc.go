// Package server implements the RPC server of eKV.
// It binds a local store, the request adapter and the metrics to one of the
// server transports.
//
// The package focuses on:
//   - Translating protocol lines into store operations
//   - Precomputing the compressed constant responses
//   - Exposing server metrics in prometheus format
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for the adapter,
//     with the Handle method that executes a parsed command against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating the adapter for SET, GET and
//     BYE. Values are stored exactly as they arrive (hex decoded, not decompressed)
//     and returned unchanged by GET.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and codec.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Endpoint = "0.0.0.0:8080"
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  codec.NewZlibCodec(),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Requests are handled on the event loop goroutine of the transport. The
//	metrics endpoint runs on its own goroutine and only reads counters and the
//	size of the store. Listen and Serve should be called only once.
package server

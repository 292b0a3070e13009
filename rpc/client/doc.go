// Package client implements the RPC client of the eKV server.
// It provides an implementation of the store.IStore interface that talks to a
// remote server through one of the client transports.
//
// The package focuses on:
//   - Transparent access to a remote store
//   - Compressing values before they are sent and decoding responses
//   - Error handling and conversion between protocol responses and Go errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.IStore
//     interface. Set compresses and hex encodes the value, Get decompresses the stored
//     value again. Size is not available over the wire.
//
//   - RPCStore.Exec: Sends a free form console line. Well-formed SET lines get their
//     value compressed, everything else is sent as typed.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:      "127.0.0.1:8080",
//	  TimeoutSecond: 5,
//	}
//
//	s, err := client.NewRPCStore(config, tcp.NewTCPClientTransport(), codec.NewZlibCodec())
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer s.Close()
//
//	_ = s.Set("color", []byte("red"))
//	value, found, _ := s.Get("color")
//
// A response counts as complete once it decompresses with the configured codec.
// Values that were stored without compression (e.g. by another client) can only
// be read back once the read deadline expires.
package client

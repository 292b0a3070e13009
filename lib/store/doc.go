// Package store provides the interface of the key-value map the eKV server
// stores values in, together with a small, code based error type.
//
// The package focuses on:
//   - A unified interface (IStore) for key-value operations across backends
//   - Unified error reporting through typed return codes
//
// Key Components:
//
//   - IStore Interface: The core abstraction for exact-match lookups of
//     string keys. Values are opaque byte sequences and the last write for a
//     key wins. There is no ordering and no expiry.
//
//   - Error System: A structured error carrying a RetCode and a message, so
//     callers can tell unsupported operations apart from internal failures.
//
// Implementations:
//
//	- Local Store (lstore): An in-memory map, safe for concurrent use.
//	  Available in the "github.com/ValentinKolb/eKV/lib/store/lstore" package.
//
//	- RPC Store: The client side of the eKV protocol implements the same
//	  interface on top of a network connection.
//	  Available in the "github.com/ValentinKolb/eKV/rpc/client" package.
package store

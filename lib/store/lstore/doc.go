// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. Data is stored entirely in memory and is not persisted between
// process restarts.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Exact-match lookups, last write wins
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//	The store is a thin wrapper around xsync.MapOf. The eKV server only touches
//	the store from its dispatch goroutine, but the metrics endpoint reads the
//	size concurrently, so the map must be safe for concurrent use.
//
//	A nil value is stored as an empty slice, so Get reports found=true with an
//	empty value for keys that were set to nothing.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//
//	err := s.Set("color", compressedValue)
//
//	value, exists, err := s.Get("color")
package lstore

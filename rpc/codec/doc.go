// Package codec provides the payload transforms of the eKV protocol. Responses
// (and, on the client side, the values of SET requests) are compressed before
// they are put on the wire.
//
// Key Components:
//
//   - ICodec: Core interface that all codec implementations must satisfy.
//
//   - zlibCodecImpl: zlib streams (RFC 1950). This is the default and is wire
//     compatible with clients that use any standard zlib library.
//
//   - zstdCodecImpl: zstd frames. Better ratio and speed on larger values.
//
//   - s2CodecImpl: s2 blocks, the fastest option with the weakest ratio.
//
//   - noneCodecImpl: Pass-through, for debugging.
//
// Server and client must use the same codec: the server stores SET values
// exactly as received and returns them verbatim on GET, so it never needs to
// decompress anything itself.
//
// Thread Safety:
//
//	All codec implementations are safe for concurrent use across multiple
//	goroutines without additional synchronization.
//
// Usage:
//
//	c := codec.NewZlibCodec()
//	payload, err := c.Compress([]byte("red"))
//	// ... send payload ...
//	value, err := c.Decompress(payload)
package codec

package codec

// ICodec is the interface for all payload transforms.
// A codec is reversible: Decompress(Compress(b)) must return b.
type ICodec interface {
	// Name returns the name of the codec (e.g. "zlib")
	Name() string
	// Compress transforms a payload into its compressed form
	Compress(data []byte) ([]byte, error)
	// Decompress restores a payload produced by Compress.
	// Truncated or corrupt input returns an error.
	Decompress(data []byte) ([]byte, error)
}

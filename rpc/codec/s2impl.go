package codec

import (
	"github.com/klauspost/compress/s2"
)

// NewS2Codec creates a codec producing s2 blocks (a snappy-compatible format)
func NewS2Codec() ICodec {
	return &s2CodecImpl{}
}

// s2CodecImpl implements the ICodec interface using s2 block encoding
type s2CodecImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (s *s2CodecImpl) Name() string {
	return "s2"
}

func (s *s2CodecImpl) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

func (s *s2CodecImpl) Decompress(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}

package codec

import (
	"github.com/klauspost/compress/zstd"
)

// NewZstdCodec creates a codec producing zstd frames
func NewZstdCodec() (ICodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &zstdCodecImpl{enc: enc, dec: dec}, nil
}

// zstdCodecImpl implements the ICodec interface using zstd frames.
// EncodeAll and DecodeAll are safe for concurrent use.
type zstdCodecImpl struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (z *zstdCodecImpl) Name() string {
	return "zstd"
}

func (z *zstdCodecImpl) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

func (z *zstdCodecImpl) Decompress(data []byte) ([]byte, error) {
	return z.dec.DecodeAll(data, nil)
}

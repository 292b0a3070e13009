package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// NewZlibCodec creates a codec producing zlib streams (RFC 1950) with the
// default compression level
func NewZlibCodec() ICodec {
	return &zlibCodecImpl{level: zlib.DefaultCompression}
}

// zlibCodecImpl implements the ICodec interface using zlib streams
type zlibCodecImpl struct {
	level int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (z *zlibCodecImpl) Name() string {
	return "zlib"
}

func (z *zlibCodecImpl) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, z.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (z *zlibCodecImpl) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

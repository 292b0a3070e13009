package codec

// NewNoneCodec creates a codec that passes payloads through unchanged.
// Useful for debugging the server with plain text tools such as netcat.
func NewNoneCodec() ICodec {
	return noneCodecImpl{}
}

type noneCodecImpl struct{}

func (noneCodecImpl) Name() string {
	return "none"
}

func (noneCodecImpl) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (noneCodecImpl) Decompress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

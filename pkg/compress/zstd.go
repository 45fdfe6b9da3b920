package compress

import (
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// zstdCompressor 编解码器实例共享，EncodeAll/DecodeAll 并发安全
type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, errors.Wrap(err, "compress: create zstd encoder")
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		_ = encoder.Close()
		return nil, errors.Wrap(err, "compress: create zstd decoder")
	}
	return &zstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (c *zstdCompressor) Compress(src []byte) ([]byte, error) {
	return c.encoder.EncodeAll(src, nil), nil
}

func (c *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	dst, err := c.decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, errors.WithSecondaryError(ErrCorrupted, err)
	}
	return dst, nil
}

func (c *zstdCompressor) Type() Type { return TypeZstd }

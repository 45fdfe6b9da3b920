package compress

import (
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

type snappyCompressor struct{}

func (snappyCompressor) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCompressor) Decompress(src []byte) ([]byte, error) {
	dst, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, errors.WithSecondaryError(ErrCorrupted, err)
	}
	return dst, nil
}

func (snappyCompressor) Type() Type { return TypeSnappy }

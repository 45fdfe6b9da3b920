package compress

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4/v4"
)

// 单块解压的原文上限
const maxLZ4BlockSize = 64 << 20

// lz4Compressor 块格式，头部为原文长度的 uvarint
type lz4Compressor struct{}

func (lz4Compressor) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(src)))
	h := binary.PutUvarint(dst, uint64(len(src)))
	n, err := lz4.CompressBlock(src, dst[h:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "compress: lz4")
	}
	if n == 0 {
		return nil, ErrIncompressible
	}
	return dst[:h+n], nil
}

func (lz4Compressor) Decompress(src []byte) ([]byte, error) {
	size, h := binary.Uvarint(src)
	if h <= 0 || size > maxLZ4BlockSize {
		return nil, ErrCorrupted
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src[h:], dst)
	if err != nil {
		return nil, errors.WithSecondaryError(ErrCorrupted, err)
	}
	if uint64(n) != size {
		return nil, ErrCorrupted
	}
	return dst, nil
}

func (lz4Compressor) Type() Type { return TypeLZ4 }

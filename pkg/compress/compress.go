package compress

import (
	"github.com/cockroachdb/errors"
)

// Type 压缩算法
type Type string

const (
	TypeNone   Type = "none"
	TypeSnappy Type = "snappy"
	TypeZstd   Type = "zstd"
	TypeLZ4    Type = "lz4"
)

var (
	ErrUnsupportedType = errors.New("compress: unsupported type")
	// ErrIncompressible 压缩后不小于原文
	ErrIncompressible = errors.New("compress: data is incompressible")
	ErrCorrupted      = errors.New("compress: corrupted payload")
)

// Compressor 无状态块压缩，可并发使用
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
	Type() Type
}

// New 按类型创建压缩器，TypeNone 返回 nil
func New(t Type) (Compressor, error) {
	switch t {
	case TypeNone, "":
		return nil, nil
	case TypeSnappy:
		return snappyCompressor{}, nil
	case TypeZstd:
		return newZstdCompressor()
	case TypeLZ4:
		return lz4Compressor{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%q", t)
	}
}

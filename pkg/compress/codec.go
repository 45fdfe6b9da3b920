package compress

import (
	"github.com/cockroachdb/errors"
)

// 帧格式：[frameMarker][算法编号][压缩数据]。
// 未压缩的数据原样存放，首字节不能是 frameMarker（JSON 与 UTF-8 文本满足这一点）
const frameMarker byte = 0x00

var typeIDs = map[Type]byte{
	TypeSnappy: 1,
	TypeZstd:   2,
	TypeLZ4:    3,
}

// Codec 按阈值压缩并自描述算法，解码时不依赖本地配置的算法
type Codec struct {
	compressor Compressor
	threshold  int
	decoders   map[byte]Compressor
}

// NewCodec 创建编解码器，小于 threshold 字节的数据不压缩
func NewCodec(t Type, threshold int) (*Codec, error) {
	c, err := New(t)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		threshold = 0
	}
	decoders := make(map[byte]Compressor, len(typeIDs))
	for typ, id := range typeIDs {
		if c != nil && c.Type() == typ {
			decoders[id] = c
			continue
		}
		d, err := New(typ)
		if err != nil {
			return nil, err
		}
		decoders[id] = d
	}
	return &Codec{compressor: c, threshold: threshold, decoders: decoders}, nil
}

// Type 当前写入使用的算法
func (c *Codec) Type() Type {
	if c.compressor == nil {
		return TypeNone
	}
	return c.compressor.Type()
}

// Encode 压缩收益为负或数据过短时返回原文
func (c *Codec) Encode(src []byte) ([]byte, error) {
	if c.compressor == nil || len(src) < c.threshold || len(src) == 0 {
		return src, nil
	}
	if src[0] == frameMarker {
		return nil, errors.Wrap(ErrCorrupted, "compress: payload starts with frame marker")
	}
	out, err := c.compressor.Compress(src)
	if errors.Is(err, ErrIncompressible) {
		return src, nil
	}
	if err != nil {
		return nil, err
	}
	if len(out)+2 >= len(src) {
		return src, nil
	}
	framed := make([]byte, 0, len(out)+2)
	framed = append(framed, frameMarker, typeIDs[c.compressor.Type()])
	return append(framed, out...), nil
}

// Decode 识别帧头并解压，非帧数据原样返回
func (c *Codec) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != frameMarker {
		return data, nil
	}
	if len(data) < 2 {
		return nil, ErrCorrupted
	}
	dec, ok := c.decoders[data[1]]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedType, "frame id %d", data[1])
	}
	return dec.Decompress(data[2:])
}

package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// decodeStrict 将 partial 覆盖解码到 dst，未知字段返回 errUnknownField，类型不符返回 errWrongType
func decodeStrict(partial []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(partial))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return errors.Mark(err, errUnknownField)
		}
		return errors.Mark(err, errWrongType)
	}
	if dec.More() {
		return errors.Mark(errors.New("trailing data after document"), errWrongType)
	}
	return nil
}

var (
	errUnknownField = errors.New("unknown field")
	errWrongType    = errors.New("wrong type")
)

// nowMillis 毫秒时间戳
func nowMillis(now func() time.Time) int64 {
	return now().UnixMilli()
}

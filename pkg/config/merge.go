package config

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// MergeConfig 将 src 中的非零值覆盖到 dst 上并返回 dst。
// 任一方为 nil 时直接返回另一方，两者都为 nil 返回错误。
// 注意：零值不会覆盖默认值，因此 bool 字段无法通过 src 置为 false。
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, errors.Wrap(ErrMergeFailed, "both dst and src are nil")
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := mergeValue(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, errors.Wrap(ErrMergeFailed, err.Error())
	}
	return dst, nil
}

func mergeValue(dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < src.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			df := dst.FieldByName(f.Name)
			if !df.IsValid() || !df.CanSet() {
				continue
			}
			if err := mergeValue(df, src.Field(i)); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return nil

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		iter := src.MapRange()
		for iter.Next() {
			cur := dst.MapIndex(iter.Key())
			if !cur.IsValid() {
				dst.SetMapIndex(iter.Key(), iter.Value())
				continue
			}
			merged := reflect.New(dst.Type().Elem()).Elem()
			merged.Set(cur)
			if err := mergeValue(merged, iter.Value()); err != nil {
				return err
			}
			dst.SetMapIndex(iter.Key(), merged)
		}
		return nil

	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return mergeValue(dst.Elem(), src.Elem())

	default:
		// 切片及基本类型整体覆盖
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

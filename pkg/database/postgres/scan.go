package postgres

import (
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// 结构体列映射缓存：列名 -> 字段索引
var columnCache sync.Map

func columnsOf(t reflect.Type) map[string]int {
	if cached, ok := columnCache.Load(t); ok {
		return cached.(map[string]int)
	}

	cols := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = toSnakeCase(f.Name)
		}
		cols[name] = i
	}

	actual, _ := columnCache.LoadOrStore(t, cols)
	return actual.(map[string]int)
}

// scanStruct 将当前行按列名扫描到结构体，未映射的列被丢弃
func scanStruct(rows pgx.Rows, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.New("postgres: dest must be a pointer to struct")
	}
	v = v.Elem()
	cols := columnsOf(v.Type())

	fds := rows.FieldDescriptions()
	targets := make([]any, len(fds))
	for i, fd := range fds {
		if idx, ok := cols[fd.Name]; ok {
			targets[i] = v.Field(idx).Addr().Interface()
			continue
		}
		var discard any
		targets[i] = &discard
	}

	if err := rows.Scan(targets...); err != nil {
		return errors.Wrap(err, "scan failed")
	}
	return nil
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

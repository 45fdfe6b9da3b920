// Package migrations 内嵌 goose 迁移脚本
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dir 迁移脚本在 FS 中的目录
const Dir = "."

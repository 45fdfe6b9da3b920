package validator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// vaultKeyPattern 存储键只允许字母数字与 . _ - :
var vaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

var once sync.Once

// Init 注册字段名与自定义规则，可重复调用
func Init() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// 错误信息显示 json tag 而非结构体字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("vaultkey", func(fl validator.FieldLevel) bool {
			return ValidVaultKey(fl.Field().String())
		})
	})
}

// ValidVaultKey 校验存储键格式
func ValidVaultKey(key string) bool {
	return vaultKeyPattern.MatchString(key)
}

package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/go-playground/validator/v10"
)

// MaxIDLength 是实体ID允许的最大字符数
const MaxIDLength = 80

var v = validator.New()

var idRule = fmt.Sprintf("required,max=%d", MaxIDLength)

// IsValidID 判断一个已去除首尾空白的ID是否合法：非空且不超过 MaxIDLength 个字符
func IsValidID(id string) bool {
	return v.Var(id, idRule) == nil
}

// ID 去除首尾空白并校验实体ID，不合法时返回校验错误
func ID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if !IsValidID(id) {
		return "", apperr.Validation("ID无效")
	}
	return id, nil
}

// Stringify 把JSON解码得到的任意值转换为ID字符串，nil/false 视为空
func Stringify(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
		return "true"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type 表示应用错误的类别
type Type string

const (
	TypeValidation         Type = "validation"
	TypeStorageUnavailable Type = "storage_unavailable"
	TypeRateLimited        Type = "rate_limited"
)

// Error 是带有HTTP状态码的结构化应用错误
type Error struct {
	Type       Type
	Message    string
	StatusCode int
	Internal   error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap 返回被包装的底层错误
func (e *Error) Unwrap() error {
	return e.Internal
}

// Validation 创建一个校验错误：请求在访问存储之前即被拒绝
func Validation(message string) *Error {
	return &Error{
		Type:       TypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// Validationf 是带格式化的 Validation
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Storage 创建一个存储不可用错误
func Storage(message string, internal error) *Error {
	return &Error{
		Type:       TypeStorageUnavailable,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// RateLimited 创建一个限流错误
func RateLimited(message string) *Error {
	return &Error{
		Type:       TypeRateLimited,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// IsValidation 判断错误链中是否包含校验错误
func IsValidation(err error) bool {
	return Is(err, TypeValidation)
}

// Is 判断错误链中是否包含指定类别的应用错误
func Is(err error, t Type) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Type == t
}

// Status 返回错误对应的HTTP状态码和对外消息；未知错误一律视为存储故障
func Status(err error) (int, string) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode, appErr.Message
	}
	return http.StatusInternalServerError, "服务器错误"
}

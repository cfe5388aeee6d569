package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", Validation("ID无效"), http.StatusBadRequest, "ID无效"},
		{"wrapped validation", fmt.Errorf("hit: %w", Validationf("kind无效: %s", "x")), http.StatusBadRequest, "kind无效: x"},
		{"storage", Storage("读取计数失败", errors.New("disk I/O error")), http.StatusInternalServerError, "读取计数失败"},
		{"rate limited", RateLimited("请求过于频繁"), http.StatusTooManyRequests, "请求过于频繁"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "服务器错误"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Status(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestStorageUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("写入计数失败", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, TypeStorageUnavailable))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "connection refused")
}

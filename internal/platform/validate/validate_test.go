package validate

import (
	"strings"
	"testing"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "g:42", want: "g:42"},
		{name: "trimmed", raw: "  t:ant28jsp:123 \n", want: "t:ant28jsp:123"},
		{name: "empty", raw: "", wantErr: true},
		{name: "blank", raw: "   ", wantErr: true},
		{name: "exactly 80", raw: strings.Repeat("a", 80), want: strings.Repeat("a", 80)},
		{name: "81", raw: strings.Repeat("a", 81), wantErr: true},
		{name: "80 multibyte runes", raw: strings.Repeat("é", 80), want: strings.Repeat("é", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "", Stringify(false))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "123", Stringify(float64(123)))
	assert.Equal(t, "1.5", Stringify(1.5))
}

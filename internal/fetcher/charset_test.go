package fetcher

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTF8Reader(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		in          string
		want        string
		wantErr     bool
	}{
		{"no header", "", "plain", "plain", false},
		{"utf-8", "text/html; charset=UTF-8", "café", "café", false},
		{"no charset", "text/html", "café", "café", false},
		{"latin1", "text/html; charset=iso-8859-1", "caf\xe9", "café", false},
		{"bad media type", ";;", "x", "x", false},
		{"unknown charset", "text/html; charset=klingon", "x", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := UTF8Reader(strings.NewReader(tt.in), tt.contentType)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

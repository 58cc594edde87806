package io

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charliek/comfygcs/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestCopyLimited(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int64
		wantErr bool
	}{
		{name: "under limit", input: "abc", max: 10},
		{name: "at limit", input: "abcd", max: 4},
		{name: "over limit", input: "abcde", max: 4, wantErr: true},
		{name: "no limit", input: strings.Repeat("x", 4096), max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst bytes.Buffer
			n, err := CopyLimited(&dst, strings.NewReader(tt.input), tt.max, "object")
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrFileSizeTooLarge)
				return
			}
			require.NoError(t, err)
			require.Equal(t, int64(len(tt.input)), n)
			require.Equal(t, tt.input, dst.String())
		})
	}
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "512 B", FormatSize(512))
	require.Equal(t, "1.0 KB", FormatSize(1024))
	require.Equal(t, "1.5 MB", FormatSize(1536*1024))
	require.Equal(t, "512.0 MB", FormatSize(512*1024*1024))
}

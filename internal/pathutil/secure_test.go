package pathutil

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/charliek/comfygcs/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSecureJoin(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name        string
		path        string
		wantErr     bool
		errContains string
	}{
		{name: "normal file", path: "1.png"},
		{name: "nested file", path: "cats/1.png"},
		{name: "double dots in filename (not traversal)", path: "file..name.png"},
		{
			name:        "path traversal attempt",
			path:        "../../../etc/passwd",
			wantErr:     true,
			errContains: "path traversal not allowed",
		},
		{
			name:        "path traversal with normal prefix",
			path:        "cats/../../../etc/passwd",
			wantErr:     true,
			errContains: "path traversal not allowed",
		},
		{
			name:        "absolute path",
			path:        "/etc/passwd",
			wantErr:     true,
			errContains: "absolute path not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := SecureJoin(base, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, domain.ErrInvalidArgs))
				require.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			require.Equal(t, filepath.Join(base, tt.path), result)
		})
	}
}

func TestStagingPath(t *testing.T) {
	base := t.TempDir()

	got, err := StagingPath(base, "cats/1.png")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "1.png"), got)

	got, err = StagingPath(base, "plain.jpg")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "plain.jpg"), got)

	_, err = StagingPath(base, "")
	require.Error(t, err)

	_, err = StagingPath(base, "../")
	require.Error(t, err)
}

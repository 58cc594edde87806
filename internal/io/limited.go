package io

import (
	"fmt"
	"io"

	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
)

// CopyLimited copies src into dst, failing with ErrFileSizeTooLarge once more
// than maxBytes have been read. A non-positive maxBytes disables the limit.
func CopyLimited(dst io.Writer, src io.Reader, maxBytes int64, what string) (int64, error) {
	if maxBytes <= 0 {
		return io.Copy(dst, src)
	}

	// Read one extra byte to detect overflow
	n, err := io.Copy(dst, io.LimitReader(src, maxBytes+1))
	if err != nil {
		return n, err
	}

	if n > maxBytes {
		return n, domain.Errorf(domain.ErrFileSizeTooLarge,
			"%s exceeds maximum size of %s", what, FormatSize(maxBytes))
	}

	return n, nil
}

// FormatSize returns a human-readable size string.
func FormatSize(bytes int64) string {
	const unit = constants.BytesPerKB
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

package pathutil

import (
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/charliek/comfygcs/internal/domain"
)

// SecureJoin safely joins a base directory with a relative path,
// preventing path traversal (e.g., ../../../etc/passwd).
// It returns an error if the path attempts to escape the base directory.
func SecureJoin(baseDir, relativePath string) (string, error) {
	cleaned := filepath.Clean(relativePath)

	if filepath.IsAbs(cleaned) {
		return "", domain.Errorf(domain.ErrInvalidArgs, "absolute path not allowed: %q", relativePath)
	}

	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", domain.Errorf(domain.ErrInvalidArgs, "path traversal not allowed: %q", relativePath)
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", domain.Errorf(domain.ErrIO, "cannot resolve %q: %v", baseDir, err)
	}

	safePath, err := securejoin.SecureJoin(base, cleaned)
	if err != nil {
		return "", domain.Errorf(domain.ErrInvalidArgs, "invalid path %q: %v", relativePath, err)
	}

	// Use path separator to prevent /data/input matching /data/input2
	if safePath != base && !strings.HasPrefix(safePath, base+string(filepath.Separator)) {
		return "", domain.Errorf(domain.ErrInvalidArgs, "path traversal attempt detected: %q", relativePath)
	}

	return safePath, nil
}

// StagingPath returns where an object is downloaded to inside dir. Only the
// object's base name is kept, so "cats/1.png" stages as "<dir>/1.png".
func StagingPath(dir, objectName string) (string, error) {
	name := path.Base(strings.TrimSuffix(objectName, "/"))
	if name == "." || name == "/" || name == "" {
		return "", domain.Errorf(domain.ErrInvalidArgs, "object %q has no file name", objectName)
	}
	return SecureJoin(dir, name)
}

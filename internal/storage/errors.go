package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/minio/minio-go/v7"
	"google.golang.org/api/googleapi"
)

// classify maps a provider error onto the domain taxonomy. The provider error
// stays in the chain so callers can still inspect it.
func classify(err error, fallback error, what string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, err)
	}

	return fmt.Errorf("%w: %s: %w", sentinelFor(err, fallback), what, err)
}

func sentinelFor(err error, fallback error) error {
	for _, known := range []error{domain.ErrNotFound, domain.ErrAuth} {
		if errors.Is(err, known) {
			return known
		}
	}

	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return domain.ErrNotFound
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.ErrAuth
		case http.StatusNotFound:
			return domain.ErrNotFound
		}
		return fallback
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return domain.ErrNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return domain.ErrAuth
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuth
	case http.StatusNotFound:
		return domain.ErrNotFound
	}

	return fallback
}

// isNotFound reports whether a provider error means the object does not exist
func isNotFound(err error) bool {
	return sentinelFor(err, nil) == domain.ErrNotFound
}

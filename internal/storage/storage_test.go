package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback error
		want     error
	}{
		{name: "gcs object missing", err: storage.ErrObjectNotExist, fallback: domain.ErrDownloadFailed, want: domain.ErrNotFound},
		{name: "gcs bucket missing", err: storage.ErrBucketNotExist, fallback: domain.ErrStorage, want: domain.ErrNotFound},
		{name: "googleapi 401", err: &googleapi.Error{Code: 401}, fallback: domain.ErrStorage, want: domain.ErrAuth},
		{name: "googleapi 403", err: &googleapi.Error{Code: 403}, fallback: domain.ErrStorage, want: domain.ErrAuth},
		{name: "googleapi 404", err: &googleapi.Error{Code: 404}, fallback: domain.ErrStorage, want: domain.ErrNotFound},
		{name: "googleapi 500", err: &googleapi.Error{Code: 500}, fallback: domain.ErrUploadFailed, want: domain.ErrUploadFailed},
		{name: "minio no such key", err: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, fallback: domain.ErrDownloadFailed, want: domain.ErrNotFound},
		{name: "minio access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, fallback: domain.ErrStorage, want: domain.ErrAuth},
		{name: "domain passthrough", err: domain.Errorf(domain.ErrAuth, "bad key"), fallback: domain.ErrStorage, want: domain.ErrAuth},
		{name: "unknown", err: errors.New("socket closed"), fallback: domain.ErrStorage, want: domain.ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, tt.fallback, "op")
			require.ErrorIs(t, got, tt.want)
			// The provider error stays visible
			require.Contains(t, got.Error(), tt.err.Error())
		})
	}

	require.NoError(t, classify(nil, domain.ErrStorage, "op"))
}

func TestClassify_ContextErrorsStayUnclassified(t *testing.T) {
	err := classify(fmt.Errorf("read: %w", context.Canceled), domain.ErrDownloadFailed, "op")
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, errors.Is(err, domain.ErrDownloadFailed))
}

func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(storage.ErrObjectNotExist))
	require.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	require.False(t, isNotFound(&googleapi.Error{Code: 500}))
}

func TestValidateGCSCredentials(t *testing.T) {
	require.NoError(t, validateGCSCredentials([]byte(`{"type":"service_account","project_id":"p"}`)))
	require.Error(t, validateGCSCredentials([]byte(`not json`)))
	require.Error(t, validateGCSCredentials([]byte(`{"project_id":"p"}`)))
}

func TestGCSClientOptions(t *testing.T) {
	creds := base64.StdEncoding.EncodeToString([]byte(`{"type":"service_account"}`))

	opts, err := gcsClientOptions(GCSOptions{Bucket: "b"})
	require.NoError(t, err)
	require.Empty(t, opts)

	opts, err = gcsClientOptions(GCSOptions{Bucket: "b", Project: "p", CredentialsFile: "/tmp/key.json"})
	require.NoError(t, err)
	require.Len(t, opts, 2)

	opts, err = gcsClientOptions(GCSOptions{Bucket: "b", Credentials: creds})
	require.NoError(t, err)
	require.Len(t, opts, 1)

	_, err = gcsClientOptions(GCSOptions{Bucket: "b", Credentials: creds, CredentialsFile: "/tmp/key.json"})
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = gcsClientOptions(GCSOptions{Bucket: "b", Credentials: "!!!"})
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestContentTypeFor(t *testing.T) {
	require.Equal(t, "image/png", contentTypeFor("output/Image_64x64_00000_.png"))
	require.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}

func TestMockStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	require.NoError(t, m.Upload(ctx, "b/2.png", strings.NewReader("two")))
	require.NoError(t, m.Upload(ctx, "b/1.png", strings.NewReader("one")))
	require.NoError(t, m.Upload(ctx, "a.png", strings.NewReader("a")))

	names, err := m.List(ctx, "b/")
	require.NoError(t, err)
	require.Equal(t, []string{"b/1.png", "b/2.png"}, names)

	infos, err := m.ListWithMetadata(ctx, "")
	require.NoError(t, err)
	require.Len(t, infos, 3)
	require.Equal(t, int64(1), infos[0].Size)
	require.Equal(t, "image/png", infos[0].ContentType)

	rc, err := m.Download(ctx, "b/2.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	_, err = m.Download(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := m.Exists(ctx, "a.png")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMockStorage_FailUploadAfter(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	m.UploadError = domain.Errorf(domain.ErrUploadFailed, "quota")
	m.FailUploadAfter = 1

	require.NoError(t, m.Upload(ctx, "1", strings.NewReader("x")))
	require.ErrorIs(t, m.Upload(ctx, "2", strings.NewReader("x")), domain.ErrUploadFailed)
	require.Equal(t, 1, m.Count())
}

func TestMockStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockStorage().List(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
}

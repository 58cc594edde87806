package storage

import (
	"context"
	"io"
	"mime"
	"path"

	"github.com/charliek/comfygcs/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Compile-time assertion that MinioStorage implements Storage
var _ Storage = (*MinioStorage)(nil)

// MinioOptions configures an S3-compatible backend
type MinioOptions struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	Region          string
}

// MinioStorage implements Storage against any S3-compatible endpoint
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage creates a new S3-compatible storage client
func NewMinioStorage(opts MinioOptions) (*MinioStorage, error) {
	if opts.Bucket == "" {
		return nil, domain.Errorf(domain.ErrConfig, "bucket is required")
	}
	if opts.Endpoint == "" {
		return nil, domain.Errorf(domain.ErrConfig, "minio endpoint is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, domain.Errorf(domain.ErrConfig, "failed to create MinIO client: %v", err)
	}

	return &MinioStorage{
		client: client,
		bucket: opts.Bucket,
	}, nil
}

// Upload implements Storage.Upload
func (s *MinioStorage) Upload(ctx context.Context, path string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, r, -1, minio.PutObjectOptions{
		ContentType: contentTypeFor(path),
	})
	if err != nil {
		return classify(err, domain.ErrUploadFailed, "failed to put object")
	}
	return nil
}

// Download implements Storage.Download
func (s *MinioStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, domain.ErrDownloadFailed, "failed to get "+path)
	}

	// GetObject is lazy; Stat surfaces missing keys and auth failures up front
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, classify(err, domain.ErrDownloadFailed, "failed to get "+path)
	}

	return obj, nil
}

// List implements Storage.List
func (s *MinioStorage) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.ListWithMetadata(ctx, prefix)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(objects))
	for _, obj := range objects {
		paths = append(paths, obj.Name)
	}
	return paths, nil
}

// ListWithMetadata implements Storage.ListWithMetadata
func (s *MinioStorage) ListWithMetadata(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, classify(info.Err, domain.ErrStorage, "failed to list objects")
		}
		objects = append(objects, ObjectInfo{
			Name:        info.Key,
			Size:        info.Size,
			Updated:     info.LastModified,
			ContentType: info.ContentType,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return objects, nil
}

// Exists implements Storage.Exists
func (s *MinioStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify(err, domain.ErrStorage, "failed to check object existence")
	}
	return true, nil
}

// Close is a no-op; the MinIO client holds no releasable resources
func (s *MinioStorage) Close() error {
	return nil
}

// BucketExists checks if the configured bucket exists and is accessible
func (s *MinioStorage) BucketExists(ctx context.Context) (bool, error) {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return false, classify(err, domain.ErrStorage, "failed to check bucket")
	}
	return ok, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

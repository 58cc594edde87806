package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"

	"cloud.google.com/go/storage"
	"github.com/charliek/comfygcs/internal/domain"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Compile-time assertion that GCSStorage implements Storage
var _ Storage = (*GCSStorage)(nil)

// GCSOptions configures a GCS backend
type GCSOptions struct {
	// Bucket is the bucket every operation is scoped to
	Bucket string
	// Project is used as the quota project when set
	Project string
	// CredentialsFile is a path to a service account JSON file
	CredentialsFile string
	// Credentials is base64-encoded service account JSON
	Credentials string
}

// GCSStorage implements Storage using Google Cloud Storage
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// validateGCSCredentials validates that the decoded credentials are valid JSON
// with the expected structure for a GCS service account
func validateGCSCredentials(decoded []byte) error {
	var creds map[string]interface{}
	if err := json.Unmarshal(decoded, &creds); err != nil {
		return domain.Errorf(domain.ErrConfig, "credentials are not valid JSON: %v", err)
	}

	credType, ok := creds["type"].(string)
	if !ok {
		return domain.Errorf(domain.ErrConfig, "credentials missing 'type' field")
	}

	validTypes := map[string]bool{
		"service_account":              true,
		"authorized_user":              true,
		"external_account":             true,
		"impersonated_service_account": true,
	}
	if !validTypes[credType] {
		return domain.Errorf(domain.ErrConfig, "unsupported credential type: %s", credType)
	}

	return nil
}

// gcsClientOptions builds client options from explicit credentials, falling
// back to Application Default Credentials when none are given
func gcsClientOptions(opts GCSOptions) ([]option.ClientOption, error) {
	var clientOpts []option.ClientOption

	switch {
	case opts.CredentialsFile != "" && opts.Credentials != "":
		return nil, domain.Errorf(domain.ErrConfig, "cannot set both a credentials file and inline credentials")
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case opts.Credentials != "":
		decoded, err := base64.StdEncoding.DecodeString(opts.Credentials)
		if err != nil {
			return nil, domain.Errorf(domain.ErrConfig, "failed to decode credentials: %v", err)
		}
		if err := validateGCSCredentials(decoded); err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(decoded))
	}

	if opts.Project != "" {
		clientOpts = append(clientOpts, option.WithQuotaProject(opts.Project))
	}

	return clientOpts, nil
}

// NewGCSStorage creates a new GCS storage client
func NewGCSStorage(ctx context.Context, opts GCSOptions) (*GCSStorage, error) {
	if opts.Bucket == "" {
		return nil, domain.Errorf(domain.ErrConfig, "bucket is required")
	}

	clientOpts, err := gcsClientOptions(opts)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, classify(err, domain.ErrAuth, "failed to create GCS client")
	}

	return &GCSStorage{
		client: client,
		bucket: opts.Bucket,
	}, nil
}

// Upload implements Storage.Upload
func (s *GCSStorage) Upload(ctx context.Context, path string, r io.Reader) error {
	obj := s.client.Bucket(s.bucket).Object(path)
	w := obj.NewWriter(ctx)
	w.ContentType = contentTypeFor(path)

	if _, err := io.Copy(w, r); err != nil {
		// Closing aborts the upload; the copy error is the one worth reporting
		_ = w.Close()
		return classify(err, domain.ErrUploadFailed, "failed to write to GCS")
	}

	if err := w.Close(); err != nil {
		return classify(err, domain.ErrUploadFailed, "failed to close GCS writer")
	}

	return nil
}

// Download implements Storage.Download
func (s *GCSStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucket).Object(path)
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, classify(err, domain.ErrDownloadFailed, "failed to read "+path+" from GCS")
	}
	return r, nil
}

// List implements Storage.List
func (s *GCSStorage) List(ctx context.Context, prefix string) ([]string, error) {
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
func (s *GCSStorage) ListWithMetadata(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	query := &storage.Query{Prefix: prefix}
	if err := query.SetAttrSelection([]string{"Name", "Size", "Updated", "ContentType"}); err != nil {
		return nil, domain.Errorf(domain.ErrStorage, "failed to build query: %v", err)
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(err, domain.ErrStorage, "failed to list objects")
		}
		objects = append(objects, ObjectInfo{
			Name:        attrs.Name,
			Size:        attrs.Size,
			Updated:     attrs.Updated,
			ContentType: attrs.ContentType,
		})
	}

	return objects, nil
}

// Exists implements Storage.Exists
func (s *GCSStorage) Exists(ctx context.Context, path string) (bool, error) {
	obj := s.client.Bucket(s.bucket).Object(path)
	_, err := obj.Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, classify(err, domain.ErrStorage, "failed to check object existence")
	}
	return true, nil
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// BucketExists checks if the configured bucket exists and is accessible
func (s *GCSStorage) BucketExists(ctx context.Context) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Attrs(ctx)
	if err == storage.ErrBucketNotExist {
		return false, nil
	}
	if err != nil {
		return false, classify(err, domain.ErrStorage, "failed to check bucket")
	}
	return true, nil
}

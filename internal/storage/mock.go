package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charliek/comfygcs/internal/domain"
)

// Compile-time assertion that MockStorage implements Storage
var _ Storage = (*MockStorage)(nil)

// MockStorage implements Storage for testing. Listing is lexicographic, like GCS.
type MockStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	updated map[string]time.Time

	listCalls     int
	downloadCalls int
	uploadCalls   int

	// For error injection
	UploadError   error
	DownloadError error
	ListError     error
	ExistsError   error

	// FailUploadAfter makes every upload after the first N fail with UploadError
	FailUploadAfter int
}

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects:         make(map[string][]byte),
		updated:         make(map[string]time.Time),
		FailUploadAfter: -1,
	}
}

// Upload implements Storage.Upload
func (m *MockStorage) Upload(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.uploadCalls++
	calls := m.uploadCalls
	m.mu.Unlock()

	if m.UploadError != nil && (m.FailUploadAfter < 0 || calls > m.FailUploadAfter) {
		return m.UploadError
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	m.updated[path] = time.Now()
	return nil
}

// Download implements Storage.Download
func (m *MockStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.downloadCalls++
	m.mu.Unlock()

	if m.DownloadError != nil {
		return nil, m.DownloadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[path]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "object not found: %s", path)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// List implements Storage.List
func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := m.ListWithMetadata(ctx, prefix)
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
func (m *MockStorage) ListWithMetadata(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := []ObjectInfo{}
	for path, data := range m.objects {
		if strings.HasPrefix(path, prefix) {
			objects = append(objects, ObjectInfo{
				Name:        path,
				Size:        int64(len(data)),
				Updated:     m.updated[path],
				ContentType: contentTypeFor(path),
			})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Exists implements Storage.Exists
func (m *MockStorage) Exists(ctx context.Context, path string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[path]
	return ok, nil
}

// Close implements Storage.Close
func (m *MockStorage) Close() error {
	return nil
}

// BucketExists always reports the in-memory bucket as present
func (m *MockStorage) BucketExists(ctx context.Context) (bool, error) {
	return true, nil
}

// GetData returns the raw data for a path (for testing)
func (m *MockStorage) GetData(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	return data, ok
}

// SetData sets the raw data for a path (for testing)
func (m *MockStorage) SetData(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	m.updated[path] = time.Now()
}

// Count returns the number of objects (for testing)
func (m *MockStorage) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ListCalls returns how many list operations reached the mock
func (m *MockStorage) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// DownloadCalls returns how many downloads reached the mock
func (m *MockStorage) DownloadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downloadCalls
}

// UploadCalls returns how many uploads reached the mock
func (m *MockStorage) UploadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploadCalls
}

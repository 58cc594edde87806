package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	limitedio "github.com/charliek/comfygcs/internal/io"
	"github.com/charliek/comfygcs/internal/storage"
	"github.com/rs/zerolog"
)

// Options tunes a Client
type Options struct {
	// OutputDir is the remote folder saved images go under
	OutputDir string
	// MaxDownloadSize caps a single download; zero means no limit
	MaxDownloadSize int64
	// Logger receives operational logs; disabled when zero
	Logger *zerolog.Logger
}

// Client is the storage facade shared by the load and save nodes. It is bound
// to one bucket for its whole lifetime.
type Client struct {
	store     storage.Storage
	params    domain.Params
	outputDir string
	maxSize   int64
	log       zerolog.Logger

	mu      sync.Mutex
	monitor *monitorState
}

// New binds a client to an opened backend
func New(store storage.Storage, params domain.Params, opts Options) *Client {
	if opts.OutputDir == "" {
		opts.OutputDir = constants.OutputRoot
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("bucket", params.Bucket).Logger()
	}

	return &Client{
		store:     store,
		params:    params,
		outputDir: opts.OutputDir,
		maxSize:   opts.MaxDownloadSize,
		log:       log,
	}
}

// Params returns the session parameters the client is bound to
func (c *Client) Params() domain.Params {
	return c.params
}

// Storage returns the underlying backend
func (c *Client) Storage() storage.Storage {
	return c.store
}

// ListFiles returns every object name under prefix in provider order. An empty
// prefix lists the whole bucket; no matches yields an empty slice.
func (c *Client) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	names, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}

	c.log.Debug().Str("prefix", prefix).Int("count", len(names)).Msg("listed objects")
	return names, nil
}

// DownloadFile fetches remotePath into localPath, replacing any existing file.
// The parent directory is created as needed.
func (c *Client) DownloadFile(ctx context.Context, remotePath, localPath string) (string, error) {
	rc, err := c.store.Download(ctx, remotePath)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return "", domain.Errorf(domain.ErrIO, "failed to create %s: %v", filepath.Dir(localPath), err)
	}

	// Write beside the target and rename so a failed download never leaves a
	// truncated file at localPath
	partPath := localPath + ".part"
	f, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", domain.Errorf(domain.ErrIO, "failed to create %s: %v", partPath, err)
	}

	n, copyErr := limitedio.CopyLimited(f, rc, c.maxSize, remotePath)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(partPath)
		if copyErr != nil {
			return "", wrapLocal(copyErr, "failed to write %s", localPath)
		}
		return "", domain.Errorf(domain.ErrIO, "failed to close %s: %v", partPath, closeErr)
	}

	if err := os.Rename(partPath, localPath); err != nil {
		os.Remove(partPath)
		return "", domain.Errorf(domain.ErrIO, "failed to move download into %s: %v", localPath, err)
	}

	c.log.Info().Str("object", remotePath).Str("path", localPath).Int64("bytes", n).Msg("downloaded")
	return localPath, nil
}

// UploadFile pushes localPath to remotePath, creating or overwriting it
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", domain.Errorf(domain.ErrIO, "failed to open %s: %v", localPath, err)
	}
	defer f.Close()

	if err := c.store.Upload(ctx, remotePath, f); err != nil {
		return "", err
	}

	c.log.Info().Str("path", localPath).Str("object", remotePath).Msg("uploaded")
	return remotePath, nil
}

// Exists reports whether remotePath is already in the bucket
func (c *Client) Exists(ctx context.Context, remotePath string) (bool, error) {
	return c.store.Exists(ctx, remotePath)
}

// GetSavePath plans where a batch of images is saved. It does no I/O: the
// counter always starts at 0 and the subfolder is always empty.
func (c *Client) GetSavePath(filenamePrefix string, width, height int) domain.SavePathPlan {
	return domain.SavePathPlan{
		Folder:    c.outputDir,
		Filename:  fmt.Sprintf("%s_%dx%d", filenamePrefix, width, height),
		Counter:   0,
		Subfolder: "",
		Prefix:    filenamePrefix,
	}
}

// Close releases the backend
func (c *Client) Close() error {
	return c.store.Close()
}

// wrapLocal tags copy errors as ErrIO, leaving size-limit and cancellation errors alone
func wrapLocal(err error, format string, args ...interface{}) error {
	if errors.Is(err, domain.ErrFileSizeTooLarge) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIO, fmt.Sprintf(format, args...), err)
}

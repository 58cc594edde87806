package client

import (
	"context"

	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/storage"
)

// OpenerFromConfig returns an Opener for the backend cfg selects. Bucket,
// project and credentials come from the request; everything else from cfg.
func OpenerFromConfig(cfg *config.Config) Opener {
	return func(ctx context.Context, params domain.Params) (storage.Storage, error) {
		var (
			store storage.Storage
			err   error
		)

		switch cfg.Backend {
		case constants.BackendMinio:
			store, err = storage.NewMinioStorage(storage.MinioOptions{
				Endpoint:        cfg.Minio.Endpoint,
				AccessKeyID:     cfg.Minio.AccessKeyID,
				SecretAccessKey: cfg.Minio.SecretAccessKey,
				UseSSL:          cfg.Minio.UseSSL,
				Region:          cfg.Minio.Region,
				Bucket:          params.Bucket,
			})
		case constants.BackendGCS, "":
			opts := storage.GCSOptions{
				Bucket:          params.Bucket,
				Project:         params.Project,
				CredentialsFile: params.CredentialsPath,
			}
			// An explicit key file wins over inline credentials
			if opts.CredentialsFile == "" {
				opts.Credentials = cfg.GCSCredentials
			}
			store, err = storage.NewGCSStorage(ctx, opts)
		default:
			return nil, domain.Errorf(domain.ErrConfig, "unknown backend %q", cfg.Backend)
		}
		if err != nil {
			return nil, err
		}

		if cfg.MaxRetries > 0 {
			retryCfg := storage.DefaultRetryConfig()
			retryCfg.MaxRetries = cfg.MaxRetries
			store = storage.NewRetryingStorage(store, retryCfg)
		}
		return store, nil
	}
}

// NewProviderFromConfig wires a Provider whose defaults and backend come from cfg
func NewProviderFromConfig(cfg *config.Config, opts Options) *Provider {
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.OutputDir
	}
	return NewProvider(OpenerFromConfig(cfg), cfg.Params(), opts)
}

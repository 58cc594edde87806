package cli

import (
	"context"

	"github.com/charliek/comfygcs/internal/client"
	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/logger"
	"github.com/charliek/comfygcs/internal/nodes"
)

// Session holds the components one command run needs. All of them share a
// single storage provider, so the bucket is opened at most once.
type Session struct {
	Config   *config.Config
	Provider *client.Provider
	Loader   *nodes.Loader
	Saver    *nodes.Saver
}

// NewSession wires the provider and both nodes from cfg
func NewSession(ctx context.Context, cfg *config.Config) *Session {
	log := logger.FromContext(ctx)

	provider := client.NewProviderFromConfig(cfg, client.Options{
		OutputDir:       cfg.OutputDir,
		MaxDownloadSize: constants.MaxInputImageSize,
		Logger:          &log,
	})

	return &Session{
		Config:   cfg,
		Provider: provider,
		Loader:   nodes.NewLoader(provider, cfg.StagingDir, log),
		Saver:    nodes.NewSaver(provider, cfg.TempDir, log),
	}
}

// Client opens (or reuses) the session's storage client
func (s *Session) Client(ctx context.Context) (*client.Client, error) {
	return s.Provider.Get(ctx, domain.Params{})
}

// Close releases resources held by the Session
func (s *Session) Close() error {
	return s.Provider.Close()
}

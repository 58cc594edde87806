package client

import (
	"context"
	"sync"

	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/storage"
)

// Opener opens a storage backend bound to the given parameters
type Opener func(ctx context.Context, params domain.Params) (storage.Storage, error)

// Provider hands out the single storage session of a run. The first Get opens
// it; later calls get the same Client and are rejected with ErrConfigMismatch
// if they ask for a different bucket, project or credentials.
type Provider struct {
	open     Opener
	defaults domain.Params
	opts     Options

	mu     sync.Mutex
	client *Client
}

// NewProvider creates a provider. Fields left empty in a Get request fall back
// to defaults.
func NewProvider(open Opener, defaults domain.Params, opts Options) *Provider {
	return &Provider{
		open:     open,
		defaults: defaults,
		opts:     opts,
	}
}

// Get returns the shared client, opening it on first use
func (p *Provider) Get(ctx context.Context, params domain.Params) (*Client, error) {
	resolved := p.resolve(params)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		if bound := p.client.Params(); bound != resolved {
			return nil, domain.Errorf(domain.ErrConfigMismatch,
				"session bound to bucket %q (project %q), requested bucket %q (project %q)",
				bound.Bucket, bound.Project, resolved.Bucket, resolved.Project)
		}
		return p.client, nil
	}

	if resolved.Bucket == "" {
		return nil, domain.Errorf(domain.ErrConfig, "bucket is required")
	}

	store, err := p.open(ctx, resolved)
	if err != nil {
		return nil, err
	}

	p.client = New(store, resolved, p.opts)
	return p.client, nil
}

func (p *Provider) resolve(params domain.Params) domain.Params {
	if params.IsZero() {
		return p.defaults
	}
	if params.Bucket == "" {
		params.Bucket = p.defaults.Bucket
	}
	if params.Project == "" {
		params.Project = p.defaults.Project
	}
	if params.CredentialsPath == "" {
		params.CredentialsPath = p.defaults.CredentialsPath
	}
	return params
}

// Close releases the session if one was opened
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

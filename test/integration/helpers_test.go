//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/charliek/comfygcs/internal/client"
	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/stretchr/testify/require"
)

// requireEmulator skips unless a GCS emulator (e.g. fake-gcs-server) is reachable
func requireEmulator(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("STORAGE_EMULATOR_HOST not set")
	}
}

// createTestBucket creates a uniquely named bucket on the emulator
func createTestBucket(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := storage.NewClient(ctx)
	require.NoError(t, err)
	defer c.Close()

	bucket := fmt.Sprintf("comfygcs-it-%d", time.Now().UnixNano())
	require.NoError(t, c.Bucket(bucket).Create(ctx, "test-project", nil))
	return bucket
}

// newTestProvider opens sessions against the emulator through the normal config path
func newTestProvider(t *testing.T, bucket string) *client.Provider {
	t.Helper()

	cfg := &config.Config{
		Backend:   constants.BackendGCS,
		Bucket:    bucket,
		OutputDir: constants.OutputRoot,
	}
	require.NoError(t, cfg.Validate())

	p := client.NewProviderFromConfig(cfg, client.Options{})
	t.Cleanup(func() { p.Close() })
	return p
}

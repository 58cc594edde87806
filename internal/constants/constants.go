package constants

import (
	"os"
	"path/filepath"
)

const (
	// ConfigFileName is the default config file name
	ConfigFileName = "config.yaml"

	// AppDir is the directory name for comfygcs data under the user's home
	AppDir = ".comfygcs"

	// ConfigEnvVar is the environment variable to override config path
	ConfigEnvVar = "COMFYGCS_CONFIG"

	// NodeCategory is the category both nodes are registered under
	NodeCategory = "ComfyGCS"

	// OutputRoot is the remote folder saved images are written under
	OutputRoot = "output"

	// OutputType is the UI type tag reported for saved images
	OutputType = "output"

	// DefaultStagingDir is the local directory loaded images are downloaded into
	DefaultStagingDir = "input"

	// DefaultFilenamePrefix is the prefix used when a caller supplies none
	DefaultFilenamePrefix = "ComfyUI"

	// SchemaFilenamePrefix is the filename prefix default advertised in the node schema
	SchemaFilenamePrefix = "Image"

	// PNGCompressionLevel is the zlib level used for saved images
	PNGCompressionLevel = 4

	// MaskFallbackSize is the edge length of the zero mask returned for images without alpha
	MaskFallbackSize = 64

	// CounterWidth is the zero-padded width of the per-image counter in saved filenames
	CounterWidth = 5

	// MaxInputImageSize caps a single downloaded object (512 MB)
	MaxInputImageSize = 512 * 1024 * 1024

	// BytesPerKB is the number of bytes in a kilobyte
	BytesPerKB = 1024

	// TimestampFormat is how object times are shown in listings
	TimestampFormat = "2006-01-02 15:04:05"
)

// Backends
const (
	BackendGCS   = "gcs"
	BackendMinio = "minio"
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitNotConfigured  = 1
	ExitInvalidConfig  = 2
	ExitConfigMismatch = 3
	ExitNotFound       = 4
	ExitAuthFailed     = 5
	ExitUploadFailed   = 6
	ExitDownloadFailed = 7
	ExitIOError        = 8
	ExitStorageError   = 9
	ExitDecodeFailed   = 10
	ExitUserCancelled  = 11
	ExitInvalidArgs    = 12
	ExitEncodeFailed   = 13
	ExitUnknownError   = 99
)

// DefaultConfigDir returns the default configuration directory path
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, AppDir)
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), ConfigFileName)
}

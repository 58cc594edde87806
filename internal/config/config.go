package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Backend selects the object store: "gcs" (default) or "minio"
	Backend string `yaml:"backend,omitempty" envconfig:"COMFYGCS_BACKEND"`

	// Bucket is the bucket both nodes read from and write to
	Bucket string `yaml:"bucket" envconfig:"GCS_BUCKET"`

	// Project is the cloud project id
	Project string `yaml:"project,omitempty" envconfig:"GCS_PROJECT"`

	// CredentialsFile is a service account JSON file; ADC is used when empty
	CredentialsFile string `yaml:"credentials_file,omitempty" envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`

	// GCSCredentials is base64-encoded service account JSON
	GCSCredentials string `yaml:"gcs_credentials,omitempty" envconfig:"GCS_CREDENTIALS"`

	// InputPrefix is the default object prefix the loader lists
	InputPrefix string `yaml:"input_prefix,omitempty" envconfig:"GCS_INPUT_DIR"`

	// OutputDir is the remote folder saved images go under
	OutputDir string `yaml:"output_dir,omitempty" envconfig:"GCS_OUTPUT_DIR"`

	// StagingDir is the local directory downloads are written to
	StagingDir string `yaml:"staging_dir,omitempty" envconfig:"COMFYGCS_STAGING_DIR"`

	// TempDir holds encoded PNGs while they upload; the OS temp dir when empty
	TempDir string `yaml:"temp_dir,omitempty" envconfig:"COMFYGCS_TEMP_DIR"`

	// MaxRetries enables retries of transient storage errors when positive
	MaxRetries int `yaml:"max_retries,omitempty" envconfig:"COMFYGCS_MAX_RETRIES"`

	Log   LogConfig   `yaml:"log,omitempty"`
	Minio MinioConfig `yaml:"minio,omitempty"`

	// configPath is the path this config was loaded from (not serialized)
	configPath string `yaml:"-"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level,omitempty" envconfig:"COMFYGCS_LOG_LEVEL"`
	Format string `yaml:"format,omitempty" envconfig:"COMFYGCS_LOG_FORMAT"` // console or json
}

// MinioConfig configures the S3-compatible backend
type MinioConfig struct {
	Endpoint        string `yaml:"endpoint,omitempty" envconfig:"MINIO_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" envconfig:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" envconfig:"MINIO_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl,omitempty" envconfig:"MINIO_USE_SSL"`
	Region          string `yaml:"region,omitempty" envconfig:"MINIO_REGION"`
}

// Load reads configuration from the specified path, a .env file in the working
// directory, and the environment, in increasing order of precedence.
// A missing file is only an error when the path was given explicitly.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve is Load without validation, for callers that apply their own
// overrides (such as command-line flags) before calling Validate.
func Resolve(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	explicit := path != "" || os.Getenv(constants.ConfigEnvVar) != ""
	if path == "" {
		path = getConfigPath()
	}

	// A missing .env is normal
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, domain.Errorf(domain.ErrConfig, "failed to parse config: %v", err)
		}
		cfg.configPath = path
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return nil, domain.Errorf(domain.ErrNotConfigured, "config file not found at %s", path)
		}
	default:
		return nil, domain.Errorf(domain.ErrConfig, "failed to read config: %v", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, domain.Errorf(domain.ErrConfig, "failed to process environment variables: %v", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = constants.BackendGCS
	}
	if c.OutputDir == "" {
		c.OutputDir = constants.OutputRoot
	}
	if c.StagingDir == "" {
		c.StagingDir = constants.DefaultStagingDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Save writes the configuration to the specified path using atomic write
func (c *Config) Save(path string) error {
	if path == "" {
		path = getConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return domain.Errorf(domain.ErrConfig, "failed to create config directory: %v", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return domain.Errorf(domain.ErrConfig, "failed to marshal config: %v", err)
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return domain.Errorf(domain.ErrConfig, "failed to write config: %v", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return domain.Errorf(domain.ErrConfig, "failed to save config: %v", err)
	}

	c.configPath = path
	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return domain.Errorf(domain.ErrConfig, "bucket is required (set bucket in config or GCS_BUCKET)")
	}

	switch c.Backend {
	case constants.BackendGCS:
		if c.CredentialsFile != "" && c.GCSCredentials != "" {
			return domain.Errorf(domain.ErrConfig, "cannot set both credentials_file and gcs_credentials")
		}
	case constants.BackendMinio:
		if c.Minio.Endpoint == "" {
			return domain.Errorf(domain.ErrConfig, "minio.endpoint is required for the minio backend")
		}
	default:
		return domain.Errorf(domain.ErrConfig, "unknown backend %q", c.Backend)
	}

	if c.MaxRetries < 0 {
		return domain.Errorf(domain.ErrConfig, "max_retries cannot be negative")
	}

	return nil
}

// Params returns the session parameters this config describes
func (c *Config) Params() domain.Params {
	return domain.Params{
		Bucket:          c.Bucket,
		Project:         c.Project,
		CredentialsPath: c.CredentialsFile,
	}
}

// Path returns the path this config was loaded from
func (c *Config) Path() string {
	return c.configPath
}

// getConfigPath returns the config path from env var or default
func getConfigPath() string {
	if path := os.Getenv(constants.ConfigEnvVar); path != "" {
		return path
	}
	return constants.DefaultConfigPath()
}

// Exists checks if a config file exists at the default or specified path
func Exists(path string) bool {
	if path == "" {
		path = getConfigPath()
	}
	_, err := os.Stat(path)
	return err == nil
}

// ConfigPath returns the path that would be used for config
func ConfigPath(override string) string {
	if override != "" {
		return override
	}
	return getConfigPath()
}

// String returns a string representation (for debugging, hides sensitive data)
func (c *Config) String() string {
	creds := ""
	if c.GCSCredentials != "" {
		creds = "[set]"
	}
	secret := ""
	if c.Minio.SecretAccessKey != "" {
		secret = "[set]"
	}
	return fmt.Sprintf("Config{Backend: %q, Bucket: %q, Project: %q, CredentialsFile: %q, GCSCredentials: %s, MinioEndpoint: %q, MinioSecret: %s}",
		c.Backend, c.Bucket, c.Project, c.CredentialsFile, creds, c.Minio.Endpoint, secret)
}

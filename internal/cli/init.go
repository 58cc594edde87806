package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/ui"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize comfygcs configuration",
	Long: `Initialize comfygcs configuration interactively.

This command creates the configuration file at ~/.comfygcs/config.yaml
with your bucket, project and credentials settings.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	// Init requires interactive mode
	if !ui.CanPrompt() {
		return fmt.Errorf("init requires interactive mode")
	}

	prompt := ui.NewPrompt()
	out := ui.NewOutput(verbose, jsonOut)

	configPath := config.ConfigPath(cfgFile)

	// Check if config already exists
	if config.Exists(configPath) {
		confirmed, err := prompt.Confirm("Configuration already exists. Overwrite?", false)
		if err != nil {
			return err
		}
		if !confirmed {
			out.Println("Aborted.")
			return nil
		}
	}

	out.Println("Setting up comfygcs configuration...")
	out.Println()

	backend, err := prompt.Select("Storage backend:", []string{
		"Google Cloud Storage",
		"S3-compatible (MinIO)",
	})
	if err != nil {
		return err
	}

	bucket, err := prompt.String("Bucket name", os.Getenv("GCS_BUCKET"))
	if err != nil {
		return err
	}
	if bucket == "" {
		return fmt.Errorf("bucket name is required")
	}

	inputPrefix, err := prompt.String("Input prefix (objects to load)", "")
	if err != nil {
		return err
	}

	outputDir, err := prompt.String("Output folder", constants.OutputRoot)
	if err != nil {
		return err
	}

	newCfg := &config.Config{
		Bucket:      bucket,
		InputPrefix: inputPrefix,
		OutputDir:   outputDir,
	}

	if backend == 1 {
		newCfg.Backend = constants.BackendMinio
		if err := promptMinio(prompt, newCfg); err != nil {
			return err
		}
	} else {
		newCfg.Backend = constants.BackendGCS
		if err := promptGCS(prompt, out, newCfg); err != nil {
			return err
		}
	}

	if err := newCfg.Validate(); err != nil {
		return err
	}

	// Save config
	if err := newCfg.Save(configPath); err != nil {
		return err
	}

	out.Println()
	out.Success("Configuration saved to %s", configPath)
	out.Println()
	out.Println("Next steps:")
	out.Println("  1. Run 'comfygcs doctor' to verify your setup")
	out.Println("  2. Run 'comfygcs list' to see loadable images")
	out.Println("  3. Run 'comfygcs save <image>' to upload an image")

	return nil
}

func promptGCS(prompt *ui.Prompt, out *ui.Output, c *config.Config) error {
	project, err := prompt.String("GCP project id (optional)", os.Getenv("GCS_PROJECT"))
	if err != nil {
		return err
	}
	c.Project = project

	out.Println()
	choice, err := prompt.Select("GCS Authentication:", []string{
		"Use Application Default Credentials (gcloud auth)",
		"Reference a service account JSON file",
		"Embed a service account JSON file in the config",
	})
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		credPath, err := prompt.String("Path to service account JSON", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		if err != nil {
			return err
		}
		c.CredentialsFile = credPath
	case 2:
		credPath, err := prompt.String("Path to service account JSON", "")
		if err != nil {
			return err
		}
		if credPath != "" {
			encoded, err := encodeServiceAccountFile(credPath)
			if err != nil {
				return fmt.Errorf("failed to encode service account file: %w", err)
			}
			c.GCSCredentials = encoded
		}
	}
	return nil
}

func promptMinio(prompt *ui.Prompt, c *config.Config) error {
	endpoint, err := prompt.String("Endpoint (host:port)", "localhost:9000")
	if err != nil {
		return err
	}
	accessKey, err := prompt.String("Access key id", "")
	if err != nil {
		return err
	}
	secret, err := prompt.Password("Secret access key")
	if err != nil {
		return err
	}
	useSSL, err := prompt.Confirm("Use TLS?", false)
	if err != nil {
		return err
	}

	c.Minio = config.MinioConfig{
		Endpoint:        endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secret,
		UseSSL:          useSSL,
	}
	return nil
}

// encodeServiceAccountFile reads a service account key and returns it base64-encoded
func encodeServiceAccountFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("%s is not a JSON file", path)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

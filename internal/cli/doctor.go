package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/constants"
	"github.com/charliek/comfygcs/internal/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify configuration and connectivity",
	Long: `Verify that comfygcs is properly configured.

This command checks:
- Configuration resolves and is valid
- The bucket exists and objects can be listed
- The staging and temp directories are writable`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	out := GetOutput()
	allOK := true

	out.Println("Checking comfygcs configuration...")
	out.Println()

	// Check config file
	configPath := config.ConfigPath(cfgFile)
	out.Printf("Config file (%s): ", configPath)
	if cfg.Path() == "" {
		out.Println("NOT FOUND (using environment)")
	} else {
		out.Println("OK")
	}

	out.Printf("Configuration: ")
	if err := cfg.Validate(); err != nil {
		out.Println("INVALID")
		out.Printf("  Error: %v\n", err)
		out.Println("  Run 'comfygcs init' or set GCS_BUCKET")
		return err
	}
	out.Printf("OK (backend %s, bucket %s)\n", cfg.Backend, cfg.Bucket)
	if cfg.Backend == constants.BackendGCS && cfg.Project == "" {
		out.Warn("no project set; the credentials' default project is used")
	}

	// Check bucket connectivity
	session := NewSession(ctx, cfg)
	defer session.Close()

	out.Printf("Bucket access: ")
	c, err := session.Client(ctx)
	if err != nil {
		out.Println("FAILED")
		out.Printf("  Error: %v\n", err)
		allOK = false
	} else {
		if checker, ok := c.Storage().(storage.BucketChecker); ok {
			exists, err := checker.BucketExists(ctx)
			switch {
			case err != nil:
				out.Println("FAILED")
				out.Printf("  Error: %v\n", err)
				allOK = false
			case !exists:
				out.Println("MISSING")
				out.Printf("  Bucket %s does not exist\n", cfg.Bucket)
				allOK = false
			default:
				out.Println("OK")
			}
		} else {
			out.Println("SKIPPED")
		}

		out.Printf("List objects: ")
		names, err := c.ListFiles(ctx, cfg.InputPrefix)
		if err != nil {
			out.Println("FAILED")
			out.Printf("  Error: %v\n", err)
			allOK = false
		} else {
			out.Printf("OK (%d under %q)\n", len(names), cfg.InputPrefix)
		}
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	for _, dir := range []struct{ label, path string }{
		{"Staging dir", cfg.StagingDir},
		{"Temp dir", tempDir},
	} {
		out.Printf("%s (%s): ", dir.label, dir.path)
		if err := checkWritable(dir.path); err != nil {
			out.Println("NOT WRITABLE")
			out.Printf("  Error: %v\n", err)
			allOK = false
		} else {
			out.Println("OK")
		}
	}

	out.Println()
	if allOK {
		out.Success("All checks passed!")
	} else {
		return fmt.Errorf("some checks failed")
	}

	return nil
}

// checkWritable creates dir if needed and round-trips a probe file
func checkWritable(dir string) error {
	if dir == "" {
		dir = constants.DefaultStagingDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".comfygcs-"+uuid.NewString())
	if err := os.WriteFile(probe, nil, 0600); err != nil {
		return err
	}
	return os.Remove(probe)
}

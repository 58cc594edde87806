package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charliek/comfygcs/internal/config"
	"github.com/charliek/comfygcs/internal/domain"
	"github.com/charliek/comfygcs/internal/logger"
	"github.com/charliek/comfygcs/internal/ui"
	"github.com/charliek/comfygcs/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	// DefaultOperationTimeout is the default timeout for operations (5 minutes)
	DefaultOperationTimeout = 5 * time.Minute
)

var (
	// Global flags
	cfgFile        string
	verbose        bool
	jsonOut        bool
	nonInteractive bool
	bucketFlag     string
	projectFlag    string
	credsFlag      string

	// Shared state
	cfg    *config.Config
	output *ui.Output
	appLog = zerolog.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "comfygcs",
	Short: "Load and save workflow images in a cloud storage bucket",
	Long: `comfygcs runs the LoadImageGCS and SaveImageGCS nodes from the command line.

Images are loaded from a Google Cloud Storage bucket (or any S3-compatible
store) into image and mask tensors, and image batches are saved back as PNG
objects under the output folder.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize output handler
		output = ui.NewOutput(verbose, jsonOut)

		// Set non-interactive mode
		ui.SetNonInteractive(nonInteractive)

		// Skip config loading for commands that don't need it
		if !needsConfig(cmd) {
			return nil
		}

		var err error
		cfg, err = config.Resolve(cfgFile)
		if err != nil {
			return err
		}
		applyFlagOverrides(cfg)

		appLog = newLogger(cfg)

		if !needsValidConfig(cmd) {
			return nil
		}
		return cfg.Validate()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// needsConfig returns true if the command requires configuration
func needsConfig(cmd *cobra.Command) bool {
	// Commands that don't need config
	noConfigCmds := map[string]bool{
		"init":       true,
		"help":       true,
		"completion": true,
		"version":    true,
	}

	return !noConfigCmds[cmd.Name()]
}

// needsValidConfig returns true if the command talks to the bucket. The
// others only read defaults or report on the config themselves.
func needsValidConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "nodes", "doctor":
		return false
	}
	return true
}

func applyFlagOverrides(c *config.Config) {
	if bucketFlag != "" {
		c.Bucket = bucketFlag
	}
	if projectFlag != "" {
		c.Project = projectFlag
	}
	if credsFlag != "" {
		c.CredentialsFile = credsFlag
		c.GCSCredentials = ""
	}
}

func newLogger(c *config.Config) zerolog.Logger {
	level := c.Log.Level
	if verbose {
		level = "debug"
	}
	return logger.New(level, c.Log.Format, os.Stderr)
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		// Print error if output is available
		if output != nil {
			output.Error("%v", err)
		} else {
			// Fallback if output isn't initialized
			ui.NewOutput(false, false).Error("%v", err)
		}

		// Return exit code error
		return domain.WrapWithExitCode(err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.comfygcs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "disable interactive prompts (for CI/CD)")
	rootCmd.PersistentFlags().StringVar(&bucketFlag, "bucket", "", "override the bucket")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "", "override the project id")
	rootCmd.PersistentFlags().StringVar(&credsFlag, "credentials", "", "service account JSON file (default: application default credentials)")

	// Set version template
	rootCmd.SetVersionTemplate("comfygcs {{.Version}}\n")

	// Add commands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetOutput returns the output handler (for use by subcommands)
func GetOutput() *ui.Output {
	return output
}

// signalContext returns a context that is cancelled on SIGINT, SIGTERM, or
// timeout. It carries the command logger.
func signalContext() (context.Context, context.CancelFunc) {
	// Create context with timeout
	ctx, timeoutCancel := context.WithTimeout(context.Background(), DefaultOperationTimeout)

	// Create cancellable context for signal handling
	ctx, signalCancel := context.WithCancel(ctx)
	ctx = logger.WithContext(ctx, appLog)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-c:
			signalCancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
		// Drain any pending signal to prevent goroutine leak
		select {
		case <-c:
		default:
		}
	}()

	// Return a combined cancel function
	return ctx, func() {
		signalCancel()
		timeoutCancel()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := GetOutput()
		if out.IsJSON() {
			return out.JSON(map[string]string{
				"version":    version.Version,
				"git_commit": version.GitCommit,
				"build_date": version.BuildDate,
			})
		}
		out.Println("comfygcs " + version.Full())
		return nil
	},
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Valtis/videosite/internal/mediactl/client"
	"github.com/Valtis/videosite/internal/mediactl/config"
	"github.com/Valtis/videosite/internal/mediactl/output"
	"github.com/Valtis/videosite/internal/mediactl/version"
	"github.com/spf13/cobra"
)

// ErrNotAuthenticated is returned when authentication is required but not configured
var ErrNotAuthenticated = errors.New("not authenticated")

var (
	jsonOutput bool
	quietMode  bool
	cfg        *config.Config
	apiClient  client.ClientInterface
	printer    *output.Printer

	// rootCtx is the root context that is cancelled on interrupt signals
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "mediactl",
	Short: "mediactl - upload, watch, and play video resources",
	Long: `mediactl is the command-line interface for the video ingestion and
streaming pipeline.

Upload source video, watch it move through scanning, probing and transcoding,
and play back the resulting HLS stream from the terminal.

Get started:
  mediactl config set api_key <token>  # Authenticate with an API key
  mediactl upload clip.mp4              # Upload a file
  mediactl list                         # List your resources
  mediactl status <resource-id> --wait  # Wait for processing to finish
  mediactl play <resource-id>           # Print the playable stream URL`,
	Version: version.Full(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up signal handling for graceful cancellation
		rootCtx, rootCancel = context.WithCancel(context.Background())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			if printer != nil && !quietMode {
				printer.Warn("\nReceived %s, cancelling...", sig)
			}
			rootCancel()
		}()

		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		printer = output.New(
			output.WithJSON(jsonOutput),
			output.WithQuiet(quietMode),
		)

		apiClient = client.New(cfg.BaseURL, cfg.APIKey)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON (for scripting)")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Suppress non-error output")

	rootCmd.SetVersionTemplate("mediactl version {{.Version}}\n")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(configCmd)
}

func requireAuth() error {
	if !cfg.IsAuthenticated() {
		return fmt.Errorf("%w: run 'mediactl config set api_key <token>' first", ErrNotAuthenticated)
	}
	return nil
}

// GetContext returns the root context for the CLI command.
// This context is cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

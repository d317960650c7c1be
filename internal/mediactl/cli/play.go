package cli

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [resource-id]",
	Short: "Print or open the HLS playback URL for a resource",
	Long: `Print the master playlist URL for a processed resource, or open it in
the default browser/player with --open.

Examples:
  mediactl play abc123
  mediactl play abc123 --open`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

var playOpen bool

func init() {
	playCmd.Flags().BoolVar(&playOpen, "open", false, "Open the playlist URL in the default browser")
}

func runPlay(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	resourceID := args[0]

	ctx := GetContext()
	meta, err := apiClient.GetMetadata(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("failed to get resource: %w", err)
	}
	if meta.Status != "processed" {
		return fmt.Errorf("resource %s is not ready to play (status: %s)", resourceID, meta.Status)
	}

	url := apiClient.MasterPlaylistURL(resourceID)

	if jsonOutput {
		return printer.JSON(map[string]string{"url": url})
	}

	if playOpen {
		if err := browser.OpenURL(url); err != nil {
			printer.Warn("Failed to open browser: %v", err)
		}
	}

	printer.Println(url)
	return nil
}

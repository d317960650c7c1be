package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Valtis/videosite/internal/mediactl/client"
	"github.com/Valtis/videosite/internal/mediactl/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [resource-id]",
	Short: "Check resource processing status",
	Long: `Check the scan/probe/transcode status of a resource.

Examples:
  mediactl status abc123           # Check resource status
  mediactl status abc123 --wait    # Watch until processing finishes`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var statusWatch bool

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "wait", "w", false, "Wait until processing finishes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	ctx := GetContext()
	resourceID := args[0]

	if statusWatch {
		return watchResourceStatus(ctx, resourceID)
	}

	meta, err := apiClient.GetMetadata(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("failed to get resource status: %w", err)
	}

	if jsonOutput {
		return printer.JSON(meta)
	}
	return renderMetadata(meta)
}

func watchResourceStatus(ctx context.Context, resourceID string) error {
	spinner := output.NewSpinner(fmt.Sprintf("Waiting for %s...", resourceID), quietMode || jsonOutput)

	meta, err := apiClient.WaitForResource(ctx, resourceID, 2*time.Second, cfg.GetTimeout("status_watch"))
	spinner.Finish()
	if err != nil {
		return fmt.Errorf("failed waiting for resource: %w", err)
	}

	if jsonOutput {
		return printer.JSON(meta)
	}

	if meta.Status == "failed" {
		printer.Error("Resource %s failed", resourceID)
		return nil
	}

	printer.Success("Resource %s finished processing", resourceID)
	return renderMetadata(meta)
}

func renderMetadata(meta *client.ResourceMetadata) error {
	printer.Section("Resource Status")
	printer.KeyValue("ID", meta.ID)
	printer.KeyValue("Name", meta.Name)
	printer.KeyValue("Status", meta.Status)

	if meta.Video != nil {
		printer.Section("Video")
		printer.KeyValue("Resolution", fmt.Sprintf("%dx%d", meta.Video.Width, meta.Video.Height))
		printer.KeyValue("Duration", fmt.Sprintf("%.1fs", meta.Video.DurationSeconds))
		printer.KeyValue("Bit rate", fmt.Sprintf("%d bps", meta.Video.BitRate))
		printer.KeyValue("Frame rate", fmt.Sprintf("%.2f fps", meta.Video.FrameRate))
	}

	return nil
}

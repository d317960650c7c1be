package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/Valtis/videosite/internal/mediactl/output"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a video file",
	Long: `Upload a video file for scanning, probing, and adaptive transcoding.

Examples:
  mediactl upload clip.mp4
  mediactl upload clip.mp4 --wait    # Wait for processing to complete`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var uploadWait bool

func init() {
	uploadCmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "Wait for processing to complete")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	filePath := args[0]
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file not found: %s", filePath)
	}

	ctx := GetContext()
	bar := output.NewByteProgress(info.Size(), "Uploading", quietMode || jsonOutput)

	var sent int64
	resourceID, err := apiClient.UploadLargeFile(ctx, filePath, func(uploaded, total int64) {
		if delta := uploaded - sent; delta > 0 {
			_, _ = bar.Write(make([]byte, delta))
			sent = uploaded
		}
	})
	bar.Finish()
	if err != nil {
		printer.ResourceFailed(filePath, err)
		return err
	}

	if uploadWait {
		spinner := output.NewSpinner("Waiting for processing...", quietMode || jsonOutput)
		meta, waitErr := apiClient.WaitForResource(ctx, resourceID, 2*time.Second, cfg.GetTimeout("upload"))
		spinner.Finish()
		if waitErr != nil {
			printer.Warn("Processing status unknown: %v", waitErr)
		} else if meta.Status == "failed" {
			printer.Warn("Processing failed")
		} else if jsonOutput {
			return printer.JSON(meta)
		} else {
			printer.Success("Resource %s finished processing", resourceID)
			return renderMetadata(meta)
		}
	}

	if jsonOutput {
		return printer.JSON(map[string]string{"resource_id": resourceID})
	}

	printer.ResourceUploaded(filePath, resourceID)
	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/Valtis/videosite/internal/mediactl/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List uploaded resources",
	Long: `List resources in your account.

Examples:
  mediactl list
  mediactl list --json | jq '.resources[].id'`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	ctx := GetContext()
	resp, err := apiClient.ListResources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list resources: %w", err)
	}

	if jsonOutput {
		return printer.JSON(resp)
	}

	if len(resp.Resources) == 0 {
		printer.Info("No resources found")
		return nil
	}

	table := output.NewTable([]string{"ID", "Name", "Type", "Status", "Public", "Created"}, quietMode)

	for _, r := range resp.Resources {
		table.Append([]string{
			truncate(r.ID, 11),
			truncate(r.Name, 30),
			r.Type,
			r.Status,
			fmt.Sprintf("%v", r.IsPublic),
			formatTime(r.CreatedAt),
		})
	}

	table.Render()

	if !quietMode {
		printer.Println()
		printer.Printf("%d resources\n", len(resp.Resources))

		if quota, err := apiClient.Quota(ctx); err == nil {
			printer.Printf("Quota used: %d / %d bytes\n", quota.UsedQuota, quota.TotalQuota)
		}
	}

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

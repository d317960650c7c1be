package cli

import (
	"fmt"

	"github.com/Valtis/videosite/internal/mediactl/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and manage mediactl CLI configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Available keys:
  api_key   API key used to authenticate uploads and reads
  base_url  API base URL
  parallel  Parallel-uploads setting (1-20), saved to the config file;
            upload sends chunks one at a time and does not read it

Examples:
  mediactl config set api_key tok_abc123
  mediactl config set base_url https://videosite.example
  mediactl config set parallel 8`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if jsonOutput {
		return printer.JSON(map[string]interface{}{
			"base_url":      cfg.BaseURL,
			"authenticated": cfg.IsAuthenticated(),
			"parallel":      cfg.Parallel,
		})
	}

	printer.Section("Configuration")
	printer.KeyValue("Base URL", cfg.BaseURL)
	printer.KeyValue("Authenticated", fmt.Sprintf("%v", cfg.IsAuthenticated()))
	printer.KeyValue("Parallel", fmt.Sprintf("%d", cfg.Parallel))

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	switch key {
	case "api_key":
		if err := cfg.SetAPIKey(value); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		printer.Success("Set api_key")
		return nil
	case "base_url":
		cfg.BaseURL = value
	case "parallel":
		var p int
		if _, err := fmt.Sscanf(value, "%d", &p); err != nil {
			return fmt.Errorf("invalid parallel value: %s", value)
		}
		if p < 1 || p > 20 {
			return fmt.Errorf("parallel must be between 1 and 20")
		}
		cfg.Parallel = p
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	printer.Success("Set %s = %s", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printer.JSON(map[string]string{"path": path})
	}

	printer.Println(path)
	return nil
}

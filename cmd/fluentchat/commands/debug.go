package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abxba0/fluentchat/internal/config"
	"github.com/abxba0/fluentchat/internal/logging"
)

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Debug utilities",
		Long:  `Debug utilities for troubleshooting fluentchat configuration and setup.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Show current configuration (API keys masked)",
		RunE:  runDebugConfig,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "Show system paths",
		RunE:  runDebugPaths,
	})
	return cmd
}

func runDebugConfig(cmd *cobra.Command, args []string) error {
	_, appConfig, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config.Masked(appConfig), "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runDebugPaths(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(directory)
	if err != nil {
		return err
	}
	paths := config.GetPaths()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "fluentchat System Paths:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Config:         %s\n", paths.Config)
	fmt.Fprintf(out, "  Data:           %s\n", paths.Data)
	fmt.Fprintf(out, "  Cache:          %s\n", paths.Cache)
	fmt.Fprintf(out, "  State:          %s\n", paths.State)
	fmt.Fprintf(out, "  Logs:           %s\n", paths.LogDir())
	fmt.Fprintf(out, "  Safety policy:  %s\n", paths.PolicyPath())
	fmt.Fprintf(out, "  Global config:  %s\n", config.GlobalConfigPath())
	fmt.Fprintf(out, "  Project config: %s\n", config.ProjectConfigPath(workDir))
	if path := logging.GetLogFilePath(); path != "" {
		fmt.Fprintf(out, "  Current log:    %s\n", path)
	}
	return nil
}

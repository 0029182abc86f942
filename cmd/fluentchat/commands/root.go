// Package commands provides the CLI commands for fluentchat.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abxba0/fluentchat/internal/config"
	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	directory string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fluentchat",
		Short: "fluentchat - interactive AI chat in the terminal",
		Long: `fluentchat is an interactive chat client for OpenAI, Anthropic and ARK
models with conversation memory, input safety checks and provider failover.

Run 'fluentchat' or 'fluentchat chat' to start a session.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
		// Start a chat if no subcommand is given
		RunE: runChat,
	}

	cmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	cmd.PersistentFlags().StringVar(&directory, "directory", "", "Working directory")
	addChatFlags(cmd)

	cmd.SetVersionTemplate(fmt.Sprintf("fluentchat %s (%s)\n", Version, BuildTime))

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newProbeCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newGuardCmd())
	cmd.AddCommand(newDebugCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads .env and configures logging before any command runs.
// Logs go to a file unless --print-logs is set, so they never mix with the
// chat output.
func setup(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(directory)
	if err != nil {
		return err
	}
	if err := godotenv.Load(filepath.Join(workDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(logLevel)
	if printLogs {
		cfg.Output = cmd.ErrOrStderr()
		cfg.Pretty = true
	} else {
		cfg.Output = io.Discard
		cfg.LogToFile = true
		cfg.LogDir = config.GetPaths().LogDir()
	}
	logging.Init(cfg)
	return nil
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	return os.Getwd()
}

// loadConfig loads and validates the configuration for the working directory.
func loadConfig() (string, *types.Config, error) {
	workDir, err := GetWorkDir(directory)
	if err != nil {
		return "", nil, err
	}
	appConfig, err := config.Load(workDir)
	if err != nil {
		return "", nil, err
	}
	return workDir, appConfig, nil
}

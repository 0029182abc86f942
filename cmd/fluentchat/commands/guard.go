package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abxba0/fluentchat/internal/config"
)

var guardPolicy string

func newGuardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guard <text...>",
		Short: "Run the input safety checks on text",
		Long: `Validate and sanitize text the way a chat session does, without
contacting any provider.

Examples:
  fluentchat guard "how to learn programming"
  fluentchat guard help
  fluentchat guard --policy ./policy.yaml "some text"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGuard,
	}
	cmd.Flags().StringVar(&guardPolicy, "policy", "", "Safety policy file (default: config directory)")
	return cmd
}

func runGuard(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(directory)
	if err != nil {
		return err
	}
	path := config.GetPaths().PolicyPath()
	if guardPolicy != "" {
		path = config.ResolvePath(guardPolicy, workDir)
	}
	g := loadGuard(path)

	input := strings.Join(args, " ")
	result := g.ValidateInput(input)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Input: %s\n", input)
	switch {
	case !result.Accepted:
		fmt.Fprintln(out, "Verdict: rejected")
		fmt.Fprintf(out, "Message: %s\n", result.ErrorMessage)
	case result.NeedsClarification:
		fmt.Fprintln(out, "Verdict: needs clarification")
		fmt.Fprintf(out, "Prompt: %s\n", result.ClarificationPrompt)
	default:
		fmt.Fprintln(out, "Verdict: accepted")
	}
	fmt.Fprintf(out, "Sanitized: %s\n", g.SanitizeInput(input))
	return nil
}

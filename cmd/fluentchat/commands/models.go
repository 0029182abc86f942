package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abxba0/fluentchat/internal/provider"
	"github.com/abxba0/fluentchat/pkg/types"
)

var modelsVerbose bool

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [provider]",
		Short: "List known models",
		Long: `List the built-in models of every configured provider.

Examples:
  fluentchat models              # List all models
  fluentchat models anthropic    # List only Anthropic models
  fluentchat models --verbose    # Show pricing information`,
		Args: cobra.MaximumNArgs(1),
		RunE: runModels,
	}
	cmd.Flags().BoolVarP(&modelsVerbose, "verbose", "v", false, "Include pricing")
	return cmd
}

func runModels(cmd *cobra.Command, args []string) error {
	_, appConfig, err := loadConfig()
	if err != nil {
		return err
	}

	var providerFilter string
	if len(args) > 0 {
		providerFilter = provider.NormalizeID(args[0])
	}

	ids := make([]string, 0, len(appConfig.Provider))
	for id := range appConfig.Provider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var models []types.Model
	for _, id := range ids {
		if providerFilter != "" && provider.NormalizeID(id) != providerFilter {
			continue
		}
		models = append(models, provider.KnownModels(id, appConfig.Provider[id])...)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if modelsVerbose {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tMAX OUTPUT\tINPUT PRICE\tOUTPUT PRICE\t")
	} else {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tMAX OUTPUT\t")
	}

	for _, model := range models {
		if modelsVerbose {
			fmt.Fprintf(w, "%s\t%s\t%dk\t%d\t$%.2f/1M\t$%.2f/1M\t\n",
				model.ProviderID,
				model.ID,
				model.ContextLength/1000,
				model.MaxOutputTokens,
				model.InputPrice,
				model.OutputPrice,
			)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%dk\t%d\t\n",
				model.ProviderID,
				model.ID,
				model.ContextLength/1000,
				model.MaxOutputTokens,
			)
		}
	}

	return w.Flush()
}

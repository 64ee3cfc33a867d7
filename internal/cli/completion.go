package cli

import (
	"os"
	"strings"

	"github.com/kilupskalvis/stq/internal/config"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/kilupskalvis/stq/internal/store"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for stq.

Patch names are completed for "stq show" and "stq edit".

  $ source <(stq completion bash)
  $ source <(stq completion zsh)
  $ stq completion fish | source`,
	ValidArgs:             []string{"bash", "zsh", "fish"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		switch args[0] {
		case "bash":
			err = rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			err = rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			err = rootCmd.GenFishCompletion(os.Stdout, true)
		}
		if err != nil {
			exitError("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	showCmd.ValidArgsFunction = completePatchNames
	editCmd.ValidArgsFunction = completePatchNames
}

// completePatchNames offers the patches of the selected stack. Failures
// produce no suggestions rather than an error.
func completePatchNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer st.Close()

	branch := branchName
	if branch == "" {
		if branch, err = core.CurrentStack(st, cfg.DefaultBranch); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	}
	entries, err := core.Series(st, branch)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name.String(), toComplete) {
			names = append(names, e.Name.String())
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

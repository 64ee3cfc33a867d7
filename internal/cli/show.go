package cli

import (
	"os"

	"github.com/kilupskalvis/stq/internal/core"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a patch's editable description",
	Long: `Print the description document of a patch: the Patch, Author and Date
headers, the message and, with --diff, the diff after a "---" line.

The output can be edited and fed back with "stq edit <name> -f <file>".`,
	Args: cobra.ExactArgs(1),
	Run:  runShow,
}

var showDiff bool

func init() {
	showCmd.Flags().BoolVar(&showDiff, "diff", false, "Include the patch diff")
}

func runShow(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	doc, err := core.DescribePatch(c.Config, c.Store, c.Branch, args[0], showDiff)
	if err != nil {
		exitError("%v", err)
	}
	if _, err := os.Stdout.Write(doc); err != nil {
		exitError("%v", err)
	}
}

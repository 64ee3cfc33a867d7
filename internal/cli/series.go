package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/kilupskalvis/stq/internal/stack"
	"github.com/spf13/cobra"
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List the patches of the stack",
	Long: `List all patches in stack order.

  > top applied patch
  + applied patch
  - unapplied patch
  ! hidden patch`,
	Run: runSeries,
}

var seriesDescriptions bool

func init() {
	seriesCmd.Flags().BoolVarP(&seriesDescriptions, "description", "d", false, "Show the patch subject")
}

func runSeries(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	entries, err := core.Series(c.Store, c.Branch)
	if err != nil {
		exitError("%v", err)
	}

	if len(entries) == 0 {
		fmt.Println("No patches")
		return
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	for _, e := range entries {
		switch {
		case e.Top:
			green.Printf("> %s", e.Name)
		case e.Status == stack.StatusApplied:
			fmt.Printf("+ %s", e.Name)
		case e.Status == stack.StatusUnapplied:
			yellow.Printf("- %s", e.Name)
		default:
			faint.Printf("! %s", e.Name)
		}
		if seriesDescriptions && e.Subject != "" {
			faint.Printf("  # %s", e.Subject)
		}
		fmt.Println()
	}
}

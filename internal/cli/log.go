package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show stack state history",
	Long:  `Display the recorded stack states of a branch, newest first.`,
	Run:   runLog,
}

var logLimit int

func init() {
	logCmd.Flags().IntVarP(&logLimit, "n", "n", 0, "Limit the number of states to show")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	entries, err := core.StateLogN(c.Store, c.Branch, logLimit)
	if err != nil {
		exitError("failed to read stack log: %v", err)
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	for i, e := range entries {
		yellow.Printf("state %s", e.Oid)
		if i == 0 {
			cyan.Print(" (current)")
		}
		fmt.Println()
		fmt.Printf("Date:   %s\n", e.CreatedAt.Local().Format("Mon Jan 2 15:04:05 2006"))
		fmt.Printf("Head:   %s\n", e.State.Head().Short())
		fmt.Printf("Patches: %d applied, %d unapplied, %d hidden\n\n",
			len(e.State.Applied()), len(e.State.Unapplied()), len(e.State.Hidden()))
	}
}

package cli

import (
	"fmt"

	"github.com/kilupskalvis/stq/internal/core"
	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch <branch>",
	Short: "Select the stack other commands act on",
	Args:  cobra.ExactArgs(1),
	Run:   runSwitch,
}

var switchCreate bool

func init() {
	switchCmd.Flags().BoolVarP(&switchCreate, "create", "c", false, "Create the stack if it does not exist")
}

func runSwitch(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	if err := core.SwitchStack(c.Store, args[0], switchCreate); err != nil {
		exitError("%v", err)
	}
	fmt.Printf("Switched to stack %s\n", args[0])
}

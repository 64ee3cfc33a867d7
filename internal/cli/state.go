package cli

import (
	"fmt"
	"os"

	"github.com/kilupskalvis/stq/internal/core"
	"github.com/kilupskalvis/stq/internal/stack"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current stack state document",
	Run:   runState,
}

func runState(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	state, _, err := core.LoadStack(c.Store, c.Branch)
	if err != nil {
		exitError("%v", err)
	}

	data, err := stack.ToStackJSON(state)
	if err != nil {
		exitError("%v", err)
	}
	os.Stdout.Write(data)
	fmt.Println()
}

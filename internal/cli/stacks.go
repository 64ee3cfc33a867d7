package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/spf13/cobra"
)

var stacksCmd = &cobra.Command{
	Use:   "stacks",
	Short: "List or delete branch stacks",
	Long: `List the branches that have a stack. The current stack is marked with *.

Examples:
  stq stacks                  List stacks
  stq stacks -d feature       Delete the stack of branch feature`,
	Run: runStacks,
}

var stacksDelete string

func init() {
	stacksCmd.Flags().StringVarP(&stacksDelete, "delete", "d", "", "Delete the stack of a branch")
}

func runStacks(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	if stacksDelete != "" {
		if err := core.DeleteStack(c.Store, stacksDelete, c.Branch); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Deleted stack %s\n", stacksDelete)
		return
	}

	branches, err := core.ListStacks(c.Store)
	if err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	for _, b := range branches {
		if b == c.Branch {
			green.Printf("* %s\n", b)
		} else {
			fmt.Printf("  %s\n", b)
		}
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new patch on top of the stack",
	Args:  cobra.ExactArgs(1),
	Run:   runNew,
}

var (
	newMessage  string
	newDiffFile string
)

func init() {
	newCmd.Flags().StringVarP(&newMessage, "message", "m", "", "Patch message")
	newCmd.Flags().StringVar(&newDiffFile, "diff", "", "File holding the patch diff")
}

func runNew(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	opts := core.NewPatchOptions{Name: args[0], Message: newMessage}
	if newDiffFile != "" {
		diff, err := os.ReadFile(newDiffFile)
		if err != nil {
			exitError("failed to read diff: %v", err)
		}
		opts.Diff = diff
	}

	res, err := core.NewPatch(c.Config, c.Store, c.Branch, opts)
	if err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("[%s] ", res.Commit.Short())
	fmt.Printf("Now at patch \"%s\"\n", res.Name)
}

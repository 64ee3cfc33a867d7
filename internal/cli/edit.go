package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Apply an edited patch description",
	Long: `Apply an edited patch description to a patch.

Examples:
  stq edit fix-typo --template         Write a template to .stq/scratch and print its path
  stq edit fix-typo -f desc.txt        Apply the edited description in desc.txt
  stq show fix-typo | sed ... | stq edit fix-typo -f -
  stq edit fix-typo -f desc.txt --dry-run   Show what would change`,
	Args: cobra.ExactArgs(1),
	Run:  runEdit,
}

var (
	editFile     string
	editTemplate bool
	editDiff     bool
	editDryRun   bool
)

func init() {
	editCmd.Flags().StringVarP(&editFile, "file", "f", "", "Edited description (- for stdin)")
	editCmd.Flags().BoolVar(&editTemplate, "template", false, "Write an edit template instead of applying one")
	editCmd.Flags().BoolVar(&editDiff, "diff", false, "Include the diff in the template")
	editCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Show the change without applying it")
	editCmd.MarkFlagsMutuallyExclusive("file", "template")
	editCmd.MarkFlagsOneRequired("file", "template")
}

func runEdit(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	name := args[0]

	if editTemplate {
		path, err := core.WriteTemplate(c.Config, c.Store, c.Branch, name, editDiff)
		if err != nil {
			exitError("%v", err)
		}
		fmt.Println(path)
		return
	}

	edited, err := readEdited(editFile)
	if err != nil {
		exitError("failed to read description: %v", err)
	}

	result, err := core.EditPatch(c.Store, c.Branch, name, edited, core.EditOptions{DryRun: editDryRun})
	if err != nil {
		exitError("%v", err)
	}

	if !result.Changed {
		fmt.Printf("Patch \"%s\" unchanged\n", result.OldName)
		removeScratch(c.Config.ScratchPath(), editFile)
		return
	}

	printDescriptionDiff(result.Diff)
	if editDryRun {
		fmt.Println("(dry run, nothing applied)")
		return
	}

	if result.Renamed {
		fmt.Printf("Renamed \"%s\" to \"%s\"\n", result.OldName, result.NewName)
	}
	color.New(color.FgGreen).Printf("[%s] ", result.NewCommit.Short())
	fmt.Printf("Updated patch \"%s\"\n", result.NewName)
	removeScratch(c.Config.ScratchPath(), editFile)
}

func readEdited(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// removeScratch deletes an applied template if it lives in the scratch directory.
func removeScratch(scratchDir, path string) {
	if path == "" || path == "-" {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil || filepath.Dir(abs) != scratchDir {
		return
	}
	_ = os.Remove(abs)
}

func printDescriptionDiff(diff string) {
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "--- a/") || strings.HasPrefix(line, "+++ b/"):
			fmt.Println(line)
		case strings.HasPrefix(line, "-"):
			red.Println(line)
		case strings.HasPrefix(line, "+"):
			green.Println(line)
		case strings.HasPrefix(line, "@@"):
			cyan.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

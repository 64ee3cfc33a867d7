package cli

import (
	"fmt"
	"os"

	"github.com/kilupskalvis/stq/internal/config"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/kilupskalvis/stq/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new stq repository",
	Long: `Initialize a new stq repository in the current directory.
This creates a .stq directory and an empty stack for the default branch.`,
	Run: runInit,
}

var (
	initAuthorName  string
	initAuthorEmail string
)

func init() {
	initCmd.Flags().StringVar(&initAuthorName, "author-name", os.Getenv(config.EnvAuthorName), "Default patch author name")
	initCmd.Flags().StringVar(&initAuthorEmail, "author-email", os.Getenv(config.EnvAuthorEmail), "Default patch author email")
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := config.FindRoot(); err == nil {
		exitError("stq repository already exists")
	}

	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	cfg, err := config.Initialize(cwd, initAuthorName, initAuthorEmail)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	branch := branchName
	if branch == "" {
		branch = cfg.DefaultBranch
	}
	state, _, err := core.InitStack(st, branch)
	if err != nil {
		exitError("%v", err)
	}
	if err := core.SwitchStack(st, branch, false); err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Initialized empty stq repository in %s/\n", config.STQDir)
	fmt.Printf("Stack %s based on %s\n", branch, state.Head().Short())
	if initAuthorName == "" || initAuthorEmail == "" {
		fmt.Printf("\nSet author_name and author_email in %s/%s before creating patches.\n", config.STQDir, config.ConfigFile)
	}
}

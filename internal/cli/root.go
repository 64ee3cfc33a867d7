// Package cli implements the command-line interface for stq.
package cli

import (
	"fmt"
	"os"

	"github.com/kilupskalvis/stq/internal/config"
	"github.com/kilupskalvis/stq/internal/core"
	"github.com/kilupskalvis/stq/internal/logging"
	"github.com/kilupskalvis/stq/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store
	Branch string
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
	_ = zap.L().Sync()
}

// initContext loads config, opens the store and resolves the branch
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	if logLevel == "" {
		setupLogger(cfg.LogLevel)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	branch := branchName
	if branch == "" {
		if branch, err = core.CurrentStack(st, cfg.DefaultBranch); err != nil {
			st.Close()
			exitError("%v", err)
		}
	}

	return &cmdContext{Config: cfg, Store: st, Branch: branch}
}

var (
	branchName string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "stq",
	Short: "Stacked patch queue",
	Long: `stq keeps a stack of named patches. Each patch carries an editable
description (name, author, message and an optional diff), and every change
to the stack is recorded as a new versioned stack state.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if level == "" {
			level = os.Getenv(config.EnvLogLevel)
		}
		setupLogger(level)
	},
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&branchName, "branch", "b", "", "Stack branch (defaults to the current stack)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(stacksCmd)
	rootCmd.AddCommand(switchCmd)
}

func setupLogger(level string) {
	logger, err := logging.New(level)
	if err != nil {
		exitError("%v", err)
	}
	zap.ReplaceGlobals(logger)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

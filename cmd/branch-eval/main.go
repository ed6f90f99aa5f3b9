package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hochfrequenz/branch-eval/internal/logging"
)

var (
	configPath string
	repoDir    string
	verbose    bool
	logger     = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:   "branch-eval",
		Short: "Branch evaluation harness - build and test every candidate branch",
		Long: `branch-eval checks out every branch of a remote, merges the baseline into it,
builds the project, runs a named test and records which candidates compiled
and passed in a CSV report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "working tree of the repository to evaluate")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every external command")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

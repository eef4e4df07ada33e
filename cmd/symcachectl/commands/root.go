// Package commands implements the CLI commands for the symcachectl
// read-only cache inspector.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cacheRoot    string
	noColor      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "symcachectl",
	Short: "symcachectl - read-only inspector for a symcache-server cache root",
	Long: `symcachectl walks a symcache-server cache root directly on disk and
reports what it finds: positive and negative entries, and host resource
stats for the machine it runs on. It never talks to a running server and
never mutates cache state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main() exactly once.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, exported for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheRoot, "cache-root", "", "cache root directory to inspect (required)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colorized status highlighting")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table or yaml")
	_ = rootCmd.MarkPersistentFlagRequired("cache-root")

	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

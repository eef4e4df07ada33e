package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the symcache-server version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("symcache-server %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}

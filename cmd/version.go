package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basinlabs/pgbridge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pgbridge %s (%s) commit %s built %s\n",
			version.Version(), version.Platform(), version.GetGitCommit(), version.GetBuildDate())
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}

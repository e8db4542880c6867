package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmdump/dmdump/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version number of dmdump",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dmdump v%s@%s %s %s\n", version.App(), version.GitCommit, version.Platform(), version.BuildDate)
	},
}

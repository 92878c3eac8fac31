package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brinehollow/placewall/internal/version"
)

// VersionCmd prints the build version banner.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

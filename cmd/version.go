package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and check for updates",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tanko %s\n", Version)
		fmt.Printf("  built:  %s\n", BuildTime)
		fmt.Printf("  target: %s/%s\n", runtime.GOOS, runtime.GOARCH)

		info, err := version.CheckForUpdate(Version)
		if err != nil || info == nil {
			return
		}
		if info.UpdateAvailable {
			fmt.Printf("\n%s is available: %s\n", info.LatestVersion, info.ReleaseURL)
		} else {
			fmt.Println("\nYou are up to date.")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the favorites folder into the library",
	Long: `Fetch the favorites folder and queue every missing chapter of every
favorited comic. With a dashboard running the sync happens there;
otherwise it runs here and waits for the downloads to finish.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		nudge, _ := cmd.Flags().GetBool("nudge")

		if port, ok := dashboardPort(); ok && !nudge {
			result, err := controlPost(port, "/sync")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Sync queued %v chapters in the running dashboard\n", result["created"])
			return
		}

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		ctx, stop := signalContext()
		defer stop()

		if nudge {
			if err := svc.SyncFavoriteFolder(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Nudge failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Favorites folder nudged to the front")
			return
		}

		stream := svc.StreamEvents()
		created, err := queueAndConsume(ctx, stream, func() (int, error) {
			return svc.UpdateDownloadedFavorites(ctx)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
		if created == 0 {
			fmt.Println("Library already has every favorited chapter")
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("nudge", false, "Re-sort the favorites folder without downloading")
}

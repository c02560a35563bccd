package cmd

import "github.com/spf13/cobra"

var cancelCmd = &cobra.Command{
	Use:   "cancel <chapterID>",
	Short: "Cancel a chapter download in the running dashboard",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()
		signalDashboard("cancel", "Cancelled", args[0])
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

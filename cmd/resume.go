package cmd

import "github.com/spf13/cobra"

var resumeCmd = &cobra.Command{
	Use:   "resume <chapterID>",
	Short: "Resume a paused chapter download in the running dashboard",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()
		signalDashboard("resume", "Resumed", args[0])
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

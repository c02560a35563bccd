package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <chapterID>",
	Short: "Pause a chapter download in the running dashboard",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()
		signalDashboard("pause", "Paused", args[0])
	},
}

// signalDashboard relays pause, resume or cancel to the running
// instance.
func signalDashboard(action, past, arg string) {
	chapterID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || chapterID <= 0 {
		fmt.Fprintf(os.Stderr, "Error: %q is not a chapter ID\n", arg)
		os.Exit(1)
	}

	port, ok := dashboardPort()
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: tanko is not running.")
		fmt.Fprintln(os.Stderr, "Start the dashboard first, then steer it from here.")
		os.Exit(1)
	}

	if _, err := controlPost(port, fmt.Sprintf("/%s?chapter=%d", action, chapterID)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s chapter %d\n", past, chapterID)
}

func init() {
	rootCmd.AddCommand(pauseCmd)
}

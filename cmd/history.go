package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show finished downloads",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			n, err := svc.ClearHistory()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Cleared %d history entries\n", n)
			return
		}

		if id, _ := cmd.Flags().GetString("remove"); id != "" {
			if err := svc.RemoveHistory(id); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Removed history entry %s\n", id)
			return
		}

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := svc.History(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(entries) == 0 {
			fmt.Println("No finished downloads yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tCOMIC\tCHAPTER\tPAGES\tSTATUS\tTOOK")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
				time.Unix(e.FinishedAt, 0).Format("2006-01-02 15:04"),
				e.ComicTitle, e.ChapterTitle,
				e.Pages, e.TotalPages,
				e.Status,
				(time.Duration(e.TimeTaken)*time.Millisecond).Round(time.Millisecond*10))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 30, "Number of entries to show")
	historyCmd.Flags().Bool("clear", false, "Delete the whole history")
	historyCmd.Flags().String("remove", "", "Delete one history entry by ID")
}

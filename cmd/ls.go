package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"l", "list"},
	Short:   "List the library",
	Long:    `List downloaded comics, newest first. With a dashboard running, also shows its live tasks.`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		comics, err := svc.DownloadedComics()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(comics) == 0 {
			fmt.Println("Library is empty. Download something with 'tanko get <comicID>'.")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCHAPTERS")
			for _, c := range comics {
				have := 0
				for _, ch := range c.Chapters {
					if ch.Downloaded {
						have++
					}
				}
				complete := ""
				if c.Downloaded {
					complete = " (complete)"
				}
				fmt.Fprintf(w, "%d\t%s\t%d/%d%s\n", c.ID, c.Title, have, len(c.Chapters), complete)
			}
			w.Flush()
		}

		// Live queue, when someone is home.
		port, ok := dashboardPort()
		if !ok {
			return
		}
		tasks, err := fetchRemoteTasks(port)
		if err != nil || len(tasks) == 0 {
			return
		}

		fmt.Printf("\nActive tasks in the running dashboard:\n")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHAPTER\tCOMIC\tTITLE\tSTATE\tPAGES")
		for _, t := range tasks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\n", t.ChapterID, t.ComicTitle, t.ChapterTitle, t.State, t.Completed, t.Total)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>...",
	Short: "Search the shelf",
	Long:  `Search the shelf by keyword. A bare comic ID resolves directly to that comic.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		page, _ := cmd.Flags().GetInt64("page")
		sortFlag, _ := cmd.Flags().GetString("sort")
		sort, err := parseSearchSort(sortFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		keyword := strings.Join(args, " ")
		result, err := svc.Search(context.Background(), keyword, page, sort)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}

		if result.Comic != nil {
			printComic(result.Comic)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR")
		for _, hit := range result.Page.Hits {
			fmt.Fprintf(w, "%d\t%s\t%s\n", hit.ID, hit.Title, hit.Author)
		}
		w.Flush()
		fmt.Printf("\nPage %d, %d total. Download with 'tanko get <ID>'.\n", result.Page.Page, result.Page.Total)
	},
}

func parseSearchSort(s string) (model.SearchSort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return model.SearchSortLatest, nil
	case "views":
		return model.SearchSortViews, nil
	case "likes":
		return model.SearchSortLikes, nil
	}
	return "", fmt.Errorf("unknown sort %q (want latest, views or likes)", s)
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int64("page", 1, "Result page to fetch")
	searchCmd.Flags().String("sort", "latest", "Result order: latest, views or likes")
}

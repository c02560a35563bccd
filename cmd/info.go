package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/model"
)

var infoCmd = &cobra.Command{
	Use:   "info <comicID>",
	Short: "Show a comic and its chapters",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		comicID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || comicID <= 0 {
			fmt.Fprintf(os.Stderr, "Error: %q is not a comic ID\n", args[0])
			os.Exit(1)
		}

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		comic, err := svc.Comic(context.Background(), comicID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printComic(comic)
	},
}

// printComic renders one comic with its chapter list.
func printComic(c *model.Comic) {
	fmt.Printf("%s (#%d)\n", c.Title, c.ID)
	if len(c.Authors) > 0 {
		fmt.Printf("by %s\n", strings.Join(c.Authors, ", "))
	}
	if len(c.Tags) > 0 {
		fmt.Printf("tags: %s\n", strings.Join(c.Tags, ", "))
	}

	downloaded := 0
	fmt.Printf("\n%d chapters:\n", len(c.Chapters))
	for _, ch := range c.Chapters {
		mark := " "
		if ch.Downloaded {
			mark = "*"
			downloaded++
		}
		fmt.Printf("  %s %3d  %s  (#%d)\n", mark, ch.Order, ch.Title, ch.ChapterID)
	}
	if downloaded > 0 {
		fmt.Printf("\n%d of %d chapters in the library (*)\n", downloaded, len(c.Chapters))
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

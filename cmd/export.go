package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <comicID>",
	Short: "Pack downloaded chapters into CBZ or PDF files",
	Long: `Pack downloaded chapters of a library comic into portable files.

Without --chapter every downloaded chapter of the comic is exported,
one file per chapter. Files land in the export directory (see
'tanko config get export_dir').`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		comicID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || comicID <= 0 {
			fmt.Fprintf(os.Stderr, "Error: %q is not a comic ID\n", args[0])
			os.Exit(1)
		}

		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		chapterID, _ := cmd.Flags().GetInt64("chapter")
		if chapterID > 0 {
			path, err := svc.ExportChapter(format, comicID, chapterID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Exported %s\n", path)
			return
		}

		paths, err := svc.ExportComic(format, comicID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, path := range paths {
			fmt.Printf("Exported %s\n", path)
		}
		fmt.Printf("%d chapters exported as %s\n", len(paths), format)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", "cbz", "Output format: cbz or pdf")
	exportCmd.Flags().Int64("chapter", 0, "Export a single chapter by ID")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/clipboard"
	"github.com/tanko-dl/tanko/internal/core"
)

var getCmd = &cobra.Command{
	Use:     "get [comicID|url]...",
	Aliases: []string{"dl"},
	Short:   "Download comics",
	Long: `Download every missing chapter of the given comics. Arguments are
comic IDs or shelf links; --clipboard takes the comic from the
clipboard instead.

With a dashboard running the chapters are queued into it. Otherwise the
download runs right here, printing progress until it finishes.`,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		useClipboard, _ := cmd.Flags().GetBool("clipboard")
		chapters, _ := cmd.Flags().GetInt64Slice("chapter")

		if useClipboard {
			comicID, ok := clipboard.ReadComicID()
			if !ok {
				fmt.Fprintln(os.Stderr, "Error: no comic ID or shelf link on the clipboard")
				os.Exit(1)
			}
			args = append(args, fmt.Sprintf("%d", comicID))
		}
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		if len(chapters) > 0 && len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Error: --chapter needs exactly one comic")
			os.Exit(1)
		}

		// A running dashboard owns the queue; hand the work over.
		if port, ok := dashboardPort(); ok && len(chapters) == 0 {
			queueRemote(port, args)
			return
		}

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		runLocalGet(svc, args, chapters)
	},
}

// queueRemote pushes comics into the running dashboard.
func queueRemote(port int, args []string) {
	detector := clipboard.NewDetector()
	for _, arg := range args {
		comicID, ok := detector.ExtractComicID(arg)
		if !ok {
			fmt.Fprintf(os.Stderr, "Skipping %q: not a comic ID or shelf link\n", arg)
			continue
		}
		result, err := controlPost(port, fmt.Sprintf("/queue?comic=%d", comicID))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error queueing comic %d: %v\n", comicID, err)
			continue
		}
		fmt.Printf("Queued %v chapters of comic %d into the running dashboard\n", result["created"], comicID)
	}
}

// runLocalGet downloads in this process, headless.
func runLocalGet(svc *core.LocalService, args []string, chapters []int64) {
	ctx, stop := signalContext()
	defer stop()

	stream := svc.StreamEvents()

	queue := func() (int, error) {
		if len(chapters) == 0 {
			return queueArgs(svc, args, false), nil
		}

		detector := clipboard.NewDetector()
		comicID, ok := detector.ExtractComicID(args[0])
		if !ok {
			return 0, fmt.Errorf("%q is not a comic ID or shelf link", args[0])
		}
		queued := 0
		for _, chapterID := range chapters {
			if err := svc.DownloadChapter(ctx, comicID, chapterID); err != nil {
				fmt.Fprintf(os.Stderr, "Error queueing chapter %d: %v\n", chapterID, err)
				continue
			}
			queued++
		}
		return queued, nil
	}

	queued, err := queueAndConsume(ctx, stream, queue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if queued == 0 {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().Int64Slice("chapter", nil, "Download only these chapter IDs (repeatable)")
	getCmd.Flags().Bool("clipboard", false, "Take the comic from the clipboard")
}

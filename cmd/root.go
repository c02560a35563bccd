// Package cmd wires the command-line surface: the root command launches
// the dashboard, subcommands either talk to a running dashboard over the
// control endpoint or build a one-shot service of their own.
package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/clipboard"
	"github.com/tanko-dl/tanko/internal/config"
	"github.com/tanko-dl/tanko/internal/core"
	"github.com/tanko-dl/tanko/internal/store"
	"github.com/tanko-dl/tanko/internal/tui"
	"github.com/tanko-dl/tanko/internal/utils"
	"github.com/tanko-dl/tanko/internal/version"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// controlPortBase is where the control endpoint starts probing for a
// free port.
const controlPortBase = 7411

var rootCmd = &cobra.Command{
	Use:     "tanko [comicID|url]...",
	Short:   "A terminal comic downloader",
	Long:    `Tanko downloads comics from your shelf account into a local library, with a live dashboard for watching and steering the queue.`,
	Version: Version,
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		isMaster, err := AcquireLock()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error acquiring lock: %v\n", err)
			os.Exit(1)
		}
		if !isMaster {
			fmt.Fprintln(os.Stderr, "Error: tanko is already running.")
			fmt.Fprintln(os.Stderr, "Use 'tanko get <comicID>' to queue into the running dashboard.")
			os.Exit(1)
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		headless, _ := cmd.Flags().GetBool("headless")

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := svc.Shutdown(); err != nil {
				utils.Debug("Service shutdown: %v", err)
			}
		}()

		// Control endpoint so a second shell can steer this instance.
		port, ln := findAvailablePort(controlPortBase)
		if ln == nil {
			fmt.Fprintln(os.Stderr, "Error: could not find an available control port")
			os.Exit(1)
		}
		saveActivePort(port)
		defer removeActivePort()
		go startControlServer(ln, port, svc)

		if headless {
			runHeadless(svc, args)
			return
		}
		startTUI(svc, args)
	},
}

// queueArgs turns command-line arguments into download tasks. Returns
// how many tasks were created. With quiet set, failures only reach the
// debug log (the dashboard owns the terminal).
func queueArgs(svc *core.LocalService, args []string, quiet bool) int {
	detector := clipboard.NewDetector()
	created := 0
	for _, arg := range args {
		comicID, ok := detector.ExtractComicID(arg)
		if !ok {
			if quiet {
				utils.Debug("Skipping argument %q: not a comic ID or shelf link", arg)
			} else {
				fmt.Fprintf(os.Stderr, "Skipping %q: not a comic ID or shelf link\n", arg)
			}
			continue
		}
		n, err := svc.DownloadComic(context.Background(), comicID)
		if err != nil {
			if quiet {
				utils.Debug("Queueing comic %d: %v", comicID, err)
			} else {
				fmt.Fprintf(os.Stderr, "Error queueing comic %d: %v\n", comicID, err)
			}
			continue
		}
		created += n
	}
	return created
}

// startTUI runs the dashboard until the user quits.
func startTUI(svc *core.LocalService, args []string) {
	// The update check stays out of the way: it reports after the
	// dashboard closes.
	updateCh := make(chan *version.UpdateInfo, 1)
	go func() {
		settings := svc.Settings()
		if settings.General.SkipUpdateCheck {
			updateCh <- nil
			return
		}
		info, _ := version.CheckForUpdate(Version)
		updateCh <- info
	}()

	// The model subscribes to events on construction, so queue the
	// command-line comics after it exists and nothing is lost.
	m := tui.New(svc, Version)
	if len(args) > 0 {
		go queueArgs(svc, args, true)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}

	select {
	case info := <-updateCh:
		if info != nil {
			fmt.Printf("tanko %s is available (you have %s): %s\n", info.LatestVersion, Version, info.ReleaseURL)
		}
	default:
	}
}

// runHeadless consumes engine events and prints them as log lines.
// With initial downloads queued it exits once they all finish,
// otherwise it serves until interrupted.
func runHeadless(svc *core.LocalService, args []string) {
	ctx, stop := signalContext()
	defer stop()

	stream := svc.StreamEvents()
	if len(args) == 0 {
		fmt.Printf("tanko listening on port %d, press Ctrl+C to stop\n", readActivePort())
		consumeEvents(ctx, stream)
		return
	}

	queued, err := queueAndConsume(ctx, stream, func() (int, error) {
		return queueArgs(svc, args, false), nil
	})
	if err == nil && queued == 0 {
		os.Exit(1)
	}
}

func findAvailablePort(start int) (int, net.Listener) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return port, ln
		}
	}
	return 0, nil
}

// saveActivePort writes the control port for CLI discovery.
func saveActivePort(port int) {
	portFile := filepath.Join(config.GetTankoDir(), "port")
	if err := os.WriteFile(portFile, []byte(fmt.Sprintf("%d", port)), 0o644); err != nil {
		utils.Debug("Error writing port file: %v", err)
	}
	utils.Debug("Control endpoint listening on port %d", port)
}

// removeActivePort cleans up the port file on exit.
func removeActivePort() {
	portFile := filepath.Join(config.GetTankoDir(), "port")
	if err := os.Remove(portFile); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing port file: %v", err)
	}
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("headless", false, "Run without the dashboard, printing events to stdout")
	rootCmd.SetVersionTemplate("tanko version {{.Version}}\n")
}

// initializeGlobalState prepares directories, the history store and
// debug logging. Every command calls it first.
func initializeGlobalState() {
	if err := config.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating app directories: %v\n", err)
		os.Exit(1)
	}

	store.Configure(filepath.Join(config.GetStateDir(), "history.db"))
	utils.ConfigureDebug(config.GetLogsDir())

	settings, err := config.LoadSettings()
	if err != nil {
		settings = config.DefaultSettings()
	}
	utils.CleanupLogs(settings.General.LogRetentionCount)
}

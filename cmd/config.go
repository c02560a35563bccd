package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
	Long: `Inspect and change settings stored in settings.json.

Keys are flat and unique, e.g. 'download_dir' or 'request_timeout'.
Run 'tanko config get' without a key to list everything.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or all of them",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		settings, err := config.LoadSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 1 {
			value, ok := settingValue(settings, args[0])
			if !ok {
				fmt.Fprintf(os.Stderr, "Error: unknown setting %q\n", args[0])
				fmt.Fprintln(os.Stderr, "Run 'tanko config get' to list all settings.")
				os.Exit(1)
			}
			fmt.Printf("%v\n", value)
			return
		}

		meta := config.GetSettingsMetadata()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for i, category := range config.CategoryOrder() {
			if i > 0 {
				fmt.Fprintln(w, "\t")
			}
			fmt.Fprintf(w, "%s\t\n", category)
			for _, m := range meta[category] {
				value, _ := settingValue(settings, m.Key)
				fmt.Fprintf(w, "  %s\t%v\n", m.Key, value)
			}
		}
		w.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		meta, ok := findSettingMeta(args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown setting %q\n", args[0])
			fmt.Fprintln(os.Stderr, "Run 'tanko config get' to list all settings.")
			os.Exit(1)
		}

		settings, err := config.LoadSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := applySetting(settings, meta, args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := config.SaveSettings(settings); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		value, _ := settingValue(settings, meta.Key)
		fmt.Printf("Set %s = %v\n", meta.Key, value)
		if _, ok := dashboardPort(); ok {
			fmt.Println("The running dashboard keeps its current settings until restarted.")
		}
	},
}

func findSettingMeta(key string) (config.SettingMeta, bool) {
	for _, metas := range config.GetSettingsMetadata() {
		for _, m := range metas {
			if m.Key == key {
				return m, true
			}
		}
	}
	return config.SettingMeta{}, false
}

func settingValue(s *config.Settings, key string) (any, bool) {
	switch key {
	case "download_dir":
		return s.General.DownloadDir, true
	case "export_dir":
		return s.General.ExportDir, true
	case "clipboard_watch":
		return s.General.ClipboardWatch, true
	case "skip_update_check":
		return s.General.SkipUpdateCheck, true
	case "log_retention_count":
		return s.General.LogRetentionCount, true
	case "base_url":
		return s.Network.BaseURL, true
	case "username":
		return s.Network.Username, true
	case "user_agent":
		return s.Network.UserAgent, true
	case "proxy_url":
		return s.Network.ProxyURL, true
	case "request_timeout":
		return s.Network.RequestTimeout, true
	case "concurrent_fetches":
		return s.Performance.ConcurrentFetches, true
	case "max_page_retries":
		return s.Performance.MaxPageRetries, true
	case "retry_base_delay":
		return s.Performance.RetryBaseDelay, true
	}
	return nil, false
}

// applySetting parses value according to the setting's declared type and
// writes it into the right field.
func applySetting(s *config.Settings, meta config.SettingMeta, value string) error {
	var (
		str string
		n   int
		b   bool
		d   time.Duration
		err error
	)
	switch meta.Type {
	case "string":
		str = value
	case "int":
		n, err = strconv.Atoi(value)
	case "bool":
		b, err = strconv.ParseBool(value)
	case "duration":
		d, err = time.ParseDuration(value)
	}
	if err != nil {
		return fmt.Errorf("%s wants a %s value: %w", meta.Key, meta.Type, err)
	}

	switch meta.Key {
	case "download_dir":
		s.General.DownloadDir = str
	case "export_dir":
		s.General.ExportDir = str
	case "clipboard_watch":
		s.General.ClipboardWatch = b
	case "skip_update_check":
		s.General.SkipUpdateCheck = b
	case "log_retention_count":
		s.General.LogRetentionCount = n
	case "base_url":
		s.Network.BaseURL = str
	case "username":
		s.Network.Username = str
	case "user_agent":
		s.Network.UserAgent = str
	case "proxy_url":
		s.Network.ProxyURL = str
	case "request_timeout":
		s.Network.RequestTimeout = d
	case "concurrent_fetches":
		s.Performance.ConcurrentFetches = n
	case "max_page_retries":
		s.Performance.MaxPageRetries = n
	case "retry_base_delay":
		s.Performance.RetryBaseDelay = d
	default:
		return fmt.Errorf("unknown setting %q", meta.Key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

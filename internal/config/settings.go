package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General     GeneralSettings     `json:"general"`
	Network     NetworkSettings     `json:"network"`
	Performance PerformanceSettings `json:"performance"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DownloadDir       string `json:"download_dir"`
	ExportDir         string `json:"export_dir"`
	ClipboardWatch    bool   `json:"clipboard_watch"`
	SkipUpdateCheck   bool   `json:"skip_update_check"`
	LogRetentionCount int    `json:"log_retention_count"`
}

// NetworkSettings contains shelf connection parameters.
type NetworkSettings struct {
	BaseURL        string        `json:"base_url"`
	Username       string        `json:"username"`
	UserAgent      string        `json:"user_agent"`
	ProxyURL       string        `json:"proxy_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// PerformanceSettings contains download tuning parameters.
type PerformanceSettings struct {
	ConcurrentFetches int           `json:"concurrent_fetches"`
	MaxPageRetries    int           `json:"max_page_retries"`
	RetryBaseDelay    time.Duration `json:"retry_base_delay"`
}

// SettingMeta provides metadata for a single setting (for UI rendering
// and `tanko config`).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text
	Type        string // "string", "int", "bool", "duration"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "download_dir", Label: "Download Dir", Description: "Directory the library lives in. One subdirectory per comic.", Type: "string"},
			{Key: "export_dir", Label: "Export Dir", Description: "Directory for CBZ/PDF exports. Leave empty to export next to the library.", Type: "string"},
			{Key: "clipboard_watch", Label: "Clipboard Watch", Description: "Watch the clipboard for comic links and offer to download them.", Type: "bool"},
			{Key: "skip_update_check", Label: "Skip Update Check", Description: "Disable the automatic check for new versions on startup.", Type: "bool"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
		},
		"Network": {
			{Key: "base_url", Label: "Shelf URL", Description: "Base URL of the shelf API.", Type: "string"},
			{Key: "username", Label: "Username", Description: "Shelf account name used by `tanko login`.", Type: "string"},
			{Key: "user_agent", Label: "User Agent", Description: "Custom User-Agent for shelf requests. Leave empty for default.", Type: "string"},
			{Key: "proxy_url", Label: "Proxy URL", Description: "HTTP/HTTPS proxy URL (e.g. http://127.0.0.1:1080). Leave empty to use system default.", Type: "string"},
			{Key: "request_timeout", Label: "Request Timeout", Description: "Per-request timeout for shelf calls (e.g. 30s).", Type: "duration"},
		},
		"Performance": {
			{Key: "concurrent_fetches", Label: "Concurrent Fetches", Description: "Maximum simultaneous shelf fetches across all tasks (1-32).", Type: "int"},
			{Key: "max_page_retries", Label: "Max Page Retries", Description: "Number of times to retry a failed page before the task fails.", Type: "int"},
			{Key: "retry_base_delay", Label: "Retry Base Delay", Description: "Initial backoff delay between page retries (e.g. 200ms).", Type: "duration"},
		},
	}
}

// CategoryOrder returns the order of categories for UI tabs.
func CategoryOrder() []string {
	return []string{"General", "Network", "Performance"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()

	downloadDir := filepath.Join(GetTankoDir(), "library")

	// Prefer an existing user downloads directory
	if xdgDir := os.Getenv("XDG_DOWNLOAD_DIR"); xdgDir != "" {
		if info, err := os.Stat(xdgDir); err == nil && info.IsDir() {
			downloadDir = filepath.Join(xdgDir, "tanko")
		}
	} else if homeDir != "" {
		downloadsDir := filepath.Join(homeDir, "Downloads")
		if info, err := os.Stat(downloadsDir); err == nil && info.IsDir() {
			downloadDir = filepath.Join(downloadsDir, "tanko")
		}
	}

	return &Settings{
		General: GeneralSettings{
			DownloadDir:       downloadDir,
			ExportDir:         "",
			ClipboardWatch:    true,
			SkipUpdateCheck:   false,
			LogRetentionCount: 5,
		},
		Network: NetworkSettings{
			BaseURL:        "",
			Username:       "",
			UserAgent:      "",
			ProxyURL:       "",
			RequestTimeout: 30 * time.Second,
		},
		Performance: PerformanceSettings{
			ConcurrentFetches: 10,
			MaxPageRetries:    3,
			RetryBaseDelay:    200 * time.Millisecond,
		},
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetTankoDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	path := GetSettingsPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // Start with defaults to fill any missing fields
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	path := GetSettingsPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// Session holds the shelf auth token across runs.
type Session struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	SavedAt  time.Time `json:"saved_at"`
}

// GetSessionPath returns the path to the persisted session file.
func GetSessionPath() string {
	return filepath.Join(GetTankoDir(), "session.json")
}

// LoadSession loads the saved session. A missing file is not an error;
// it returns a zero session.
func LoadSession() (*Session, error) {
	data, err := os.ReadFile(GetSessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Session{}, nil
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSession persists the session atomically.
func SaveSession(s *Session) error {
	path := GetSessionPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tanko-dl/tanko/internal/config"
	"github.com/tanko-dl/tanko/internal/download"
)

var controlClient = &http.Client{Timeout: 10 * time.Minute}

// readActivePort reads the control port of a running instance, zero
// when none is recorded.
func readActivePort() int {
	data, err := os.ReadFile(filepath.Join(config.GetTankoDir(), "port"))
	if err != nil {
		return 0
	}
	var port int
	fmt.Sscanf(string(data), "%d", &port)
	return port
}

func readControlToken() string {
	data, err := os.ReadFile(filepath.Join(config.GetTankoDir(), "control-token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// dashboardPort probes for a live dashboard. The port file can be stale
// after a crash, so only a healthy answer counts.
func dashboardPort() (int, bool) {
	port := readActivePort()
	if port == 0 {
		return 0, false
	}

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()
	return port, resp.StatusCode == http.StatusOK
}

// controlPost sends an authorized POST to the running dashboard and
// decodes the JSON answer.
func controlPost(port int, path string) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://127.0.0.1:%d%s", port, path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+readControlToken())

	resp, err := controlClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to the running dashboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("dashboard answered %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}

// fetchRemoteTasks lists the running dashboard's tasks.
func fetchRemoteTasks(port int) ([]download.TaskView, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/tasks", port), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+readControlToken())

	resp, err := controlClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashboard answered %s", resp.Status)
	}

	var tasks []download.TaskView
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

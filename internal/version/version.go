// Package version checks GitHub for newer tanko releases.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// apiURL points at the latest-release endpoint. Tests swap it out.
var apiURL = "https://api.github.com/repos/tanko-dl/tanko/releases/latest"

// RequestTimeout bounds the release lookup.
const RequestTimeout = 10 * time.Second

// UpdateInfo describes the result of an update check.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckForUpdate asks GitHub whether a newer release exists. Network,
// API and parse errors all return nil, nil; the check must never get in
// the user's way. Development builds skip the check entirely.
func CheckForUpdate(currentVersion string) (*UpdateInfo, error) {
	if currentVersion == "dev" || currentVersion == "" {
		return nil, nil
	}

	client := &http.Client{Timeout: RequestTimeout}

	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, nil
	}
	req.Header.Set("User-Agent", "tanko-update-checker")
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, nil
	}

	latest := normalizeVersion(release.TagName)
	current := normalizeVersion(currentVersion)

	return &UpdateInfo{
		CurrentVersion:  currentVersion,
		LatestVersion:   release.TagName,
		ReleaseURL:      release.HTMLURL,
		UpdateAvailable: isNewerVersion(latest, current),
	}, nil
}

// normalizeVersion strips the 'v' prefix and whitespace.
func normalizeVersion(version string) string {
	version = strings.TrimSpace(version)
	return strings.TrimPrefix(version, "v")
}

// isNewerVersion compares MAJOR.MINOR.PATCH strings.
func isNewerVersion(latest, current string) bool {
	latestParts := parseVersion(latest)
	currentParts := parseVersion(current)

	for i := 0; i < 3; i++ {
		if latestParts[i] > currentParts[i] {
			return true
		}
		if latestParts[i] < currentParts[i] {
			return false
		}
	}
	return false
}

// parseVersion splits a semver string into [major, minor, patch],
// ignoring pre-release and build suffixes.
func parseVersion(version string) [3]int {
	var parts [3]int

	segments := strings.Split(version, ".")
	for i := 0; i < len(segments) && i < 3; i++ {
		numStr := segments[i]
		if idx := strings.IndexAny(numStr, "-+"); idx != -1 {
			numStr = numStr[:idx]
		}
		_, _ = fmt.Sscanf(numStr, "%d", &parts[i])
	}

	return parts
}

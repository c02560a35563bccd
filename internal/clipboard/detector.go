// Package clipboard detects comic references on the system clipboard: a
// bare comic ID or a shelf comic URL.
package clipboard

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/tanko-dl/tanko/internal/utils"
)

var readAll = clipboard.ReadAll

// Detector extracts comic IDs from copied text.
type Detector struct {
	allowedSchemes map[string]bool
}

func NewDetector() *Detector {
	return &Detector{
		allowedSchemes: map[string]bool{"http": true, "https": true},
	}
}

// ExtractComicID pulls a comic ID out of clipboard text. It accepts a
// bare numeric ID or an http(s) URL with a /comics/<id> path segment.
func (d *Detector) ExtractComicID(text string) (int64, bool) {
	text = strings.TrimSpace(text)

	// Quick reject: empty, too long, or spanning multiple lines
	if text == "" || len(text) > 2048 || strings.ContainsAny(text, "\n\r") {
		return 0, false
	}

	if id, err := strconv.ParseInt(text, 10, 64); err == nil && id > 0 {
		return id, true
	}

	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		return 0, false
	}
	parsed, err := url.Parse(text)
	if err != nil || parsed.Host == "" || !d.allowedSchemes[parsed.Scheme] {
		return 0, false
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] != "comics" && segments[i] != "comic" {
			continue
		}
		if id, err := strconv.ParseInt(segments[i+1], 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// ReadComicID reads the clipboard once and extracts a comic ID if one is
// there.
func ReadComicID() (int64, bool) {
	text, err := readAll()
	if err != nil {
		return 0, false
	}
	return NewDetector().ExtractComicID(text)
}

// Watcher polls the clipboard and reports newly copied comic IDs.
type Watcher struct {
	interval time.Duration
	detector *Detector
}

func NewWatcher(interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{interval: interval, detector: NewDetector()}
}

// Watch polls until ctx is cancelled. Each change of the clipboard text
// that carries a comic ID is sent once; the first poll reports whatever
// is already there.
func (w *Watcher) Watch(ctx context.Context) <-chan int64 {
	ids := make(chan int64, 4)
	go func() {
		defer close(ids)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		last := ""
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			text, err := readAll()
			if err != nil || text == last {
				continue
			}
			last = text

			id, ok := w.detector.ExtractComicID(text)
			if !ok {
				continue
			}
			utils.Debug("Clipboard comic id %d", id)
			select {
			case ids <- id:
			default:
			}
		}
	}()
	return ids
}

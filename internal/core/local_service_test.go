package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanko-dl/tanko/internal/client"
	"github.com/tanko-dl/tanko/internal/config"
	"github.com/tanko-dl/tanko/internal/download"
	"github.com/tanko-dl/tanko/internal/events"
	"github.com/tanko-dl/tanko/internal/export"
	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
	"github.com/tanko-dl/tanko/internal/store"
)

// testShelf serves a tiny shelf: comic 7 with chapters 11 and 12, page
// images under /pages/.
func testShelf(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"tok-1","profile":{"uid":9,"username":"kaz"}}`)
	})
	mux.HandleFunc("/comics/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":7,"title":"Served Comic","chapters":[`+
			`{"chapter_id":11,"title":"One","order":1},`+
			`{"chapter_id":12,"title":"Two","order":2}]}`)
	})
	mux.HandleFunc("/chapters/11", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprintf(w, `{"chapter_id":11,"comic_id":7,"title":"One","pages":["%s/pages/11/0001.jpg","%s/pages/11/0002.jpg"]}`, base, base)
	})
	mux.HandleFunc("/chapters/12", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprintf(w, `{"chapter_id":12,"comic_id":7,"title":"Two","pages":["%s/pages/12/0001.jpg"]}`, base)
	})
	mux.HandleFunc("/pages/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "img:%s", r.URL.Path)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T) (*LocalService, *config.Settings) {
	t.Helper()

	confDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confDir)
	t.Setenv("HOME", confDir)

	if err := store.Configure(filepath.Join(t.TempDir(), "history.db")); err != nil {
		t.Fatalf("configure store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	srv := testShelf(t)
	cli, err := client.New(client.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	settings := config.DefaultSettings()
	settings.General.DownloadDir = t.TempDir()
	settings.General.ExportDir = t.TempDir()
	settings.Performance.RetryBaseDelay = 2 * time.Millisecond

	svc := NewLocalService(cli, settings)
	t.Cleanup(func() { _ = svc.Shutdown() })
	return svc, settings
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func allTasksCompleted(svc *LocalService, want int) bool {
	tasks := svc.Tasks()
	if len(tasks) != want {
		return false
	}
	for _, task := range tasks {
		if task.State != download.StateCompleted {
			return false
		}
	}
	return true
}

func TestDownloadComicEndToEnd(t *testing.T) {
	svc, settings := newTestService(t)

	created, err := svc.DownloadComic(context.Background(), 7)
	if err != nil {
		t.Fatalf("DownloadComic: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}

	waitFor(t, "both tasks to complete", func() bool { return allTasksCompleted(svc, 2) })

	lib := library.New(settings.General.DownloadDir)
	page := filepath.Join(lib.ChapterDir("Served Comic", model.ChapterInfo{ChapterID: 11, Title: "One", Order: 1}), "0001.jpg")
	data, err := os.ReadFile(page)
	if err != nil {
		t.Fatalf("read downloaded page: %v", err)
	}
	if string(data) != "img:/pages/11/0001.jpg" {
		t.Fatalf("page content = %q", data)
	}

	comics, err := svc.DownloadedComics()
	if err != nil {
		t.Fatalf("DownloadedComics: %v", err)
	}
	if len(comics) != 1 || !comics[0].Downloaded {
		t.Fatalf("library = %+v, want one fully downloaded comic", comics)
	}

	entries, err := svc.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history rows = %d, want 2", len(entries))
	}
	for _, entry := range entries {
		if entry.Status != "completed" {
			t.Fatalf("history status = %q, want completed", entry.Status)
		}
	}
}

func TestStreamEventsFanOut(t *testing.T) {
	svc, _ := newTestService(t)

	first := svc.StreamEvents()
	second := svc.StreamEvents()

	if err := svc.DownloadChapter(context.Background(), 7, 11); err != nil {
		t.Fatalf("DownloadChapter: %v", err)
	}

	sawCompleted := func(ch <-chan any) bool {
		deadline := time.After(3 * time.Second)
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return false
				}
				if _, is := ev.(events.TaskCompletedMsg); is {
					return true
				}
			case <-deadline:
				return false
			}
		}
	}

	if !sawCompleted(first) {
		t.Fatal("first listener never saw a completion event")
	}
	if !sawCompleted(second) {
		t.Fatal("second listener never saw a completion event")
	}
}

func TestShutdownClosesListeners(t *testing.T) {
	svc, _ := newTestService(t)
	ch := svc.StreamEvents()

	if err := svc.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	waitFor(t, "listener channel to close", func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	})
}

func TestOfflineServiceServesLibrary(t *testing.T) {
	settings := config.DefaultSettings()
	settings.General.DownloadDir = t.TempDir()
	settings.General.ExportDir = t.TempDir()

	lib := library.New(settings.General.DownloadDir)
	comic := &model.Comic{
		ID:       3,
		Title:    "Offline",
		Chapters: []model.ChapterInfo{{ChapterID: 31, Title: "Kept", Order: 1}},
	}
	if err := lib.SaveMetadata(comic); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	dir := lib.ChapterDir("Offline", comic.Chapters[0])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "0001.jpg"), []byte("page"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	svc := NewLocalService(nil, settings)
	t.Cleanup(func() { _ = svc.Shutdown() })

	comics, err := svc.DownloadedComics()
	if err != nil {
		t.Fatalf("DownloadedComics: %v", err)
	}
	if len(comics) != 1 || comics[0].ID != 3 || !comics[0].Chapters[0].Downloaded {
		t.Fatalf("library = %+v, want offline comic with downloaded chapter", comics)
	}

	if _, err := svc.DownloadComic(context.Background(), 3); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("DownloadComic offline err = %v, want ErrNotConfigured", err)
	}
	if _, err := svc.UpdateDownloadedFavorites(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("UpdateDownloadedFavorites offline err = %v, want ErrNotConfigured", err)
	}

	paths, err := svc.ExportComic(export.FormatCBZ, 3)
	if err != nil {
		t.Fatalf("ExportComic: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("export paths = %v, want one archive", paths)
	}
	if _, err := os.Stat(paths[0]); err != nil {
		t.Fatalf("exported archive missing: %v", err)
	}
}

func TestLoginPersistsSession(t *testing.T) {
	svc, _ := newTestService(t)

	profile, err := svc.Login(context.Background(), "kaz", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if profile.Username != "kaz" {
		t.Fatalf("profile.Username = %q, want kaz", profile.Username)
	}

	session, err := config.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if session.Token != "tok-1" || session.Username != "kaz" {
		t.Fatalf("session = %+v, want persisted token and username", session)
	}
}

func TestUpdateSettingsPersists(t *testing.T) {
	svc, _ := newTestService(t)

	updated, err := svc.UpdateSettings(func(s *config.Settings) {
		s.Performance.ConcurrentFetches = 5
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if updated.Performance.ConcurrentFetches != 5 {
		t.Fatalf("returned ConcurrentFetches = %d, want 5", updated.Performance.ConcurrentFetches)
	}
	if got := svc.Settings().Performance.ConcurrentFetches; got != 5 {
		t.Fatalf("cached ConcurrentFetches = %d, want 5", got)
	}

	reloaded, err := config.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if reloaded.Performance.ConcurrentFetches != 5 {
		t.Fatalf("persisted ConcurrentFetches = %d, want 5", reloaded.Performance.ConcurrentFetches)
	}
}

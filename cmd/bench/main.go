// Benchmark harness for the download engine. It seeds an in-process
// shelf stub with synthetic comics, queues every chapter and reports
// pages/s and MB/s through the real client, manager and library.
//
// With -server the stub shelf runs standalone instead, so a development
// build can exercise the whole app against it:
//
//	go run ./cmd/bench -server -port 7500
//	tanko config set base_url http://127.0.0.1:7500
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tanko-dl/tanko/internal/client"
	"github.com/tanko-dl/tanko/internal/download"
	"github.com/tanko-dl/tanko/internal/events"
	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
)

var (
	flagServer   = flag.Bool("server", false, "Run the stub shelf only, without a benchmark run")
	flagPort     = flag.Int("port", 0, "Port for -server (0 for random)")
	flagComics   = flag.Int("comics", 4, "Comics to seed")
	flagChapters = flag.Int("chapters", 6, "Chapters per comic")
	flagPages    = flag.Int("pages", 25, "Pages per chapter")
	flagPageSize = flag.String("page-size", "64KB", "Bytes per page image (e.g. 64KB, 2MB)")
	flagFetches  = flag.Int("fetches", download.DefaultConcurrentFetches, "Concurrent fetches")
)

func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	}
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return val * multiplier, nil
}

func main() {
	flag.Parse()

	pageSize, err := parseSize(*flagPageSize)
	if err != nil || pageSize <= 0 {
		fmt.Fprintf(os.Stderr, "Invalid page size: %v\n", err)
		os.Exit(1)
	}

	stub := newShelfStub(*flagComics, *flagChapters, *flagPages, pageSize)

	if *flagServer {
		addr := fmt.Sprintf("127.0.0.1:%d", *flagPort)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to listen: %v\n", err)
			os.Exit(1)
		}
		url := fmt.Sprintf("http://%s", listener.Addr().String())
		fmt.Printf("Stub shelf listening on %s\n", url)
		fmt.Printf("Point a client at it: tanko config set base_url %s\n", url)
		if err := http.Serve(listener, stub.handler()); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runBench(stub, *flagFetches); err != nil {
		fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
		os.Exit(1)
	}
}

func runBench(stub *shelfStub, fetches int) error {
	ts := httptest.NewServer(stub.handler())
	defer ts.Close()

	// Prefer /dev/shm so disk IO does not mask fetch throughput.
	destDir := "/dev/shm"
	if _, err := os.Stat(destDir); err != nil {
		destDir = os.TempDir()
	}
	root := filepath.Join(destDir, "tanko-bench")
	if err := os.RemoveAll(root); err != nil {
		return err
	}
	defer os.RemoveAll(root)

	cli, err := client.New(client.Config{BaseURL: ts.URL})
	if err != nil {
		return err
	}

	m := download.NewManager(cli, library.New(root), download.Options{
		ConcurrentFetches: int64(fetches),
	})
	defer m.Shutdown()

	// Subscribe and drain before queueing anything: the event buffer is
	// finite and the first runners start pumping pages immediately.
	stream := m.Events()
	queuedCh := make(chan int, 1)
	errCh := make(chan error, 1)

	start := time.Now()
	go func() {
		total := 0
		for id := int64(1); id <= int64(stub.comics); id++ {
			comic, err := cli.GetComic(context.Background(), id)
			if err != nil {
				errCh <- err
				return
			}
			created, err := m.DownloadComic(comic)
			if err != nil {
				errCh <- err
				return
			}
			total += created
		}
		queuedCh <- total
	}()

	queued := -1
	done, failed, pages := 0, 0, 0
	for queued < 0 || done < queued {
		select {
		case err := <-errCh:
			return err
		case queued = <-queuedCh:
			fmt.Printf("Queued %d chapters, %d pages of %s each...\n",
				queued, stub.pages, *flagPageSize)
		case ev := <-stream:
			switch msg := ev.(type) {
			case events.TaskCompletedMsg:
				done++
				pages += msg.Pages
			case events.TaskFailedMsg:
				done++
				failed++
				fmt.Fprintf(os.Stderr, "chapter %d failed: %v\n", msg.ChapterID, msg.Err)
			}
		}
	}
	elapsed := time.Since(start)

	bytes := int64(pages) * stub.pageSize
	fmt.Printf("Fetched %d pages (%d chapters) in %v\n",
		pages, queued-failed, elapsed.Round(time.Millisecond))
	fmt.Printf("Average: %.0f pages/s, %.2f MB/s with %d concurrent fetches\n",
		float64(pages)/elapsed.Seconds(),
		float64(bytes)/1024/1024/elapsed.Seconds(),
		fetches)

	if failed > 0 {
		return fmt.Errorf("%d chapters failed", failed)
	}
	return nil
}

// shelfStub serves a synthetic shelf: comics with ID 1..comics, chapter
// IDs comicID*1000+n, and page images of pageSize bytes each.
type shelfStub struct {
	comics   int
	chapters int
	pages    int
	pageSize int64
	payload  []byte
}

func newShelfStub(comics, chapters, pages int, pageSize int64) *shelfStub {
	payload := make([]byte, pageSize)
	// JPEG magic keeps sniffers honest.
	copy(payload, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return &shelfStub{
		comics:   comics,
		chapters: chapters,
		pages:    pages,
		pageSize: pageSize,
		payload:  payload,
	}
}

func (s *shelfStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/comics/", s.handleComic)
	mux.HandleFunc("/chapters/", s.handleChapter)
	mux.HandleFunc("/pages/", s.handlePage)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/favorites", s.handleFavorites)
	mux.HandleFunc("/favorites/toggle", s.handleToggle)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/user/profile", s.handleProfile)
	return mux
}

func (s *shelfStub) comic(id int64) *model.Comic {
	c := &model.Comic{
		ID:      id,
		Title:   fmt.Sprintf("Bench Comic %02d", id),
		Authors: []string{"tanko bench"},
	}
	for n := 1; n <= s.chapters; n++ {
		c.Chapters = append(c.Chapters, model.ChapterInfo{
			ChapterID: id*1000 + int64(n),
			Title:     fmt.Sprintf("Chapter %d", n),
			Order:     n,
		})
	}
	return c
}

func (s *shelfStub) handleComic(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/comics/"), 10, 64)
	if err != nil || id < 1 || id > int64(s.comics) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.comic(id))
}

func (s *shelfStub) handleChapter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/chapters/"), 10, 64)
	comicID, n := id/1000, int(id%1000)
	if err != nil || comicID < 1 || comicID > int64(s.comics) || n < 1 || n > s.chapters {
		http.NotFound(w, r)
		return
	}
	ch := &model.Chapter{
		ChapterID: id,
		ComicID:   comicID,
		Title:     fmt.Sprintf("Chapter %d", n),
	}
	for p := 1; p <= s.pages; p++ {
		ch.Pages = append(ch.Pages, fmt.Sprintf("http://%s/pages/%d/%04d.jpg", r.Host, id, p))
	}
	writeJSON(w, ch)
}

func (s *shelfStub) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(s.payload)
}

func (s *shelfStub) handleSearch(w http.ResponseWriter, r *http.Request) {
	page := &model.SearchPage{Page: 1, Total: int64(s.comics)}
	for id := int64(1); id <= int64(s.comics); id++ {
		page.Hits = append(page.Hits, model.SearchHit{
			ID:     id,
			Title:  fmt.Sprintf("Bench Comic %02d", id),
			Author: "tanko bench",
		})
	}
	writeJSON(w, struct {
		Results *model.SearchPage `json:"results"`
	}{page})
}

func (s *shelfStub) handleFavorites(w http.ResponseWriter, r *http.Request) {
	folderID, _ := strconv.ParseInt(r.URL.Query().Get("folder"), 10, 64)
	pageNum, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)

	fav := &model.FavoritePage{
		FolderID: folderID,
		Total:    strconv.Itoa(s.comics),
		Count:    int64(s.comics),
	}
	// Everything fits on page one; later pages come back empty.
	if pageNum <= 1 {
		for id := int64(1); id <= int64(s.comics); id++ {
			fav.List = append(fav.List, model.FavoriteEntry{
				ID:    strconv.FormatInt(id, 10),
				Title: fmt.Sprintf("Bench Comic %02d", id),
			})
		}
	}
	writeJSON(w, fav)
}

func (s *shelfStub) handleToggle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, model.ToggleFavoriteResult{Type: model.ToggleAdd})
}

func (s *shelfStub) handleLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"token":   "bench-session",
		"profile": model.UserProfile{UID: 1, Username: "bench"},
	})
}

func (s *shelfStub) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, model.UserProfile{UID: 1, Username: "bench"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode response: %v\n", err)
	}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanko-dl/tanko/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{BaseURL: server.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, server
}

func TestLoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("login used %s, want POST", r.Method)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad login body: %v", err)
		}
		if body["username"] != "reader" || body["password"] != "secret" {
			t.Errorf("unexpected credentials: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token":   "tok-123",
			"profile": model.UserProfile{UID: 7, Username: "reader"},
		})
	})
	mux.HandleFunc("/user/profile", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want bearer token from login", got)
		}
		json.NewEncoder(w).Encode(model.UserProfile{UID: 7, Username: "reader"})
	})

	c, _ := newTestClient(t, mux)

	profile, err := c.Login(context.Background(), "reader", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if profile.Username != "reader" {
		t.Errorf("profile.Username = %q", profile.Username)
	}
	if c.Token() != "tok-123" {
		t.Errorf("Token() = %q after login", c.Token())
	}

	if _, err := c.GetUserProfile(context.Background()); err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
}

func TestGetComic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/comics/42", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.Comic{
			ID:    42,
			Title: "Iron Harbor",
			Chapters: []model.ChapterInfo{
				{ChapterID: 421, Title: "Ch 1", Order: 1},
				{ChapterID: 422, Title: "Ch 2", Order: 2},
			},
		})
	})

	c, _ := newTestClient(t, mux)

	comic, err := c.GetComic(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetComic failed: %v", err)
	}
	if comic.Title != "Iron Harbor" || len(comic.Chapters) != 2 {
		t.Errorf("unexpected comic: %+v", comic)
	}
}

func TestSearchDirectHit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "42" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"comic": model.Comic{ID: 42, Title: "Iron Harbor"},
		})
	})

	c, _ := newTestClient(t, mux)

	result, err := c.Search(context.Background(), "42", 1, model.SearchSortLatest)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Comic == nil || result.Page != nil {
		t.Fatalf("expected direct comic hit, got %+v", result)
	}
	if result.Comic.ID != 42 {
		t.Errorf("comic ID = %d", result.Comic.ID)
	}
}

func TestSearchPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": model.SearchPage{
				Hits:  []model.SearchHit{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
				Page:  1,
				Total: 2,
			},
		})
	})

	c, _ := newTestClient(t, mux)

	result, err := c.Search(context.Background(), "harbor", 1, model.SearchSortViews)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Page == nil || result.Comic != nil {
		t.Fatalf("expected hit page, got %+v", result)
	}
	if len(result.Page.Hits) != 2 {
		t.Errorf("hits = %d, want 2", len(result.Page.Hits))
	}
}

func TestRetryAfterHonored(t *testing.T) {
	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/comics/1", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(model.Comic{ID: 1, Title: "x"})
	})

	c, _ := newTestClient(t, mux)

	start := time.Now()
	if _, err := c.GetComic(context.Background(), 1); err != nil {
		t.Fatalf("GetComic failed after rate limit: %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("second attempt fired after %v, expected Retry-After wait", elapsed)
	}
}

func TestServerErrorRetried(t *testing.T) {
	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/comics/1", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(model.Comic{ID: 1, Title: "x"})
	})

	c, _ := newTestClient(t, mux)

	if _, err := c.GetComic(context.Background(), 1); err != nil {
		t.Fatalf("GetComic failed: %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestNotFoundIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/comics/9", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	})

	c, _ := newTestClient(t, mux)

	if _, err := c.GetComic(context.Background(), 9); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 404)", got)
	}
}

func TestUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, _ := newTestClient(t, mux)

	_, err := c.GetUserProfile(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestGetFavoritePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/favorites", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("folder") != "0" || q.Get("page") != "2" || q.Get("sort") != "recent" {
			t.Errorf("unexpected query: %v", q)
		}
		json.NewEncoder(w).Encode(model.FavoritePage{
			List:  []model.FavoriteEntry{{ID: "11", Title: "A"}},
			Total: "37",
			Count: 20,
		})
	})

	c, _ := newTestClient(t, mux)

	fav, err := c.GetFavoritePage(context.Background(), 0, 2, model.FavoriteSortRecent)
	if err != nil {
		t.Fatalf("GetFavoritePage failed: %v", err)
	}
	if fav.Total != "37" || fav.Count != 20 || len(fav.List) != 1 {
		t.Errorf("unexpected page: %+v", fav)
	}
}

func TestToggleFavorite(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/favorites/toggle", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad toggle body: %v", err)
		}
		if body["comic_id"] != 77 {
			t.Errorf("comic_id = %d", body["comic_id"])
		}
		json.NewEncoder(w).Encode(model.ToggleFavoriteResult{Type: model.ToggleAdd})
	})

	c, _ := newTestClient(t, mux)

	result, err := c.ToggleFavorite(context.Background(), 77)
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if result.Type != model.ToggleAdd {
		t.Errorf("toggle type = %q", result.Type)
	}
}

func TestGetImage(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	mux := http.NewServeMux()
	mux.HandleFunc("/img/0001.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})

	c, server := newTestClient(t, mux)

	data, err := c.GetImage(context.Background(), server.URL+"/img/0001.jpg")
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("image bytes = %d, want %d", len(data), len(payload))
	}
}

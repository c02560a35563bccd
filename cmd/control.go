package cmd

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tanko-dl/tanko/internal/config"
	"github.com/tanko-dl/tanko/internal/core"
	"github.com/tanko-dl/tanko/internal/download"
	"github.com/tanko-dl/tanko/internal/utils"
)

// controlHandler exposes a running instance to other tanko processes on
// this machine. Everything except /health requires the control token.
type controlHandler struct {
	service core.Service
	port    int
}

func (h *controlHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Debug("Failed to encode control response: %v", err)
	}
}

// chapterParam reads a positive chapter or comic ID query parameter.
func chapterParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return id, err == nil && id > 0
}

func (h *controlHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{"status": "ok", "port": h.port, "version": Version})
}

func (h *controlHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.service.Tasks())
}

func (h *controlHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	comicID, ok := chapterParam(r, "comic")
	if !ok {
		http.Error(w, "Missing or invalid comic parameter", http.StatusBadRequest)
		return
	}

	created, err := h.service.DownloadComic(r.Context(), comicID)
	switch {
	case errors.Is(err, download.ErrNothingToDownload):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]any{"status": "queued", "created": created})
}

// signal routes pause, resume and cancel; they only differ in the
// service call.
func (h *controlHandler) signal(action string, call func(int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chapterID, ok := chapterParam(r, "chapter")
		if !ok {
			http.Error(w, "Missing or invalid chapter parameter", http.StatusBadRequest)
			return
		}

		if err := call(chapterID); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, download.ErrTaskNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		h.writeJSON(w, map[string]any{"status": action, "chapter": chapterID})
	}
}

func (h *controlHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	created, err := h.service.UpdateDownloadedFavorites(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]any{"status": "synced", "created": created})
}

// startControlServer serves the control endpoint on an existing
// listener until the process exits.
func startControlServer(ln net.Listener, port int, service core.Service) {
	token := ensureControlToken()
	handler := &controlHandler{service: service, port: port}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/tasks", handler.Tasks)
	mux.HandleFunc("/queue", handler.Queue)
	mux.HandleFunc("/pause", handler.signal("paused", service.Pause))
	mux.HandleFunc("/resume", handler.signal("resumed", service.Resume))
	mux.HandleFunc("/cancel", handler.signal("cancelled", service.Cancel))
	mux.HandleFunc("/sync", handler.Sync)

	server := &http.Server{Handler: authMiddleware(token, mux)}
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		utils.Debug("Control server error: %v", err)
	}
}

// authMiddleware requires the bearer token on everything but /health.
func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			provided := strings.TrimPrefix(authHeader, "Bearer ")
			if len(provided) == len(token) && subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// ensureControlToken reads the per-user control token, creating it on
// first use.
func ensureControlToken() string {
	tokenFile := filepath.Join(config.GetTankoDir(), "control-token")
	data, err := os.ReadFile(tokenFile)
	if err == nil {
		return strings.TrimSpace(string(data))
	}

	token := uuid.New().String()
	if err := os.WriteFile(tokenFile, []byte(token), 0o600); err != nil {
		utils.Debug("Failed to write control token file: %v", err)
	}
	return token
}

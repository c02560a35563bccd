// Package core wires the shelf client, the download engine, the library
// and the history store into one backend shared by the TUI and the CLI.
package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/tanko-dl/tanko/internal/client"
	"github.com/tanko-dl/tanko/internal/config"
	"github.com/tanko-dl/tanko/internal/download"
	"github.com/tanko-dl/tanko/internal/export"
	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
	"github.com/tanko-dl/tanko/internal/store"
	"github.com/tanko-dl/tanko/internal/utils"
)

// ErrNotConfigured indicates no shelf connection exists yet. The base URL
// comes from settings, the session from `tanko login`.
var ErrNotConfigured = errors.New("shelf is not configured: set the base URL and log in first")

var _ Service = (*LocalService)(nil)

// LocalService implements Service against the embedded engine.
type LocalService struct {
	client   *client.Client
	manager  *download.Manager
	lib      *library.Library
	exporter *export.Exporter

	listeners  []chan any
	listenerMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	settings   *config.Settings
	settingsMu sync.RWMutex
}

// NewLocalService builds the backend from settings. cli may be nil when
// no shelf is configured; offline operations keep working and network
// operations return ErrNotConfigured.
func NewLocalService(cli *client.Client, settings *config.Settings) *LocalService {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	lib := library.New(settings.General.DownloadDir)

	var fetcher download.Fetcher
	if cli != nil {
		fetcher = cli
	}
	manager := download.NewManager(fetcher, lib, download.Options{
		ConcurrentFetches: int64(settings.Performance.ConcurrentFetches),
		MaxPageRetries:    uint64(settings.Performance.MaxPageRetries),
		RetryBaseDelay:    settings.Performance.RetryBaseDelay,
	})

	exportDir := settings.General.ExportDir
	if exportDir == "" {
		exportDir = filepath.Join(settings.General.DownloadDir, "exports")
	}

	s := &LocalService{
		client:   cli,
		manager:  manager,
		lib:      lib,
		exporter: export.New(lib, exportDir),
		settings: settings,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	go s.broadcastLoop()
	return s
}

// broadcastLoop fans the engine's event stream out to every listener.
// Sends never block; a listener that stops draining loses events.
func (s *LocalService) broadcastLoop() {
	for {
		select {
		case <-s.ctx.Done():
			s.listenerMu.Lock()
			for _, ch := range s.listeners {
				close(ch)
			}
			s.listeners = nil
			s.listenerMu.Unlock()
			return
		case ev := <-s.manager.Events():
			s.listenerMu.Lock()
			for _, ch := range s.listeners {
				select {
				case ch <- ev:
				default:
				}
			}
			s.listenerMu.Unlock()
		}
	}
}

// StreamEvents registers a listener on the engine's event stream. The
// channel is closed on Shutdown.
func (s *LocalService) StreamEvents() <-chan any {
	ch := make(chan any, 100)
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, ch)
	s.listenerMu.Unlock()
	return ch
}

// Shutdown stops every runner, then closes the listener channels.
func (s *LocalService) Shutdown() error {
	s.manager.Shutdown()
	s.cancel()
	return nil
}

func (s *LocalService) requireClient() error {
	if s.client == nil {
		return ErrNotConfigured
	}
	return nil
}

// Login authenticates against the shelf and persists the session for the
// next run.
func (s *LocalService) Login(ctx context.Context, username, password string) (*model.UserProfile, error) {
	if err := s.requireClient(); err != nil {
		return nil, err
	}
	profile, err := s.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	session := &config.Session{
		Token:    s.client.Token(),
		Username: profile.Username,
		SavedAt:  time.Now(),
	}
	if err := config.SaveSession(session); err != nil {
		utils.Debug("Failed to persist session: %v", err)
	}
	return profile, nil
}

// Profile returns the logged-in account.
func (s *LocalService) Profile(ctx context.Context) (*model.UserProfile, error) {
	if err := s.requireClient(); err != nil {
		return nil, err
	}
	return s.client.GetUserProfile(ctx)
}

// Search queries the shelf.
func (s *LocalService) Search(ctx context.Context, keyword string, page int64, sort model.SearchSort) (*model.SearchResult, error) {
	if err := s.requireClient(); err != nil {
		return nil, err
	}
	result, err := s.client.Search(ctx, keyword, page, sort)
	if err != nil {
		return nil, err
	}
	if result.Comic != nil {
		s.lib.MarkDownloaded(result.Comic)
	}
	return result, nil
}

// Comic fetches a comic with downloaded flags filled in from the library.
func (s *LocalService) Comic(ctx context.Context, comicID int64) (*model.Comic, error) {
	if err := s.requireClient(); err != nil {
		return nil, err
	}
	comic, err := s.client.GetComic(ctx, comicID)
	if err != nil {
		return nil, err
	}
	s.lib.MarkDownloaded(comic)
	return comic, nil
}

// DownloadComic fetches a comic and queues every chapter the library is
// missing.
func (s *LocalService) DownloadComic(ctx context.Context, comicID int64) (int, error) {
	if err := s.requireClient(); err != nil {
		return 0, err
	}
	comic, err := s.client.GetComic(ctx, comicID)
	if err != nil {
		return 0, err
	}
	return s.manager.DownloadComic(comic)
}

// DownloadChapter fetches a comic and queues one of its chapters.
func (s *LocalService) DownloadChapter(ctx context.Context, comicID, chapterID int64) error {
	if err := s.requireClient(); err != nil {
		return err
	}
	comic, err := s.client.GetComic(ctx, comicID)
	if err != nil {
		return err
	}
	// Metadata first so the comic shows up in the library either way.
	if err := s.lib.SaveMetadata(comic); err != nil {
		return err
	}
	return s.manager.CreateDownloadTask(comic, chapterID)
}

// Pause signals a chapter's task to hold at its next checkpoint.
func (s *LocalService) Pause(chapterID int64) error {
	return s.manager.PauseDownloadTask(chapterID)
}

// Resume lets a paused task continue.
func (s *LocalService) Resume(chapterID int64) error {
	return s.manager.ResumeDownloadTask(chapterID)
}

// Cancel stops a task at its next checkpoint.
func (s *LocalService) Cancel(chapterID int64) error {
	return s.manager.CancelDownloadTask(chapterID)
}

// Tasks snapshots every known task.
func (s *LocalService) Tasks() []download.TaskView {
	return s.manager.Tasks()
}

// Task snapshots one chapter's task.
func (s *LocalService) Task(chapterID int64) (download.TaskView, bool) {
	return s.manager.Task(chapterID)
}

// ClearFinished drops terminal tasks from the registry.
func (s *LocalService) ClearFinished() int {
	return s.manager.ClearFinished()
}

// UpdateDownloadedFavorites syncs the favorites folder against the
// library.
func (s *LocalService) UpdateDownloadedFavorites(ctx context.Context) (int, error) {
	if err := s.requireClient(); err != nil {
		return 0, err
	}
	return s.manager.UpdateDownloadedFavorites(ctx)
}

// SyncFavoriteFolder verifies favorite toggling round-trips.
func (s *LocalService) SyncFavoriteFolder(ctx context.Context) error {
	if err := s.requireClient(); err != nil {
		return err
	}
	return s.manager.SyncFavoriteFolder(ctx)
}

// DownloadedComics lists the library contents, newest first.
func (s *LocalService) DownloadedComics() ([]*model.Comic, error) {
	return s.lib.DownloadedComics()
}

// DownloadedComic finds one library comic by ID.
func (s *LocalService) DownloadedComic(comicID int64) (*model.Comic, error) {
	comics, err := s.lib.DownloadedComics()
	if err != nil {
		return nil, err
	}
	for _, comic := range comics {
		if comic.ID == comicID {
			return comic, nil
		}
	}
	return nil, fmt.Errorf("comic %d is not in the library", comicID)
}

// ExportComic packs every downloaded chapter of a library comic.
func (s *LocalService) ExportComic(format export.Format, comicID int64) ([]string, error) {
	comic, err := s.DownloadedComic(comicID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Comic(format, comic)
}

// ExportChapter packs a single downloaded chapter of a library comic.
func (s *LocalService) ExportChapter(format export.Format, comicID, chapterID int64) (string, error) {
	comic, err := s.DownloadedComic(comicID)
	if err != nil {
		return "", err
	}
	ch, ok := comic.Chapter(chapterID)
	if !ok {
		return "", fmt.Errorf("comic %q has no chapter %d", comic.Title, chapterID)
	}
	return s.exporter.Chapter(format, comic.Title, ch)
}

// History lists finished tasks, newest first. limit <= 0 means all.
func (s *LocalService) History(limit int) ([]store.Entry, error) {
	return store.ListRecent(limit)
}

// RemoveHistory deletes one history row.
func (s *LocalService) RemoveHistory(id string) error {
	return store.Remove(id)
}

// ClearHistory deletes all history rows and reports how many went.
func (s *LocalService) ClearHistory() (int64, error) {
	return store.Clear()
}

// Settings returns a copy of the cached settings.
func (s *LocalService) Settings() config.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return *s.settings
}

// ReloadSettings re-reads settings from disk into the cache.
func (s *LocalService) ReloadSettings() error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
	return nil
}

// UpdateSettings applies a mutation to the settings, persists them and
// refreshes the cache. Changes to performance knobs take effect on the
// next start.
func (s *LocalService) UpdateSettings(apply func(*config.Settings)) (config.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	updated := *s.settings
	apply(&updated)
	if err := config.SaveSettings(&updated); err != nil {
		return config.Settings{}, err
	}
	s.settings = &updated
	return updated, nil
}

// Package download is the orchestration engine: it turns chapter download
// intents into bounded concurrent page fetches, tracks each task through
// its lifecycle, and reports progress as events.
package download

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tanko-dl/tanko/internal/events"
	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
	"github.com/tanko-dl/tanko/internal/utils"
)

// Fetcher is the slice of the shelf client the engine consumes.
type Fetcher interface {
	GetComic(ctx context.Context, comicID int64) (*model.Comic, error)
	GetChapter(ctx context.Context, chapterID int64) (*model.Chapter, error)
	GetImage(ctx context.Context, imageURL string) ([]byte, error)
	GetFavoritePage(ctx context.Context, folderID, page int64, sort model.FavoriteSort) (*model.FavoritePage, error)
	ToggleFavorite(ctx context.Context, comicID int64) (*model.ToggleFavoriteResult, error)
}

const (
	// DefaultConcurrentFetches bounds simultaneous in-flight fetches
	// across all runners and the favorites sync.
	DefaultConcurrentFetches = 10
	// DefaultMaxPageRetries is how often one page fetch is retried
	// before its task fails.
	DefaultMaxPageRetries = 3
	// DefaultRetryBaseDelay is the first retry backoff interval.
	DefaultRetryBaseDelay = 200 * time.Millisecond

	eventBuffer = 100
)

// Options tune the engine. Zero values fall back to the defaults.
type Options struct {
	ConcurrentFetches int64
	MaxPageRetries    uint64
	RetryBaseDelay    time.Duration
}

// Manager coordinates download tasks: it owns the registry, spawns one
// runner per task, and multiplexes their progress into a single event
// stream.
type Manager struct {
	fetcher Fetcher
	lib     *library.Library
	sem     *semaphore.Weighted
	reg     *registry
	events  chan any

	maxRetries uint64
	baseDelay  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wires the engine up. The fetcher performs all network I/O
// and the library resolves destination directories.
func NewManager(fetcher Fetcher, lib *library.Library, opts Options) *Manager {
	if opts.ConcurrentFetches <= 0 {
		opts.ConcurrentFetches = DefaultConcurrentFetches
	}
	if opts.MaxPageRetries == 0 {
		opts.MaxPageRetries = DefaultMaxPageRetries
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		fetcher:    fetcher,
		lib:        lib,
		sem:        semaphore.NewWeighted(opts.ConcurrentFetches),
		reg:        newRegistry(),
		events:     make(chan any, eventBuffer),
		maxRetries: opts.MaxPageRetries,
		baseDelay:  opts.RetryBaseDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Events returns the progress stream. Delivery is best effort: when no
// one drains the channel, events are dropped rather than blocking a
// runner.
func (m *Manager) Events() <-chan any {
	return m.events
}

func (m *Manager) emit(ev any) {
	select {
	case m.events <- ev:
	default:
		utils.Debug("Event buffer full, dropping %T", ev)
	}
}

// CreateDownloadTask queues one chapter of a comic. Calling it again
// while the chapter's task is still live is a no-op success; after a
// terminal task it starts a fresh one.
func (m *Manager) CreateDownloadTask(comic *model.Comic, chapterID int64) error {
	if comic == nil || comic.ID == 0 || comic.Title == "" {
		return fmt.Errorf("create download task: %w", ErrInvalidPayload)
	}
	ch, ok := comic.Chapter(chapterID)
	if !ok {
		return fmt.Errorf("create download task: comic %q has no chapter %d: %w", comic.Title, chapterID, ErrInvalidPayload)
	}

	t, fresh := m.reg.upsert(comic, ch)
	if !fresh {
		utils.Debug("Task for chapter %d already live, create is a no-op", chapterID)
		return nil
	}

	m.emit(events.TaskQueuedMsg{
		ChapterID:    t.chapterID,
		ComicID:      t.comicID,
		ComicTitle:   t.comicTitle,
		ChapterTitle: t.chapterTitle,
	})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(t, ch)
	}()
	return nil
}

// PauseDownloadTask asks a chapter's runner to hold at its next
// checkpoint.
func (m *Manager) PauseDownloadTask(chapterID int64) error {
	return m.reg.signal(chapterID, signalPause)
}

// ResumeDownloadTask lets a paused runner continue from the last
// completed page.
func (m *Manager) ResumeDownloadTask(chapterID int64) error {
	return m.reg.signal(chapterID, signalResume)
}

// CancelDownloadTask stops a chapter's runner at its next checkpoint.
// Pages already on disk stay in place.
func (m *Manager) CancelDownloadTask(chapterID int64) error {
	return m.reg.signal(chapterID, signalCancel)
}

// Task returns a snapshot of one chapter's task.
func (m *Manager) Task(chapterID int64) (TaskView, bool) {
	t, ok := m.reg.get(chapterID)
	if !ok {
		return TaskView{}, false
	}
	return t.view(), true
}

// Tasks snapshots every known task, ordered by comic title then reading
// order.
func (m *Manager) Tasks() []TaskView {
	return m.reg.list()
}

// ClearFinished drops terminal tasks from the registry.
func (m *Manager) ClearFinished() int {
	return m.reg.clearFinished()
}

// DownloadComic saves the comic's metadata and queues a task for every
// chapter not yet in the library. It returns how many tasks it created,
// or ErrNothingToDownload when the library already has everything.
func (m *Manager) DownloadComic(comic *model.Comic) (int, error) {
	if comic == nil || comic.ID == 0 || comic.Title == "" {
		return 0, fmt.Errorf("download comic: %w", ErrInvalidPayload)
	}

	m.lib.MarkDownloaded(comic)
	pending := comic.UndownloadedChapterIDs()
	if len(pending) == 0 {
		return 0, fmt.Errorf("download comic %q: %w", comic.Title, ErrNothingToDownload)
	}

	// Metadata first so the comic is restorable even if every task fails.
	if err := m.lib.SaveMetadata(comic); err != nil {
		return 0, err
	}

	created := 0
	for _, chapterID := range pending {
		if err := m.CreateDownloadTask(comic, chapterID); err != nil {
			return created, err
		}
		created++
	}
	utils.Debug("Queued %d chapters of %q", created, comic.Title)
	return created, nil
}

// Shutdown stops every runner and waits for them to wind down.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}

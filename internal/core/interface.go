package core

import (
	"context"

	"github.com/tanko-dl/tanko/internal/download"
	"github.com/tanko-dl/tanko/internal/model"
)

// Service is the backend surface the TUI drives. The CLI commands use the
// concrete LocalService directly; the interface keeps the TUI decoupled
// from how the backend is wired.
type Service interface {
	// Search queries the shelf by keyword or comic ID.
	Search(ctx context.Context, keyword string, page int64, sort model.SearchSort) (*model.SearchResult, error)

	// Comic fetches a comic with its chapter list, downloaded flags filled
	// in from the library.
	Comic(ctx context.Context, comicID int64) (*model.Comic, error)

	// DownloadComic queues every chapter of a comic that is not in the
	// library yet and returns how many tasks it created.
	DownloadComic(ctx context.Context, comicID int64) (int, error)

	// DownloadChapter queues a single chapter.
	DownloadChapter(ctx context.Context, comicID, chapterID int64) error

	// Pause, Resume and Cancel signal a chapter's task.
	Pause(chapterID int64) error
	Resume(chapterID int64) error
	Cancel(chapterID int64) error

	// Tasks snapshots every known task.
	Tasks() []download.TaskView

	// ClearFinished drops terminal tasks and reports how many went.
	ClearFinished() int

	// UpdateDownloadedFavorites syncs the favorites folder against the
	// library and queues what is missing.
	UpdateDownloadedFavorites(ctx context.Context) (int, error)

	// DownloadedComics lists the library contents, newest first.
	DownloadedComics() ([]*model.Comic, error)

	// StreamEvents returns a channel receiving live task and sync events.
	StreamEvents() <-chan any

	// Shutdown winds the backend down gracefully.
	Shutdown() error
}

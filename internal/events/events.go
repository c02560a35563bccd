// Package events defines the messages the download engine pushes to
// consumers (TUI, headless CLI). Delivery is best-effort; producers never
// block on a slow consumer.
package events

import "time"

// TaskQueuedMsg is sent when a download task is created.
type TaskQueuedMsg struct {
	ChapterID    int64
	ComicID      int64
	ComicTitle   string
	ChapterTitle string
}

// TaskStartedMsg is sent when a runner learns the page count and begins
// fetching.
type TaskStartedMsg struct {
	ChapterID  int64
	ComicTitle string
	TotalPages int
}

// TaskProgressMsg is sent after each page lands.
type TaskProgressMsg struct {
	ChapterID int64
	Completed int
	Total     int
}

// TaskPausedMsg is sent when a runner honors a pause signal.
type TaskPausedMsg struct {
	ChapterID int64
}

// TaskResumedMsg is sent when a paused runner continues.
type TaskResumedMsg struct {
	ChapterID int64
}

// TaskCancelledMsg is sent when a runner honors a cancel signal.
type TaskCancelledMsg struct {
	ChapterID int64
}

// TaskCompletedMsg is sent when every page of a chapter is on disk.
type TaskCompletedMsg struct {
	ChapterID  int64
	ComicTitle string
	Pages      int
	Elapsed    time.Duration
}

// TaskFailedMsg is sent when a task exhausts its retries or hits a fatal
// error.
type TaskFailedMsg struct {
	ChapterID  int64
	ComicTitle string
	Err        error
}

// SyncStartedMsg is the first favorites-sync milestone: enumeration of
// the favorites folder has begun.
type SyncStartedMsg struct{}

// SyncFetchingComicsMsg is the second milestone: enumeration finished,
// Total comic details will now be fetched.
type SyncFetchingComicsMsg struct {
	Total int
}

// SyncComicFetchedMsg is emitted once per fetched comic detail, in
// completion order.
type SyncComicFetchedMsg struct {
	Current int
	Total   int
}

// SyncTasksCreatedMsg is the final milestone: download tasks for every
// missing chapter have been queued.
type SyncTasksCreatedMsg struct {
	Created int
}

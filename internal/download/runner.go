package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tanko-dl/tanko/internal/client"
	"github.com/tanko-dl/tanko/internal/events"
	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
	"github.com/tanko-dl/tanko/internal/store"
	"github.com/tanko-dl/tanko/internal/utils"
)

// run drives one task from Pending to a terminal state. Page fetches are
// strictly sequential within the task; the control channel is consulted
// before the chapter fetch and between pages, never mid-fetch.
func (m *Manager) run(t *task, ch model.ChapterInfo) {
	start := time.Now()

	if !m.checkpoint(t) {
		return
	}
	t.setState(StateRunning)

	// Nothing to do when the chapter is already in the library.
	if m.lib.IsChapterDownloaded(t.comicTitle, ch) {
		pages := 0
		if entries, err := os.ReadDir(m.lib.ChapterDir(t.comicTitle, ch)); err == nil {
			pages = len(entries)
		}
		t.setProgress(pages, pages)
		t.setState(StateCompleted)
		utils.Debug("Chapter %d of %q already downloaded, completing without fetch", t.chapterID, t.comicTitle)
		m.emit(events.TaskCompletedMsg{
			ChapterID:  t.chapterID,
			ComicTitle: t.comicTitle,
			Pages:      pages,
			Elapsed:    time.Since(start),
		})
		return
	}

	chapter, err := m.fetchChapter(t)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.finishCancelled(t)
			return
		}
		m.finishFailed(t, start, err)
		return
	}

	total := len(chapter.Pages)
	t.setTotal(total)
	m.emit(events.TaskStartedMsg{
		ChapterID:  t.chapterID,
		ComicTitle: t.comicTitle,
		TotalPages: total,
	})

	tempDir := m.lib.TempChapterDir(t.comicTitle, ch)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		m.finishFailed(t, start, fmt.Errorf("create chapter dir for %q: %w", t.comicTitle, err))
		return
	}

	for i, pageURL := range chapter.Pages {
		if !m.checkpoint(t) {
			return
		}

		// Pages left behind by an earlier run are kept, not re-fetched.
		pagePath := library.PagePath(tempDir, i+1, pageURL)
		if _, err := os.Stat(pagePath); err == nil {
			completed, total := t.advance()
			m.emit(events.TaskProgressMsg{ChapterID: t.chapterID, Completed: completed, Total: total})
			continue
		}

		data, err := m.fetchPage(t, i+1, pageURL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				m.finishCancelled(t)
				return
			}
			m.finishFailed(t, start, err)
			return
		}

		if err := os.WriteFile(pagePath, data, 0o644); err != nil {
			m.finishFailed(t, start, fmt.Errorf("write page %d of %q: %w", i+1, t.chapterTitle, err))
			return
		}

		completed, total := t.advance()
		m.emit(events.TaskProgressMsg{ChapterID: t.chapterID, Completed: completed, Total: total})
	}

	if err := m.lib.FinalizeChapter(t.comicTitle, ch); err != nil {
		m.finishFailed(t, start, err)
		return
	}

	t.setState(StateCompleted)
	elapsed := time.Since(start)
	completed, _ := t.progress()

	// History lands before the event so a consumer reacting to the
	// event already finds the row.
	m.recordHistory(t, "completed", elapsed)
	m.emit(events.TaskCompletedMsg{
		ChapterID:  t.chapterID,
		ComicTitle: t.comicTitle,
		Pages:      completed,
		Elapsed:    elapsed,
	})
	utils.Debug("Chapter %d of %q completed in %v", t.chapterID, t.comicTitle, elapsed)
}

// checkpoint handles any pending control signal. It returns false when
// the task must stop.
func (m *Manager) checkpoint(t *task) bool {
	select {
	case s := <-t.control:
		return m.handleSignal(t, s)
	case <-m.ctx.Done():
		m.finishCancelled(t)
		return false
	default:
		return true
	}
}

func (m *Manager) handleSignal(t *task, s signal) bool {
	switch s {
	case signalCancel:
		m.finishCancelled(t)
		return false

	case signalPause:
		t.setState(StatePaused)
		m.emit(events.TaskPausedMsg{ChapterID: t.chapterID})
		utils.Debug("Task %d paused at page %d", t.chapterID, func() int { c, _ := t.progress(); return c }())

		// Hold here until resumed or cancelled.
		for {
			select {
			case next := <-t.control:
				switch next {
				case signalResume:
					t.setState(StateRunning)
					m.emit(events.TaskResumedMsg{ChapterID: t.chapterID})
					return true
				case signalCancel:
					m.finishCancelled(t)
					return false
				}
			case <-m.ctx.Done():
				m.finishCancelled(t)
				return false
			}
		}

	default:
		// A resume while running changes nothing.
		return true
	}
}

func (m *Manager) finishCancelled(t *task) {
	t.setState(StateCancelled)
	m.emit(events.TaskCancelledMsg{ChapterID: t.chapterID})
	utils.Debug("Task %d cancelled", t.chapterID)
}

func (m *Manager) finishFailed(t *task, start time.Time, err error) {
	t.fail(err.Error())
	m.recordHistory(t, "failed", time.Since(start))
	m.emit(events.TaskFailedMsg{ChapterID: t.chapterID, ComicTitle: t.comicTitle, Err: err})
	utils.Debug("Task %d failed: %v", t.chapterID, err)
}

func (m *Manager) recordHistory(t *task, status string, elapsed time.Duration) {
	completed, total := t.progress()
	if err := store.Record(store.Entry{
		ComicID:      t.comicID,
		ComicTitle:   t.comicTitle,
		ChapterID:    t.chapterID,
		ChapterTitle: t.chapterTitle,
		Pages:        completed,
		TotalPages:   total,
		Status:       status,
		FinishedAt:   time.Now().Unix(),
		TimeTaken:    elapsed.Milliseconds(),
	}); err != nil {
		utils.Debug("Failed to persist %s task %d: %v", status, t.chapterID, err)
	}
}

// fetchChapter resolves the chapter's page list through the limiter,
// retrying transient failures.
func (m *Manager) fetchChapter(t *task) (*model.Chapter, error) {
	var chapter *model.Chapter
	op := func() error {
		if err := m.sem.Acquire(m.ctx, 1); err != nil {
			return backoff.Permanent(err)
		}
		c, err := m.fetcher.GetChapter(m.ctx, t.chapterID)
		m.sem.Release(1)
		if err != nil {
			if permanentFetchError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		chapter = c
		return nil
	}
	if err := backoff.Retry(op, m.newRetryPolicy()); err != nil {
		return nil, fmt.Errorf("fetch chapter %q of %q: %w", t.chapterTitle, t.comicTitle, err)
	}
	return chapter, nil
}

// fetchPage downloads one page image through the limiter, retrying
// transient failures up to the configured bound. The permit is held only
// while the fetch itself is in flight, not across backoff sleeps.
func (m *Manager) fetchPage(t *task, page int, pageURL string) ([]byte, error) {
	var data []byte
	op := func() error {
		if err := m.sem.Acquire(m.ctx, 1); err != nil {
			return backoff.Permanent(err)
		}
		b, err := m.fetcher.GetImage(m.ctx, pageURL)
		m.sem.Release(1)
		if err != nil {
			if permanentFetchError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		data = b
		return nil
	}
	if err := backoff.Retry(op, m.newRetryPolicy()); err != nil {
		return nil, fmt.Errorf("fetch page %d of %q: %w", page, t.chapterTitle, err)
	}
	return data, nil
}

func (m *Manager) newRetryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.baseDelay
	b.MaxInterval = 10 * m.baseDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, m.maxRetries), m.ctx)
}

// permanentFetchError reports failures that more retries cannot fix.
func permanentFetchError(err error) bool {
	return errors.Is(err, client.ErrUnauthorized) || errors.Is(err, context.Canceled)
}

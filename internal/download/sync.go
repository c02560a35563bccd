package download

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tanko-dl/tanko/internal/events"
	"github.com/tanko-dl/tanko/internal/model"
	"github.com/tanko-dl/tanko/internal/utils"
)

const (
	// favoritesFolderID is the shelf's default folder holding every
	// favorite.
	favoritesFolderID = 0

	// favoriteProbeComicID is toggled twice in a row to force the shelf
	// to rebuild its favorites index.
	favoriteProbeComicID = 468984
)

// UpdateDownloadedFavorites refreshes the favorites folder and queues
// tasks for newly published chapters of comics the library already
// tracks. It runs in two phases: enumerate every favorites page, then
// fetch each comic's detail through the limiter. A failure in either
// phase aborts the whole sync and no tasks are created.
//
// It returns how many tasks it queued.
func (m *Manager) UpdateDownloadedFavorites(ctx context.Context) (int, error) {
	m.emit(events.SyncStartedMsg{})

	first, err := m.fetcher.GetFavoritePage(ctx, favoritesFolderID, 1, model.FavoriteSortRecent)
	if err != nil {
		return 0, fmt.Errorf("fetch favorites page 1: %w", err)
	}

	// The shelf reports the favorite total as a string.
	total, err := strconv.ParseInt(first.Total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse favorites total %q: %w", first.Total, err)
	}
	perPage := first.Count
	if perPage <= 0 {
		perPage = int64(len(first.List))
	}
	pageCount := int64(1)
	if perPage > 0 {
		pageCount = total/perPage + 1
	}

	entries := make([]model.FavoriteEntry, 0, total)
	entries = append(entries, first.List...)

	// Phase 1: the remaining pages in parallel. Pagination calls are few
	// and cheap, so they bypass the limiter.
	var entriesMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for page := int64(2); page <= pageCount; page++ {
		g.Go(func() error {
			p, err := m.fetcher.GetFavoritePage(gctx, favoritesFolderID, page, model.FavoriteSortRecent)
			if err != nil {
				return fmt.Errorf("fetch favorites page %d: %w", page, err)
			}
			entriesMu.Lock()
			entries = append(entries, p.List...)
			entriesMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	m.emit(events.SyncFetchingComicsMsg{Total: len(entries)})

	// Phase 2: one detail fetch per favorite, at most ConcurrentFetches
	// in flight. The permit is released before touching the shared list.
	comics := make([]*model.Comic, 0, len(entries))
	var comicsMu sync.Mutex
	var fetched atomic.Int64
	g2, gctx2 := errgroup.WithContext(ctx)
	for _, entry := range entries {
		g2.Go(func() error {
			comicID, err := strconv.ParseInt(entry.ID, 10, 64)
			if err != nil {
				return fmt.Errorf("parse favorite comic id %q: %w", entry.ID, err)
			}
			if err := m.sem.Acquire(gctx2, 1); err != nil {
				return err
			}
			comic, err := m.fetcher.GetComic(gctx2, comicID)
			m.sem.Release(1)
			if err != nil {
				return fmt.Errorf("fetch comic %q: %w", entry.Title, err)
			}

			comicsMu.Lock()
			comics = append(comics, comic)
			comicsMu.Unlock()
			m.emit(events.SyncComicFetchedMsg{Current: int(fetched.Add(1)), Total: len(entries)})
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return 0, err
	}

	// Selection: only comics with at least one chapter already in the
	// library get their missing chapters queued.
	created := 0
	for _, comic := range comics {
		m.lib.MarkDownloaded(comic)
		if !comic.HasDownloadedChapter() {
			continue
		}
		if err := m.lib.SaveMetadata(comic); err != nil {
			return created, err
		}
		for _, chapterID := range comic.UndownloadedChapterIDs() {
			if err := m.CreateDownloadTask(comic, chapterID); err != nil {
				return created, err
			}
			created++
		}
	}

	m.emit(events.SyncTasksCreatedMsg{Created: created})
	utils.Debug("Favorites sync queued %d chapters across %d comics", created, len(comics))
	return created, nil
}

// SyncFavoriteFolder nudges the shelf to rebuild its favorites index by
// toggling a probe comic twice concurrently. A healthy shelf answers
// with one add and one remove; matching answers mean a toggle was lost.
func (m *Manager) SyncFavoriteFolder(ctx context.Context) error {
	var results [2]*model.ToggleFavoriteResult
	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			r, err := m.fetcher.ToggleFavorite(gctx, favoriteProbeComicID)
			if err != nil {
				return fmt.Errorf("toggle favorite probe: %w", err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if results[0].Type == results[1].Type {
		return fmt.Errorf("favorite folder sync failed: both toggles reported %q", results[0].Type)
	}
	return nil
}

package download

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tanko-dl/tanko/internal/model"
)

// fakeFetcher is an in-memory Fetcher with controllable latency, gating
// and failure injection.
type fakeFetcher struct {
	mu sync.Mutex

	comics   map[int64]*model.Comic
	chapters map[int64]*model.Chapter
	images   map[string][]byte
	favPages map[int64]*model.FavoritePage
	toggles  []model.ToggleType

	// imageErrs holds per-URL failure budgets: n > 0 fails the next n
	// calls, n < 0 fails every call.
	imageErrs map[string]int
	comicErrs map[int64]error
	pageErrs  map[int64]error

	// Gates, when set, make the matching fetch wait for one token per
	// call. Closing a gate lets everything through.
	imageGate   chan struct{}
	chapterGate chan struct{}

	comicDelay time.Duration

	imageCalls   map[string]int
	chapterCalls map[int64]int
	favPageCalls map[int64]int
	comicCalls   map[int64]int

	inFlightComics int
	maxInFlight    int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		comics:       make(map[int64]*model.Comic),
		chapters:     make(map[int64]*model.Chapter),
		images:       make(map[string][]byte),
		favPages:     make(map[int64]*model.FavoritePage),
		imageErrs:    make(map[string]int),
		comicErrs:    make(map[int64]error),
		pageErrs:     make(map[int64]error),
		imageCalls:   make(map[string]int),
		chapterCalls: make(map[int64]int),
		favPageCalls: make(map[int64]int),
		comicCalls:   make(map[int64]int),
	}
}

// makeComic builds a comic whose chapters are numbered in reading order.
func makeComic(id int64, title string, chapterIDs ...int64) *model.Comic {
	c := &model.Comic{ID: id, Title: title}
	for i, chapterID := range chapterIDs {
		c.Chapters = append(c.Chapters, model.ChapterInfo{
			ChapterID: chapterID,
			Title:     fmt.Sprintf("Chapter %d", i+1),
			Order:     i + 1,
		})
	}
	return c
}

// seedComic registers a comic so GetComic can resolve it.
func (f *fakeFetcher) seedComic(c *model.Comic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comics[c.ID] = c
}

// seedChapter registers a chapter with the given number of page images
// and returns their URLs.
func (f *fakeFetcher) seedChapter(c *model.Comic, chapterID int64, pages int) []string {
	urls := make([]string, pages)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://img.test/%d/%d/%04d.jpg", c.ID, chapterID, i+1)
	}
	info, _ := c.Chapter(chapterID)

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range urls {
		f.images[u] = []byte(fmt.Sprintf("img-%d-%d", chapterID, i+1))
	}
	f.chapters[chapterID] = &model.Chapter{
		ChapterID: chapterID,
		ComicID:   c.ID,
		Title:     info.Title,
		Pages:     urls,
	}
	return urls
}

func (f *fakeFetcher) totalImageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.imageCalls {
		total += n
	}
	return total
}

func (f *fakeFetcher) imageCallCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageCalls[url]
}

func (f *fakeFetcher) comicCallTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.comicCalls {
		total += n
	}
	return total
}

func waitGate(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFetcher) GetComic(ctx context.Context, comicID int64) (*model.Comic, error) {
	f.mu.Lock()
	f.comicCalls[comicID]++
	f.inFlightComics++
	if f.inFlightComics > f.maxInFlight {
		f.maxInFlight = f.inFlightComics
	}
	delay := f.comicDelay
	err := f.comicErrs[comicID]
	c := f.comics[comicID]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			f.mu.Lock()
			f.inFlightComics--
			f.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.inFlightComics--
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("no comic %d", comicID)
	}
	// Copy so library flag marking never mutates the seeded comic.
	clone := *c
	clone.Chapters = append([]model.ChapterInfo(nil), c.Chapters...)
	return &clone, nil
}

func (f *fakeFetcher) GetChapter(ctx context.Context, chapterID int64) (*model.Chapter, error) {
	f.mu.Lock()
	f.chapterCalls[chapterID]++
	gate := f.chapterGate
	ch := f.chapters[chapterID]
	f.mu.Unlock()

	if err := waitGate(ctx, gate); err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("no chapter %d", chapterID)
	}
	return ch, nil
}

func (f *fakeFetcher) GetImage(ctx context.Context, imageURL string) ([]byte, error) {
	f.mu.Lock()
	f.imageCalls[imageURL]++
	gate := f.imageGate
	budget := f.imageErrs[imageURL]
	if budget > 0 {
		f.imageErrs[imageURL] = budget - 1
	}
	data, ok := f.images[imageURL]
	f.mu.Unlock()

	if err := waitGate(ctx, gate); err != nil {
		return nil, err
	}
	if budget != 0 {
		return nil, fmt.Errorf("image fetch failed for %s", imageURL)
	}
	if !ok {
		return nil, fmt.Errorf("no image %s", imageURL)
	}
	return data, nil
}

func (f *fakeFetcher) GetFavoritePage(ctx context.Context, folderID, page int64, sort model.FavoriteSort) (*model.FavoritePage, error) {
	f.mu.Lock()
	f.favPageCalls[page]++
	err := f.pageErrs[page]
	p := f.favPages[page]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if p == nil {
		return &model.FavoritePage{FolderID: folderID, Total: "0"}, nil
	}
	return p, nil
}

func (f *fakeFetcher) ToggleFavorite(ctx context.Context, comicID int64) (*model.ToggleFavoriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.toggles) == 0 {
		return nil, fmt.Errorf("unexpected toggle for comic %d", comicID)
	}
	next := f.toggles[0]
	f.toggles = f.toggles[1:]
	return &model.ToggleFavoriteResult{Type: next}, nil
}

// Package testutil seeds library trees for tests that need downloaded
// comics on disk.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
)

// Comic builds a comic whose chapters are numbered in reading order.
func Comic(id int64, title string, chapterIDs ...int64) *model.Comic {
	comic := &model.Comic{ID: id, Title: title}
	for i, chapterID := range chapterIDs {
		comic.Chapters = append(comic.Chapters, model.ChapterInfo{
			ChapterID: chapterID,
			Title:     fmt.Sprintf("Chapter %d", i+1),
			Order:     i + 1,
		})
	}
	return comic
}

// SeedComic writes a fully downloaded comic into the library root:
// metadata plus a chapter directory with page files per chapter.
func SeedComic(t *testing.T, root string, comic *model.Comic, pagesPerChapter int) {
	t.Helper()

	lib := library.New(root)
	if err := lib.SaveMetadata(comic); err != nil {
		t.Fatalf("seed metadata for %q: %v", comic.Title, err)
	}
	for _, ch := range comic.Chapters {
		SeedChapter(t, root, comic.Title, ch, pagesPerChapter)
	}
}

// SeedChapter writes one downloaded chapter directory with page files.
func SeedChapter(t *testing.T, root, comicTitle string, ch model.ChapterInfo, pages int) {
	t.Helper()

	dir := library.New(root).ChapterDir(comicTitle, ch)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("seed chapter dir %s: %v", dir, err)
	}
	for p := 1; p <= pages; p++ {
		name := fmt.Sprintf("%04d.jpg", p)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("page "+name), 0o644); err != nil {
			t.Fatalf("seed page %s: %v", name, err)
		}
	}
}

package library

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tanko-dl/tanko/internal/model"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{`A/B\C:D*E?F"G<H>I|J`, "A_B_C_D_E_F_G_H_I_J"},
		{"  padded  ", "padded"},
		{"Trailing dots...", "Trailing dots"},
		{"", "untitled"},
		{"???", "___"},
	}
	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestChapterDirName(t *testing.T) {
	ch := model.ChapterInfo{ChapterID: 9, Title: "Vol. 1: Begin/End", Order: 3}
	got := ChapterDirName(ch)
	want := "003 Vol. 1_ Begin_End"
	if got != want {
		t.Errorf("ChapterDirName = %q, want %q", got, want)
	}
}

func TestPageFileName(t *testing.T) {
	cases := []struct {
		page int
		url  string
		want string
	}{
		{1, "https://img.example.com/a/b/001.jpg", "0001.jpg"},
		{12, "https://img.example.com/a/b/p.webp?sig=abc", "0012.webp"},
		{7, "https://img.example.com/a/b/noext", "0007"},
		{3, "https://img.example.com/x.veryverylongext", "0003"},
	}
	for _, c := range cases {
		if got := PageFileName(c.page, c.url); got != c.want {
			t.Errorf("PageFileName(%d, %q) = %q, want %q", c.page, c.url, got, c.want)
		}
	}
}

func TestMetadataStripsDownloadedFlags(t *testing.T) {
	lib := New(t.TempDir())

	comic := &model.Comic{
		ID:         42,
		Title:      "Strip Test",
		Downloaded: true,
		Chapters: []model.ChapterInfo{
			{ChapterID: 1, Title: "One", Order: 1, Downloaded: true},
			{ChapterID: 2, Title: "Two", Order: 2, Downloaded: true},
		},
	}
	if err := lib.SaveMetadata(comic); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(lib.ComicDir("Strip Test"), MetadataFile))
	if err != nil {
		t.Fatalf("reading metadata: %v", err)
	}
	if strings.Contains(string(raw), "downloaded") {
		t.Errorf("metadata should omit downloaded flags, got:\n%s", raw)
	}
	if !json.Valid(raw) {
		t.Fatalf("metadata is not valid JSON")
	}

	// Caller's copy keeps its flags
	if !comic.Downloaded || !comic.Chapters[0].Downloaded {
		t.Errorf("SaveMetadata mutated the caller's comic")
	}
}

func TestLoadMetadataDerivesFlagsFromTree(t *testing.T) {
	lib := New(t.TempDir())

	comic := &model.Comic{
		ID:    7,
		Title: "Derive Test",
		Chapters: []model.ChapterInfo{
			{ChapterID: 1, Title: "One", Order: 1},
			{ChapterID: 2, Title: "Two", Order: 2},
		},
	}
	if err := lib.SaveMetadata(comic); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	metadataPath := filepath.Join(lib.ComicDir("Derive Test"), MetadataFile)

	loaded, err := lib.LoadMetadata(metadataPath)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if loaded.Downloaded || loaded.Chapters[0].Downloaded {
		t.Errorf("no chapter dirs exist, expected all flags false")
	}

	// Chapter one lands on disk
	if err := os.MkdirAll(lib.ChapterDir("Derive Test", comic.Chapters[0]), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	loaded, err = lib.LoadMetadata(metadataPath)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if !loaded.Chapters[0].Downloaded {
		t.Errorf("chapter 1 directory exists, expected Downloaded true")
	}
	if loaded.Chapters[1].Downloaded {
		t.Errorf("chapter 2 has no directory, expected Downloaded false")
	}
	if loaded.Downloaded {
		t.Errorf("comic should not count as downloaded with a chapter missing")
	}

	// Chapter two lands too
	if err := os.MkdirAll(lib.ChapterDir("Derive Test", comic.Chapters[1]), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	loaded, err = lib.LoadMetadata(metadataPath)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if !loaded.Downloaded {
		t.Errorf("all chapters present, expected comic Downloaded true")
	}
}

func TestFinalizeChapter(t *testing.T) {
	lib := New(t.TempDir())
	ch := model.ChapterInfo{ChapterID: 1, Title: "One", Order: 1}

	temp := lib.TempChapterDir("Comic", ch)
	if err := os.MkdirAll(temp, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(temp, "0001.jpg"), []byte("page"), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}

	if lib.IsChapterDownloaded("Comic", ch) {
		t.Fatalf("chapter should not count as downloaded while .part")
	}
	if err := lib.FinalizeChapter("Comic", ch); err != nil {
		t.Fatalf("FinalizeChapter failed: %v", err)
	}
	if !lib.IsChapterDownloaded("Comic", ch) {
		t.Errorf("chapter should count as downloaded after finalize")
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Errorf(".part directory should be gone after finalize")
	}
	if _, err := os.Stat(filepath.Join(lib.ChapterDir("Comic", ch), "0001.jpg")); err != nil {
		t.Errorf("page file should survive finalize: %v", err)
	}
}

func TestDownloadedComicsNewestFirst(t *testing.T) {
	lib := New(t.TempDir())

	older := &model.Comic{ID: 1, Title: "Older", Chapters: []model.ChapterInfo{{ChapterID: 1, Title: "c", Order: 1}}}
	newer := &model.Comic{ID: 2, Title: "Newer", Chapters: []model.ChapterInfo{{ChapterID: 2, Title: "c", Order: 1}}}
	for _, c := range []*model.Comic{older, newer} {
		if err := lib.SaveMetadata(c); err != nil {
			t.Fatalf("SaveMetadata failed: %v", err)
		}
	}

	// Push Older's metadata into the past
	past := time.Now().Add(-time.Hour)
	olderMeta := filepath.Join(lib.ComicDir("Older"), MetadataFile)
	if err := os.Chtimes(olderMeta, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// A corrupt neighbor must be skipped, not fail the scan
	corruptDir := filepath.Join(lib.Root(), "Corrupt")
	if err := os.MkdirAll(corruptDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(corruptDir, MetadataFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt metadata: %v", err)
	}

	comics, err := lib.DownloadedComics()
	if err != nil {
		t.Fatalf("DownloadedComics failed: %v", err)
	}
	if len(comics) != 2 {
		t.Fatalf("expected 2 comics, got %d", len(comics))
	}
	if comics[0].Title != "Newer" || comics[1].Title != "Older" {
		t.Errorf("expected newest first, got %q then %q", comics[0].Title, comics[1].Title)
	}
}

func TestDownloadedComicsMissingRoot(t *testing.T) {
	lib := New(filepath.Join(t.TempDir(), "never-created"))
	comics, err := lib.DownloadedComics()
	if err != nil {
		t.Fatalf("missing root should not error, got %v", err)
	}
	if len(comics) != 0 {
		t.Errorf("expected no comics, got %d", len(comics))
	}
}

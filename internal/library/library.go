// Package library manages the on-disk download tree: one directory per
// comic, one per chapter, page images inside. A chapter directory with the
// .part suffix is in flight; the suffix is dropped when the last page
// lands.
package library

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tanko-dl/tanko/internal/model"
	"github.com/tanko-dl/tanko/internal/utils"
)

const (
	// MetadataFile sits in each comic directory and makes it restorable.
	MetadataFile = "metadata.json"
	// PartSuffix marks a chapter directory that is still downloading.
	PartSuffix = ".part"
)

// Library resolves shelf titles to their place in the download tree.
type Library struct {
	root string
}

// New creates a Library rooted at the download directory.
func New(root string) *Library {
	return &Library{root: root}
}

// Root returns the download directory.
func (l *Library) Root() string {
	return l.root
}

// SanitizeName makes a shelf title safe as a directory name.
func SanitizeName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`\/:*?"<>|`, r) {
			return '_'
		}
		return r
	}, name)
	sanitized = strings.TrimSpace(sanitized)
	sanitized = strings.TrimRight(sanitized, ".")
	if sanitized == "" {
		return "untitled"
	}
	return sanitized
}

// ComicDir returns the directory for a comic title.
func (l *Library) ComicDir(title string) string {
	return filepath.Join(l.root, SanitizeName(title))
}

// ChapterDirName returns the directory name for one chapter, prefixed
// with its reading order so the tree sorts like the comic.
func ChapterDirName(ch model.ChapterInfo) string {
	return fmt.Sprintf("%03d %s", ch.Order, SanitizeName(ch.Title))
}

// ChapterDir returns the final directory of a chapter.
func (l *Library) ChapterDir(comicTitle string, ch model.ChapterInfo) string {
	return filepath.Join(l.ComicDir(comicTitle), ChapterDirName(ch))
}

// TempChapterDir returns the in-flight directory of a chapter.
func (l *Library) TempChapterDir(comicTitle string, ch model.ChapterInfo) string {
	return l.ChapterDir(comicTitle, ch) + PartSuffix
}

// IsChapterDownloaded reports whether the chapter's final directory
// exists.
func (l *Library) IsChapterDownloaded(comicTitle string, ch model.ChapterInfo) bool {
	info, err := os.Stat(l.ChapterDir(comicTitle, ch))
	return err == nil && info.IsDir()
}

// MarkDownloaded fills the computed Downloaded flags of a comic from the
// tree. The comic itself counts as downloaded once every chapter is.
func (l *Library) MarkDownloaded(comic *model.Comic) {
	all := len(comic.Chapters) > 0
	for i := range comic.Chapters {
		downloaded := l.IsChapterDownloaded(comic.Title, comic.Chapters[i])
		comic.Chapters[i].Downloaded = downloaded
		if !downloaded {
			all = false
		}
	}
	comic.Downloaded = all
}

// PageFileName names a page file by its 1-based number plus the extension
// taken from the image URL. Pages with no usable extension are stored
// bare and sniffed at export time.
func PageFileName(page int, imageURL string) string {
	ext := ""
	if u, err := url.Parse(imageURL); err == nil {
		ext = path.Ext(u.Path)
	}
	if len(ext) > 6 || strings.ContainsAny(ext, `\/:*?"<>|`) {
		ext = ""
	}
	return fmt.Sprintf("%04d%s", page, ext)
}

// PagePath returns the location of one page inside a chapter directory.
func PagePath(chapterDir string, page int, imageURL string) string {
	return filepath.Join(chapterDir, PageFileName(page, imageURL))
}

// FinalizeChapter promotes a finished .part directory to its final name.
func (l *Library) FinalizeChapter(comicTitle string, ch model.ChapterInfo) error {
	temp := l.TempChapterDir(comicTitle, ch)
	final := l.ChapterDir(comicTitle, ch)
	if err := os.Rename(temp, final); err != nil {
		return fmt.Errorf("finalize chapter %q: %w", ch.Title, err)
	}
	return nil
}

// SaveMetadata writes the comic's metadata.json. The computed Downloaded
// flags are stripped first; they are re-derived from the tree on load.
func (l *Library) SaveMetadata(comic *model.Comic) error {
	stripped := *comic
	stripped.Downloaded = false
	stripped.Chapters = make([]model.ChapterInfo, len(comic.Chapters))
	for i, ch := range comic.Chapters {
		ch.Downloaded = false
		stripped.Chapters[i] = ch
	}

	data, err := json.MarshalIndent(&stripped, "", "  ")
	if err != nil {
		return fmt.Errorf("save metadata for %q: %w", comic.Title, err)
	}

	dir := l.ComicDir(comic.Title)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save metadata for %q: %w", comic.Title, err)
	}

	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644); err != nil {
		return fmt.Errorf("save metadata for %q: %w", comic.Title, err)
	}
	return nil
}

// LoadMetadata reads one metadata.json and re-derives the Downloaded
// flags from the tree.
func (l *Library) LoadMetadata(metadataPath string) (*model.Comic, error) {
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", metadataPath, err)
	}

	var comic model.Comic
	if err := json.Unmarshal(data, &comic); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", metadataPath, err)
	}

	l.MarkDownloaded(&comic)
	return &comic, nil
}

// DownloadedComics scans the tree for comics with metadata, newest
// first by metadata modification time. Unreadable entries are logged and
// skipped.
func (l *Library) DownloadedComics() ([]*model.Comic, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read download dir %s: %w", l.root, err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var candidates []candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metadataPath := filepath.Join(l.root, entry.Name(), MetadataFile)
		info, err := os.Stat(metadataPath)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{metadataPath, info.ModTime().UnixNano()})
	}

	// Newest metadata first
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime > candidates[j].modTime })

	comics := make([]*model.Comic, 0, len(candidates))
	for _, c := range candidates {
		comic, err := l.LoadMetadata(c.path)
		if err != nil {
			utils.Debug("Skipping unreadable metadata %s: %v", c.path, err)
			continue
		}
		comics = append(comics, comic)
	}
	return comics, nil
}

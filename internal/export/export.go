// Package export packs downloaded chapters into portable containers:
// CBZ archives and PDF documents.
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
	"github.com/tanko-dl/tanko/internal/utils"
)

// Format selects an export container.
type Format string

const (
	FormatCBZ Format = "cbz"
	FormatPDF Format = "pdf"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cbz":
		return FormatCBZ, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want cbz or pdf)", s)
	}
}

const (
	// pdfMaxDim caps page pixel dimensions so oversized scans do not
	// balloon the document.
	pdfMaxDim   = 2400
	jpegQuality = 90
)

// Exporter writes chapters from the library into the export directory,
// one subdirectory per comic.
type Exporter struct {
	lib       *library.Library
	exportDir string
}

func New(lib *library.Library, exportDir string) *Exporter {
	return &Exporter{lib: lib, exportDir: exportDir}
}

// Chapter exports one downloaded chapter and returns the written path.
func (e *Exporter) Chapter(format Format, comicTitle string, ch model.ChapterInfo) (string, error) {
	switch format {
	case FormatCBZ:
		return e.CBZ(comicTitle, ch)
	case FormatPDF:
		return e.PDF(comicTitle, ch)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// Comic exports every downloaded chapter of a comic and returns the
// written paths.
func (e *Exporter) Comic(format Format, comic *model.Comic) ([]string, error) {
	e.lib.MarkDownloaded(comic)

	var paths []string
	for _, ch := range comic.Chapters {
		if !ch.Downloaded {
			continue
		}
		p, err := e.Chapter(format, comic.Title, ch)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("comic %q has no downloaded chapters to export", comic.Title)
	}
	return paths, nil
}

// CBZ packs one chapter as a comic book archive.
func (e *Exporter) CBZ(comicTitle string, ch model.ChapterInfo) (string, error) {
	files, err := e.chapterPages(comicTitle, ch)
	if err != nil {
		return "", err
	}
	out, err := e.outputPath(comicTitle, ch, ".cbz")
	if err != nil {
		return "", err
	}

	// Readers that understand it get the comic metadata alongside
	// the pages; a missing file is fine.
	metadata, _ := os.ReadFile(filepath.Join(e.lib.ComicDir(comicTitle), library.MetadataFile))

	if err := writeCBZ(out, files, metadata); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("export %q as cbz: %w", ch.Title, err)
	}
	utils.Debug("Exported %q to %s", ch.Title, out)
	return out, nil
}

// PDF assembles one chapter into a PDF, one page per image.
func (e *Exporter) PDF(comicTitle string, ch model.ChapterInfo) (string, error) {
	files, err := e.chapterPages(comicTitle, ch)
	if err != nil {
		return "", err
	}
	out, err := e.outputPath(comicTitle, ch, ".pdf")
	if err != nil {
		return "", err
	}

	if err := writePDF(out, files); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("export %q as pdf: %w", ch.Title, err)
	}
	utils.Debug("Exported %q to %s", ch.Title, out)
	return out, nil
}

// chapterPages lists the chapter's page files in reading order.
func (e *Exporter) chapterPages(comicTitle string, ch model.ChapterInfo) ([]string, error) {
	if !e.lib.IsChapterDownloaded(comicTitle, ch) {
		return nil, fmt.Errorf("chapter %q of %q is not downloaded", ch.Title, comicTitle)
	}
	dir := e.lib.ChapterDir(comicTitle, ch)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chapter dir %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("chapter %q has no pages on disk", ch.Title)
	}
	sort.Strings(files)
	return files, nil
}

func (e *Exporter) outputPath(comicTitle string, ch model.ChapterInfo, ext string) (string, error) {
	dir := filepath.Join(e.exportDir, library.SanitizeName(comicTitle))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir %s: %w", dir, err)
	}
	return uniquePath(filepath.Join(dir, library.ChapterDirName(ch)+ext)), nil
}

func writeCBZ(out string, files []string, metadata []byte) error {
	fh, err := os.Create(out)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(fh)

	if len(metadata) > 0 {
		w, err := zw.Create(library.MetadataFile)
		if err == nil {
			_, err = w.Write(metadata)
		}
		if err != nil {
			zw.Close()
			fh.Close()
			return err
		}
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			zw.Close()
			fh.Close()
			return err
		}
		name := filepath.Base(file)
		if filepath.Ext(name) == "" {
			name += sniffExt(data)
		}
		// Images are already compressed, storing beats deflating.
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			zw.Close()
			fh.Close()
			return err
		}
		if _, err := w.Write(data); err != nil {
			zw.Close()
			fh.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func writePDF(out string, files []string) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		jpg, w, h, err := normalizePage(data)
		if err != nil {
			return fmt.Errorf("decode page %s: %w", filepath.Base(file), err)
		}

		name := fmt.Sprintf("page-%04d", i+1)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(jpg))
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: float64(w), Ht: float64(h)})
		pdf.ImageOptions(name, 0, 0, float64(w), float64(h), false, opts, 0, "")
	}

	return pdf.OutputFileAndClose(out)
}

// normalizePage re-encodes one page as JPEG, scaling down anything wider
// or taller than pdfMaxDim.
func normalizePage(data []byte) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > pdfMaxDim || h > pdfMaxDim {
		ratio := float64(w) / float64(h)
		if w >= h {
			w = pdfMaxDim
			h = int(float64(pdfMaxDim) / ratio)
		} else {
			h = pdfMaxDim
			w = int(float64(pdfMaxDim) * ratio)
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), w, h, nil
}

// sniffExt names an extension for page files stored without one.
func sniffExt(data []byte) string {
	if t, err := filetype.Match(data); err == nil && t.Extension != "unknown" {
		return "." + t.Extension
	}
	return ".jpg"
}

// uniquePath appends (1), (2), ... to the file name until it no longer
// collides. A name already carrying a counter has it incremented.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)

	base := name
	counter := 1
	cleanName := strings.TrimSpace(name)
	if len(cleanName) > 3 && cleanName[len(cleanName)-1] == ')' {
		if openParen := strings.LastIndexByte(cleanName, '('); openParen != -1 {
			if num, err := strconv.Atoi(cleanName[openParen+1 : len(cleanName)-1]); err == nil && num > 0 {
				base = cleanName[:openParen]
				counter = num + 1
			}
		}
	}

	for i := 0; i < 100; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, counter+i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return path
}

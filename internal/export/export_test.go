package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tanko-dl/tanko/internal/library"
	"github.com/tanko-dl/tanko/internal/model"
)

func testImage(t *testing.T, w, h int) image.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func writePagePNG(t *testing.T, path string, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(t, w, h)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return buf.Bytes()
}

func writePageJPEG(t *testing.T, path string, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(t, w, h), &jpeg.Options{Quality: 85}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return buf.Bytes()
}

func newTestExporter(t *testing.T) (*library.Library, *Exporter) {
	t.Helper()
	lib := library.New(t.TempDir())
	return lib, New(lib, t.TempDir())
}

func TestParseFormat(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Format
	}{
		{"cbz", FormatCBZ},
		{" CBZ ", FormatCBZ},
		{"pdf", FormatPDF},
		{"PDF", FormatPDF},
	} {
		got, err := ParseFormat(tc.in)
		require.NoError(t, err, "ParseFormat(%q)", tc.in)
		require.Equal(t, tc.want, got, "ParseFormat(%q)", tc.in)
	}

	_, err := ParseFormat("epub")
	require.Error(t, err)
}

func TestCBZRoundTrip(t *testing.T) {
	lib, exp := newTestExporter(t)
	comic := &model.Comic{ID: 5, Title: "Roundtrip", Chapters: []model.ChapterInfo{
		{ChapterID: 11, Title: "First Steps", Order: 1},
	}}
	require.NoError(t, lib.SaveMetadata(comic))

	ch := comic.Chapters[0]
	dir := lib.ChapterDir("Roundtrip", ch)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	want := map[string][]byte{
		"0001.jpg": writePageJPEG(t, filepath.Join(dir, "0001.jpg"), 20, 30),
		"0002.png": writePagePNG(t, filepath.Join(dir, "0002.png"), 20, 30),
		// Stored without an extension, the archive entry gets a sniffed one.
		"0003.png": writePagePNG(t, filepath.Join(dir, "0003"), 20, 30),
	}

	out, err := exp.CBZ("Roundtrip", ch)
	require.NoError(t, err)
	require.Equal(t, "001 First Steps.cbz", filepath.Base(out))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 4)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		var got bytes.Buffer
		_, err = got.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)

		if f.Name == library.MetadataFile {
			var meta model.Comic
			require.NoError(t, json.Unmarshal(got.Bytes(), &meta))
			require.Equal(t, "Roundtrip", meta.Title)
			continue
		}
		require.Equal(t, zip.Store, f.Method, "entry %s should be stored uncompressed", f.Name)
		require.Equal(t, want[f.Name], got.Bytes(), "entry %s content", f.Name)
	}
	require.Equal(t, []string{library.MetadataFile, "0001.jpg", "0002.png", "0003.png"}, names)
}

func TestCBZRequiresDownloadedChapter(t *testing.T) {
	_, exp := newTestExporter(t)
	ch := model.ChapterInfo{ChapterID: 11, Title: "Missing", Order: 1}

	_, err := exp.CBZ("Ghost", ch)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not downloaded")
}

func TestExportTwiceGetsUniqueName(t *testing.T) {
	lib, exp := newTestExporter(t)
	ch := model.ChapterInfo{ChapterID: 11, Title: "Again", Order: 2}
	dir := lib.ChapterDir("Repeat", ch)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writePageJPEG(t, filepath.Join(dir, "0001.jpg"), 10, 10)

	first, err := exp.CBZ("Repeat", ch)
	require.NoError(t, err)
	second, err := exp.CBZ("Repeat", ch)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, "002 Again(1).cbz", filepath.Base(second))
	require.FileExists(t, first)
	require.FileExists(t, second)
}

func TestPDFWritesDocument(t *testing.T) {
	lib, exp := newTestExporter(t)
	ch := model.ChapterInfo{ChapterID: 12, Title: "Paper", Order: 3}
	dir := lib.ChapterDir("Print", ch)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writePageJPEG(t, filepath.Join(dir, "0001.jpg"), 40, 60)
	writePagePNG(t, filepath.Join(dir, "0002.png"), 40, 60)

	out, err := exp.PDF("Print", ch)
	require.NoError(t, err)
	require.Equal(t, "003 Paper.pdf", filepath.Base(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, len(data) > 100, "pdf suspiciously small: %d bytes", len(data))
	require.True(t, strings.HasPrefix(string(data[:8]), "%PDF"), "missing pdf header")
}

func TestPDFRejectsCorruptPage(t *testing.T) {
	lib, exp := newTestExporter(t)
	ch := model.ChapterInfo{ChapterID: 13, Title: "Broken", Order: 4}
	dir := lib.ChapterDir("Print", ch)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001.jpg"), []byte("not an image"), 0o644))

	_, err := exp.PDF("Print", ch)
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(exp.exportDir, "Print"))
	require.NoError(t, err)
	require.Empty(t, entries, "failed export should not leave a partial file")
}

func TestComicExportsDownloadedChapters(t *testing.T) {
	lib, exp := newTestExporter(t)
	comic := &model.Comic{
		ID:    7,
		Title: "Partial",
		Chapters: []model.ChapterInfo{
			{ChapterID: 11, Title: "Here", Order: 1},
			{ChapterID: 12, Title: "Not Yet", Order: 2},
		},
	}
	dir := lib.ChapterDir(comic.Title, comic.Chapters[0])
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writePageJPEG(t, filepath.Join(dir, "0001.jpg"), 10, 10)

	paths, err := exp.Comic(FormatCBZ, comic)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, "001 Here.cbz", filepath.Base(paths[0]))

	empty := &model.Comic{
		ID:       8,
		Title:    "Nothing",
		Chapters: []model.ChapterInfo{{ChapterID: 21, Title: "Ghost", Order: 1}},
	}
	_, err = exp.Comic(FormatCBZ, empty)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no downloaded chapters")
}

func TestNormalizePageDownscalesOversizedPages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(t, 2500, 500), &jpeg.Options{Quality: 70}))

	jpg, w, h, err := normalizePage(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 2400, w)
	require.Equal(t, 480, h)

	decoded, err := jpeg.Decode(bytes.NewReader(jpg))
	require.NoError(t, err)
	require.Equal(t, 2400, decoded.Bounds().Dx())
	require.Equal(t, 480, decoded.Bounds().Dy())
}

func TestNormalizePageKeepsSmallPages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(t, 30, 50)))

	_, w, h, err := normalizePage(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 30, w)
	require.Equal(t, 50, h)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	// A free path is returned untouched even when it carries a counter.
	numbered := filepath.Join(dir, "page (1).cbz")
	require.Equal(t, numbered, uniquePath(numbered))

	// A plain collision gets the first counter.
	plain := filepath.Join(dir, "page.cbz")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))
	require.Equal(t, filepath.Join(dir, "page(1).cbz"), uniquePath(plain))

	// An existing counter is incremented past every taken slot.
	require.NoError(t, os.WriteFile(numbered, []byte("x"), 0o644))
	require.Equal(t, filepath.Join(dir, "page (2).cbz"), uniquePath(numbered))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page (2).cbz"), []byte("x"), 0o644))
	require.Equal(t, filepath.Join(dir, "page (3).cbz"), uniquePath(numbered))

	// Stray whitespace around the counter is cleaned up.
	messy := filepath.Join(dir, "messy (1) .cbz")
	require.NoError(t, os.WriteFile(messy, []byte("x"), 0o644))
	require.Equal(t, filepath.Join(dir, "messy (2).cbz"), uniquePath(messy))
}

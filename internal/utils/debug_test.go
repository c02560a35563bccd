package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupLogsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	ConfigureDebug(dir)
	defer ConfigureDebug("")

	// Create five log files with distinct mtimes
	names := []string{"debug-a.log", "debug-b.log", "debug-c.log", "debug-d.log", "debug-e.log"}
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatal(err)
		}
	}
	// A non-log file must never be touched
	other := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(other, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	CleanupLogs(2)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var remaining []string
	for _, e := range entries {
		remaining = append(remaining, e.Name())
	}
	if len(remaining) != 3 { // 2 logs + settings.json
		t.Fatalf("expected 3 files after cleanup, got %v", remaining)
	}
	for _, want := range []string{"debug-d.log", "debug-e.log", "settings.json"} {
		if _, err := os.Stat(filepath.Join(dir, want)); err != nil {
			t.Errorf("expected %s to survive cleanup: %v", want, err)
		}
	}
}

func TestLogsDirSize(t *testing.T) {
	dir := t.TempDir()
	ConfigureDebug(dir)
	defer ConfigureDebug("")

	if err := os.WriteFile(filepath.Join(dir, "debug-1.log"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "debug-2.log"), make([]byte, 28), 0o644); err != nil {
		t.Fatal(err)
	}

	size, err := LogsDirSize()
	if err != nil {
		t.Fatalf("LogsDirSize failed: %v", err)
	}
	if size != 128 {
		t.Errorf("LogsDirSize = %d, want 128", size)
	}
}

func TestLogsDirSizeUnconfigured(t *testing.T) {
	ConfigureDebug("")

	size, err := LogsDirSize()
	if err != nil || size != 0 {
		t.Errorf("unconfigured LogsDirSize = (%d, %v), want (0, nil)", size, err)
	}
}

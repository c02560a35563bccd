// Package store persists download history in a SQLite database under the
// state directory.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	db         *sql.DB
	dbMu       sync.Mutex
	dbPath     string
	configured bool
)

// Entry is one finished download task.
type Entry struct {
	ID           string
	ComicID      int64
	ComicTitle   string
	ChapterID    int64
	ChapterTitle string
	Pages        int
	TotalPages   int
	Status       string
	FinishedAt   int64
	TimeTaken    int64
}

// Configure sets the path for the history database. The connection is
// opened lazily on first use.
func Configure(path string) {
	dbMu.Lock()
	defer dbMu.Unlock()
	dbPath = path
	configured = true
}

// Close shuts the connection down. A later call reopens it.
func Close() {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil {
		db.Close()
		db = nil
	}
}

func initDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		return nil
	}
	if !configured || dbPath == "" {
		return fmt.Errorf("history database not configured: call store.Configure() first")
	}

	var err error
	db, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		comic_id INTEGER NOT NULL,
		comic_title TEXT NOT NULL,
		chapter_id INTEGER NOT NULL,
		chapter_title TEXT,
		pages INTEGER,
		total_pages INTEGER,
		status TEXT,
		finished_at INTEGER,
		time_taken INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_history_finished_at ON history(finished_at);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}

func getDB() (*sql.DB, error) {
	if db == nil {
		if err := initDB(); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func withTx(fn func(*sql.Tx) error) error {
	d, err := getDB()
	if err != nil {
		return err
	}

	tx, err := d.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Record upserts one finished task.
func Record(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	return withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO history (
				id, comic_id, comic_title, chapter_id, chapter_title, pages, total_pages, status, finished_at, time_taken
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				comic_id=excluded.comic_id,
				comic_title=excluded.comic_title,
				chapter_id=excluded.chapter_id,
				chapter_title=excluded.chapter_title,
				pages=excluded.pages,
				total_pages=excluded.total_pages,
				status=excluded.status,
				finished_at=excluded.finished_at,
				time_taken=excluded.time_taken
		`,
			entry.ID, entry.ComicID, entry.ComicTitle, entry.ChapterID, entry.ChapterTitle,
			entry.Pages, entry.TotalPages, entry.Status, entry.FinishedAt, entry.TimeTaken)
		return err
	})
}

// ListRecent returns the newest entries first, at most limit of them.
// A limit of zero or less means no limit.
func ListRecent(limit int) ([]Entry, error) {
	d, err := getDB()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, comic_id, comic_title, chapter_id, chapter_title, pages, total_pages, status, finished_at, time_taken
		FROM history
		ORDER BY finished_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var chapterTitle, status sql.NullString
		var pages, totalPages, finishedAt, timeTaken sql.NullInt64

		if err := rows.Scan(
			&e.ID, &e.ComicID, &e.ComicTitle, &e.ChapterID, &chapterTitle,
			&pages, &totalPages, &status, &finishedAt, &timeTaken,
		); err != nil {
			return nil, err
		}
		if chapterTitle.Valid {
			e.ChapterTitle = chapterTitle.String
		}
		if status.Valid {
			e.Status = status.String
		}
		if pages.Valid {
			e.Pages = int(pages.Int64)
		}
		if totalPages.Valid {
			e.TotalPages = int(totalPages.Int64)
		}
		if finishedAt.Valid {
			e.FinishedAt = finishedAt.Int64
		}
		if timeTaken.Valid {
			e.TimeTaken = timeTaken.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes one entry by ID.
func Remove(id string) error {
	d, err := getDB()
	if err != nil {
		return err
	}
	_, err = d.Exec("DELETE FROM history WHERE id = ?", id)
	return err
}

// Clear deletes the whole history and returns how many rows went.
func Clear() (int64, error) {
	d, err := getDB()
	if err != nil {
		return 0, err
	}
	result, err := d.Exec("DELETE FROM history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

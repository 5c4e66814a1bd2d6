// Package diagnostics is where raw errors go. Users only ever see fixed
// messages; the underlying error is logged and kept in a SQLite journal.
// The database is opened lazily and created on first use. If opening the DB
// or executing queries fails, the journal falls back to in-memory storage.
package diagnostics

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/convoview/internal/logger"
)

// Entry is one recorded failure.
type Entry struct {
	ID        int64     `json:"id" yaml:"id"`
	Site      string    `json:"site" yaml:"site"`
	Message   string    `json:"message" yaml:"message"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Journal records failures. The zero value is not usable; call Open.
type Journal struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	entries []Entry // in-memory fallback
	nextID  int64

	dbOnce  sync.Once
	db      *sql.DB
	initErr error
}

// Open returns a Journal backed by the SQLite file at path. An empty path
// keeps the journal in memory only.
func Open(path string) *Journal {
	return &Journal{path: path, now: time.Now}
}

func (j *Journal) initDB() {
	if j.path == "" {
		j.initErr = errNoDatabase
		return
	}
	var err error
	j.db, err = sql.Open("sqlite", "file:"+j.path+"?_busy_timeout=10000")
	if err != nil {
		j.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory diagnostics", "error", err)
		return
	}
	if _, err = j.db.Exec(`CREATE TABLE IF NOT EXISTS diagnostics (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        site TEXT NOT NULL,
        message TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );`); err != nil {
		j.initErr = err
		logger.L.Warn("sqlite table creation failed; using in-memory diagnostics", "error", err)
		return
	}
	logger.L.Debug("sqlite diagnostics journal initialized", "path", j.path)
}

func (j *Journal) database() *sql.DB {
	j.dbOnce.Do(j.initDB)
	if j.initErr != nil {
		return nil
	}
	return j.db
}

// Report logs err and records it under site. It never fails: a broken
// database only costs persistence.
func (j *Journal) Report(ctx context.Context, site string, err error) {
	if err == nil {
		return
	}
	logger.L.Error("request failed", "site", site, "error", err)

	entry := Entry{Site: site, Message: err.Error(), CreatedAt: j.now().UTC()}
	if db := j.database(); db != nil {
		_, execErr := db.ExecContext(ctx, `INSERT INTO diagnostics (site, message, created_at) VALUES (?,?,?);`, entry.Site, entry.Message, entry.CreatedAt)
		if execErr == nil {
			return
		}
		logger.L.Warn("failed to store diagnostic in sqlite; falling back to memory", "error", execErr)
	}

	j.mu.Lock()
	j.nextID++
	entry.ID = j.nextID
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

// Recent returns up to limit entries, newest first. Entries that only made
// it to memory are merged in by time.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Entry
	if db := j.database(); db != nil {
		rows, err := db.QueryContext(ctx, `SELECT id, site, message, created_at FROM diagnostics ORDER BY id DESC LIMIT ?;`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var e Entry
			if err := rows.Scan(&e.ID, &e.Site, &e.Message, &e.CreatedAt); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	j.mu.Lock()
	for i, n := len(j.entries)-1, 0; i >= 0 && n < limit; i, n = i-1, n+1 {
		out = append(out, j.entries[i])
	}
	j.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

type journalError string

func (e journalError) Error() string { return string(e) }

const errNoDatabase = journalError("diagnostics database disabled")

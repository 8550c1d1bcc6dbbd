// Package library indexes finished recordings in a SQLite catalog so
// listing does not reparse every event log. Entries carry a content
// digest; re-scans skip files whose digest is unchanged.
package library

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"

	"screenrec/internal/recording"
)

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
    base_name    TEXT PRIMARY KEY,
    path         TEXT NOT NULL,
    frames_path  TEXT,
    digest       TEXT NOT NULL,
    size_bytes   INTEGER NOT NULL,
    started_at   TEXT NOT NULL,
    screen       TEXT NOT NULL,
    fps          INTEGER NOT NULL,
    events       INTEGER NOT NULL,
    duration_sec REAL NOT NULL,
    indexed_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recordings_started ON recordings(started_at);
`

// Entry is one indexed recording.
type Entry struct {
	BaseName   string
	Path       string
	FramesPath string
	Digest     string
	SizeBytes  int64
	StartedAt  string
	Screen     string
	FPS        int
	Events     int
	Duration   float64
}

// Library is the recording catalog.
type Library struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the catalog database and applies the schema.
func Open(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}
	return &Library{db: db, logger: logger}, nil
}

// Close releases the database.
func (l *Library) Close() error {
	return l.db.Close()
}

// Scan walks dir for recording JSON files, indexes new and changed
// ones, and prunes entries whose files are gone. Malformed files are
// logged and skipped, never fatal.
func (l *Library) Scan(dir string) (indexed int, err error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}

	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), ".json")
		seen[base] = true
		changed, err := l.Index(path)
		if err != nil {
			l.logger.Warn("skipping unreadable recording", "path", path, "error", err)
			continue
		}
		if changed {
			indexed++
		}
	}

	if err := l.prune(seen); err != nil {
		return indexed, err
	}
	return indexed, nil
}

// Index adds or refreshes one recording file. Reports whether the
// catalog changed: an unchanged digest is a no-op.
func (l *Library) Index(path string) (changed bool, err error) {
	digest, size, err := fileDigest(path)
	if err != nil {
		return false, err
	}

	base := strings.TrimSuffix(filepath.Base(path), ".json")
	var existing string
	err = l.db.QueryRow(`SELECT digest FROM recordings WHERE base_name = ?`, base).Scan(&existing)
	switch {
	case err == nil:
		if existing == digest {
			return false, nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return false, fmt.Errorf("lookup %s: %w", base, err)
	}

	rec, err := recording.Load(path, l.logger)
	if err != nil {
		return false, err
	}

	framesPath := strings.TrimSuffix(path, ".json") + ".frames"
	if fi, err := os.Stat(framesPath); err != nil || !fi.IsDir() {
		framesPath = ""
	}

	_, err = l.db.Exec(`
		INSERT INTO recordings (base_name, path, frames_path, digest, size_bytes, started_at, screen, fps, events, duration_sec, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))
		ON CONFLICT(base_name) DO UPDATE SET
			path = excluded.path,
			frames_path = excluded.frames_path,
			digest = excluded.digest,
			size_bytes = excluded.size_bytes,
			started_at = excluded.started_at,
			screen = excluded.screen,
			fps = excluded.fps,
			events = excluded.events,
			duration_sec = excluded.duration_sec,
			indexed_at = excluded.indexed_at`,
		base, path, framesPath, digest, size,
		rec.Meta.StartedAt, rec.Meta.Screen.String(), rec.Meta.FPS,
		len(rec.Events), rec.Duration(),
	)
	if err != nil {
		return false, fmt.Errorf("index %s: %w", base, err)
	}
	return true, nil
}

// Forget drops one entry by base name.
func (l *Library) Forget(base string) error {
	_, err := l.db.Exec(`DELETE FROM recordings WHERE base_name = ?`, base)
	return err
}

// List returns all entries, newest first.
func (l *Library) List() ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT base_name, path, frames_path, digest, size_bytes, started_at, screen, fps, events, duration_sec
		FROM recordings ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.BaseName, &e.Path, &e.FramesPath, &e.Digest,
			&e.SizeBytes, &e.StartedAt, &e.Screen, &e.FPS, &e.Events, &e.Duration); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get looks up one entry by base name.
func (l *Library) Get(base string) (*Entry, error) {
	var e Entry
	err := l.db.QueryRow(`
		SELECT base_name, path, frames_path, digest, size_bytes, started_at, screen, fps, events, duration_sec
		FROM recordings WHERE base_name = ?`, base).
		Scan(&e.BaseName, &e.Path, &e.FramesPath, &e.Digest,
			&e.SizeBytes, &e.StartedAt, &e.Screen, &e.FPS, &e.Events, &e.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recording %q not indexed", base)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (l *Library) prune(seen map[string]bool) error {
	rows, err := l.db.Query(`SELECT base_name FROM recordings`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var base string
		if err := rows.Scan(&base); err != nil {
			rows.Close()
			return err
		}
		if !seen[base] {
			stale = append(stale, base)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, base := range stale {
		if err := l.Forget(base); err != nil {
			return err
		}
		l.logger.Info("pruned vanished recording", "base", base)
	}
	return nil
}

func fileDigest(path string) (digest string, size int64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), int64(len(data)), nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/aryan0dhankhar/droplog/internal/domain"
)

const (
	logFileSuffix = ".db"
	tempMarker    = ".db.tmp-"

	appendAttempts = 3
)

// errLogReplaced marks an insert that hit a log unlinked by a concurrent
// Destroy. Nothing reached the live log, so the append can run again.
var errLogReplaced = errors.New("log replaced during append")

const contentSchema = `
	CREATE TABLE IF NOT EXISTS content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		content TEXT
	)
`

// SQLiteTenantStore keeps one SQLite file per namespace under dir.
// Every call opens its own handle and closes it before returning.
type SQLiteTenantStore struct {
	dir    string
	logger *slog.Logger
}

// NewSQLiteTenantStore creates dir if needed
func NewSQLiteTenantStore(dir string, logger *slog.Logger) (*SQLiteTenantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &SQLiteTenantStore{dir: dir, logger: logger}, nil
}

func (s *SQLiteTenantStore) path(namespace string) string {
	return filepath.Join(s.dir, namespace+logFileSuffix)
}

// Exists reports whether the namespace log file is present
func (s *SQLiteTenantStore) Exists(ctx context.Context, namespace string) (bool, error) {
	_, err := os.Stat(s.path(namespace))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat log: %w: %w", domain.ErrStorage, err)
}

// Append creates the log if absent and inserts one record
func (s *SQLiteTenantStore) Append(ctx context.Context, namespace, content string) (*domain.Record, error) {
	var (
		rec *domain.Record
		err error
	)
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		rec, err = s.appendOnce(ctx, namespace, content)
		if !errors.Is(err, errLogReplaced) {
			break
		}
		s.logger.Debug("log replaced before insert, retrying",
			slog.String("namespace", namespace),
			slog.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("append: %w: %w", domain.ErrStorage, err)
	}
	return rec, nil
}

func (s *SQLiteTenantStore) appendOnce(ctx context.Context, namespace, content string) (*domain.Record, error) {
	if err := s.ensureLog(ctx, namespace); err != nil {
		return nil, err
	}

	path := s.path(namespace)
	opened, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errLogReplaced
	} else if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}

	db, err := openLog(path, "rw")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var (
		rec     domain.Record
		created string
	)
	err = db.QueryRowContext(ctx,
		`INSERT INTO content (content) VALUES (?) RETURNING id, created, content`,
		content,
	).Scan(&rec.ID, &created, &rec.Content)
	if err != nil {
		// Checked while the handle is still open so the old inode cannot be reused
		if unlinkedWrite(err) && !s.isCurrentLog(path, opened) {
			return nil, fmt.Errorf("%w: %w", errLogReplaced, err)
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}
	if rec.Created, err = parseCreated(created); err != nil {
		return nil, err
	}
	return &rec, nil
}

// unlinkedWrite reports the errors SQLite raises when its file is removed
// underneath an open handle
func unlinkedWrite(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code {
	case sqlite3.ErrReadonly, sqlite3.ErrIoErr, sqlite3.ErrCantOpen:
		return true
	}
	return false
}

func (s *SQLiteTenantStore) isCurrentLog(path string, opened os.FileInfo) bool {
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(opened, current)
}

// ensureLog builds a fully initialised log in a temp file and hard-links it
// into place. Link fails with EEXIST when another creator won, so racing
// first appends converge on a single log that always has its schema.
func (s *SQLiteTenantStore) ensureLog(ctx context.Context, namespace string) error {
	final := s.path(namespace)
	if _, err := os.Stat(final); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat log: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, namespace+tempMarker+"*")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	db, err := openLog(tmpPath, "rw")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, contentSchema); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}

	if err := os.Link(tmpPath, final); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("publish log: %w", err)
	}
	s.logger.Debug("namespace log created", slog.String("namespace", namespace))
	return nil
}

// List returns records newest first; a missing namespace yields an empty slice
func (s *SQLiteTenantStore) List(ctx context.Context, namespace string) ([]domain.Record, error) {
	out := []domain.Record{}

	exists, err := s.Exists(ctx, namespace)
	if err != nil || !exists {
		return out, err
	}

	db, err := openLog(s.path(namespace), "ro")
	if err != nil {
		return nil, fmt.Errorf("list: %w: %w", domain.ErrStorage, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, created, content FROM content ORDER BY id DESC`)
	if err != nil {
		if exists, statErr := s.Exists(ctx, namespace); statErr == nil && !exists {
			return out, nil
		}
		return nil, fmt.Errorf("list: %w: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec     domain.Record
			created string
			content sql.NullString
		)
		if err := rows.Scan(&rec.ID, &created, &content); err != nil {
			return nil, fmt.Errorf("scan record: %w: %w", domain.ErrStorage, err)
		}
		if rec.Created, err = parseCreated(created); err != nil {
			return nil, fmt.Errorf("list: %w: %w", domain.ErrStorage, err)
		}
		rec.Content = content.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w: %w", domain.ErrStorage, err)
	}
	return out, nil
}

// Destroy unlinks the namespace log and any SQLite side files
func (s *SQLiteTenantStore) Destroy(ctx context.Context, namespace string) error {
	path := s.path(namespace)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("destroy: %w: %w", domain.ErrStorage, err)
	}
	for _, side := range []string{"-journal", "-wal", "-shm"} {
		if err := os.Remove(path + side); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove log side file",
				slog.String("namespace", namespace),
				slog.String("file", path+side),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.Debug("namespace log destroyed", slog.String("namespace", namespace))
	return nil
}

// Ping checks that the data directory is usable
func (s *SQLiteTenantStore) Ping(ctx context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// SweepTemp removes temp logs older than maxAge left behind by interrupted creation
func (s *SQLiteTenantStore) SweepTemp(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read data dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() || !strings.Contains(e.Name(), tempMarker) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove temp log", slog.String("file", e.Name()), slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	return removed, nil
}

// openLog opens a single-connection handle. mode "rw" never creates the file.
func openLog(path, mode string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=%s&_busy_timeout=5000&_txlock=immediate", path, mode)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func parseCreated(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created %q: %w", s, err)
	}
	return t.UTC(), nil
}

package memo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// FormatVersion identifies the on-disk layout written by this package.
const FormatVersion = "1"

const shelfSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Shelf is a Store persisted in a single SQLite file. A shelf belongs to
// exactly one namespace, recorded in the file when it is created.
//
// A Shelf holds a single connection; it is meant for one writer process.
type Shelf struct {
	db        *sql.DB
	path      string
	namespace string

	closeOnce sync.Once
	closeErr  error
}

// ShelfStats summarizes the contents of a shelf.
type ShelfStats struct {
	Namespace string
	Path      string
	Entries   int64
	Bytes     int64
	Oldest    time.Time
	Newest    time.Time
}

// ShelfPath returns the file used for namespace under dir.
func ShelfPath(dir, namespace string) string {
	return filepath.Join(dir, sanitizeNamespace(namespace)+".db")
}

func sanitizeNamespace(namespace string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, namespace)
}

// OpenShelf opens or creates the shelf file at path for namespace.
//
// An unreadable or corrupt file, a file written by another format version,
// or a file created for a different namespace yields a *StorageError.
func OpenShelf(ctx context.Context, path, namespace string) (*Shelf, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Path: path, Err: err}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, &StorageError{Op: "open", Path: path, Err: err}
	}
	db.SetMaxOpenConns(1)

	s := &Shelf{db: db, path: path, namespace: namespace}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Shelf) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StorageError{Op: "open", Path: s.path, Err: err}
	}
	if err := s.quickCheck(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, shelfSchema); err != nil {
		return &StorageError{Op: "open", Path: s.path, Err: err}
	}

	meta, err := s.readMeta(ctx)
	if err != nil {
		return err
	}

	if ns, ok := meta["namespace"]; ok && ns != s.namespace {
		return &StorageError{
			Op:   "open",
			Path: s.path,
			Err:  fmt.Errorf("%w: file holds %q, want %q", ErrNamespaceMismatch, ns, s.namespace),
		}
	}
	if v, ok := meta["format_version"]; ok && v != FormatVersion {
		return &StorageError{
			Op:   "open",
			Path: s.path,
			Err:  fmt.Errorf("unsupported format version %q", v),
		}
	}

	if len(meta) == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO meta(key, value) VALUES ('namespace', ?), ('format_version', ?)`,
			s.namespace, FormatVersion)
		if err != nil {
			return &StorageError{Op: "open", Path: s.path, Err: err}
		}
	}
	return nil
}

func (s *Shelf) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, &StorageError{Op: "open", Path: s.path, Err: err}
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, &StorageError{Op: "open", Path: s.path, Err: err}
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "open", Path: s.path, Err: err}
	}
	return meta, nil
}

func (s *Shelf) quickCheck(ctx context.Context) error {
	return s.pragmaCheck(ctx, "open", "PRAGMA quick_check")
}

func (s *Shelf) pragmaCheck(ctx context.Context, op, pragma string) error {
	rows, err := s.db.QueryContext(ctx, pragma)
	if err != nil {
		return &StorageError{Op: op, Path: s.path, Err: err}
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return &StorageError{Op: op, Path: s.path, Err: err}
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return &StorageError{Op: op, Path: s.path, Err: err}
	}
	if len(problems) > 0 {
		return &StorageError{Op: op, Path: s.path, Err: errors.New(strings.Join(problems, "; "))}
	}
	return nil
}

// Namespace returns the namespace the shelf belongs to.
func (s *Shelf) Namespace() string { return s.namespace }

// Path returns the shelf file path.
func (s *Shelf) Path() string { return s.path }

// Get retrieves a stored entry. Returns (nil, false, nil) on miss.
func (s *Shelf) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Op: "get", Path: s.path, Key: key, Err: err}
	}
	return value, true, nil
}

// Set stores value under key, replacing any earlier entry.
func (s *Shelf) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries(key, value, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, value, time.Now().UnixNano())
	if err != nil {
		return &StorageError{Op: "set", Path: s.path, Key: key, Err: err}
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Shelf) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, &StorageError{Op: "get", Path: s.path, Err: err}
	}
	return n, nil
}

// Stats summarizes the shelf contents.
func (s *Shelf) Stats(ctx context.Context) (ShelfStats, error) {
	var (
		count, size      int64
		oldest, youngest sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(value)), 0), MIN(created_at), MAX(created_at)
		FROM entries`).Scan(&count, &size, &oldest, &youngest)
	if err != nil {
		return ShelfStats{}, &StorageError{Op: "get", Path: s.path, Err: err}
	}

	st := ShelfStats{
		Namespace: s.namespace,
		Path:      s.path,
		Entries:   count,
		Bytes:     size,
	}
	if oldest.Valid {
		st.Oldest = time.Unix(0, oldest.Int64)
	}
	if youngest.Valid {
		st.Newest = time.Unix(0, youngest.Int64)
	}
	return st, nil
}

// Check runs a full integrity check of the shelf file.
func (s *Shelf) Check(ctx context.Context) error {
	return s.pragmaCheck(ctx, "check", "PRAGMA integrity_check")
}

// Close checkpoints the write-ahead log and releases the file.
// It is safe to call more than once.
func (s *Shelf) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			errs = append(errs, err)
		}
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			s.closeErr = &StorageError{Op: "close", Path: s.path, Err: errors.Join(errs...)}
		}
	})
	return s.closeErr
}

// Ensure Shelf implements Store
var _ Store = (*Shelf)(nil)

package memo

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InspectDir reports statistics for every shelf file in dir, sorted by
// namespace. A file that cannot be read as a shelf is a *StorageError.
func InspectDir(ctx context.Context, dir string) ([]ShelfStats, error) {
	return inspectDir(ctx, dir, false)
}

// CheckDir is InspectDir with a full integrity check of every shelf.
func CheckDir(ctx context.Context, dir string) ([]ShelfStats, error) {
	return inspectDir(ctx, dir, true)
}

func inspectDir(ctx context.Context, dir string, full bool) ([]ShelfStats, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "open", Path: dir, Err: err}
	}

	var stats []ShelfStats
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		path := filepath.Join(dir, e.Name())

		namespace, err := readNamespace(ctx, path)
		if err != nil {
			return nil, err
		}
		shelf, err := OpenShelf(ctx, path, namespace)
		if err != nil {
			return nil, err
		}
		var st ShelfStats
		if full {
			err = shelf.Check(ctx)
		}
		if err == nil {
			st, err = shelf.Stats(ctx)
		}
		cerr := shelf.Close()
		if err != nil {
			return nil, err
		}
		if cerr != nil {
			return nil, cerr
		}
		stats = append(stats, st)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Namespace < stats[j].Namespace })
	return stats, nil
}

func readNamespace(ctx context.Context, path string) (string, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return "", &StorageError{Op: "open", Path: path, Err: err}
	}
	defer db.Close()

	var namespace string
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'namespace'`).Scan(&namespace)
	if err != nil {
		return "", &StorageError{Op: "open", Path: path, Err: err}
	}
	return namespace, nil
}

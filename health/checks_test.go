package health

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JasonGross/openreview-exploration/memo"
)

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	r := DirChecker{Dir: dir}.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("result = %+v", r)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
}

func TestDirChecker_MissingIsNotCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	r := DirChecker{Dir: dir}.Check(context.Background())
	if r.Status != StatusDegraded {
		t.Fatalf("result = %+v, want degraded", r)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("checker created %s: %v", dir, err)
	}
}

func TestDirChecker_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if r := (DirChecker{Dir: file}).Check(context.Background()); r.Status != StatusUnhealthy {
		t.Fatalf("result = %+v", r)
	}
}

func TestShelfChecker(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if r := (ShelfChecker{Dir: dir}).Check(ctx); r.Status != StatusDegraded {
		t.Fatalf("empty cache result = %+v", r)
	}

	shelf, err := memo.OpenShelf(ctx, memo.ShelfPath(dir, "openreview.get_notes"), "openreview.get_notes")
	if err != nil {
		t.Fatal(err)
	}
	if err := shelf.Set(ctx, "memo:openreview.get_notes:k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := shelf.Close(); err != nil {
		t.Fatal(err)
	}

	r := ShelfChecker{Dir: dir}.Check(ctx)
	if r.Status != StatusHealthy {
		t.Fatalf("result = %+v", r)
	}
	if _, ok := r.Details["openreview.get_notes"]; !ok {
		t.Errorf("details missing namespace: %v", r.Details)
	}

	garbage := bytes.Repeat([]byte("not a database "), 300)
	if err := os.WriteFile(filepath.Join(dir, "junk.db"), garbage, 0o644); err != nil {
		t.Fatal(err)
	}
	r = ShelfChecker{Dir: dir}.Check(ctx)
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, memo.ErrStorage) {
		t.Fatalf("corrupt cache result = %+v", r)
	}
}

func TestProbeChecker(t *testing.T) {
	down := errors.New("dial tcp: connection refused")
	c := ProbeChecker{CheckName: "openreview_api", Probe: func(context.Context) error { return down }}
	if c.Name() != "openreview_api" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusUnhealthy || !errors.Is(r.Error, down) {
		t.Fatalf("result = %+v", r)
	}

	c.Probe = func(context.Context) error { return nil }
	if r := c.Check(context.Background()); r.Status != StatusHealthy {
		t.Fatalf("result = %+v", r)
	}
}

package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/JasonGross/openreview-exploration/memo"
)

// DirChecker verifies that the cache directory is a writable directory.
// It never creates the directory: a missing one is degraded, since the
// first fetch creates it.
type DirChecker struct {
	Dir string
}

// Name returns the name of this checker.
func (c DirChecker) Name() string { return "cache_dir" }

// Check stats the directory and, when it exists, probes it with a
// temporary file.
func (c DirChecker) Check(ctx context.Context) Result {
	details := map[string]any{"dir": c.Dir}

	info, err := os.Stat(c.Dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Degraded("cache directory does not exist yet").WithDetails(details)
	case err != nil:
		return Unhealthy("cannot stat cache directory", err).WithDetails(details)
	case !info.IsDir():
		return Unhealthy("cache path is not a directory", fmt.Errorf("%s: not a directory", c.Dir)).WithDetails(details)
	}

	f, err := os.CreateTemp(c.Dir, ".doctor-*")
	if err != nil {
		return Unhealthy("cache directory is not writable", err).WithDetails(details)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Healthy("writable").WithDetails(details)
}

// ShelfChecker runs a full integrity check of every cache shelf in Dir.
// An empty cache is degraded rather than unhealthy.
type ShelfChecker struct {
	Dir string
}

// Name returns the name of this checker.
func (c ShelfChecker) Name() string { return "cache_shelves" }

// Check opens every shelf in Dir and runs its integrity check.
func (c ShelfChecker) Check(ctx context.Context) Result {
	stats, err := memo.CheckDir(ctx, c.Dir)
	if err != nil {
		var se *memo.StorageError
		if errors.As(err, &se) && se.Path != "" {
			return Unhealthy("corrupt shelf "+se.Path, err)
		}
		return Unhealthy("cannot read cache", err)
	}
	if len(stats) == 0 {
		return Degraded("no cached results")
	}

	details := make(map[string]any, len(stats))
	var entries int64
	for _, st := range stats {
		details[st.Namespace] = map[string]any{
			"entries": st.Entries,
			"bytes":   st.Bytes,
			"newest":  st.Newest.Format(time.RFC3339),
		}
		entries += st.Entries
	}
	return Healthy(fmt.Sprintf("%d shelves, %d entries", len(stats), entries)).WithDetails(details)
}

// ProbeChecker reports the outcome of an arbitrary probe, such as a
// one-note request against the remote API.
type ProbeChecker struct {
	CheckName string
	Probe     func(ctx context.Context) error
}

// Name returns the configured check name.
func (c ProbeChecker) Name() string { return c.CheckName }

// Check runs the probe once.
func (c ProbeChecker) Check(ctx context.Context) Result {
	if err := c.Probe(ctx); err != nil {
		return Unhealthy("probe failed", err)
	}
	return Healthy("reachable")
}

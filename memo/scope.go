package memo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Scope owns the shelves opened for one run. Each namespace may be bound
// once per scope, and each shelf file may back only one namespace.
type Scope struct {
	dir string

	mu      sync.Mutex
	shelves map[string]*Shelf // by namespace
	paths   map[string]string // shelf path -> namespace
	closed  bool
}

// OpenScope creates dir if needed and returns an empty scope rooted there.
func OpenScope(dir string) (*Scope, error) {
	if dir == "" {
		return nil, &StorageError{Op: "open", Err: errors.New("cache directory is empty")}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "open", Path: dir, Err: err}
	}
	return &Scope{
		dir:     dir,
		shelves: make(map[string]*Shelf),
		paths:   make(map[string]string),
	}, nil
}

// WithScope opens a scope on dir, runs fn, and closes the scope on every
// exit path. A panic in fn is re-raised after the scope is closed.
func WithScope(ctx context.Context, dir string, fn func(*Scope) error) (err error) {
	s, err := OpenScope(dir)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = s.Close()
			panic(r)
		}
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

// Dir returns the directory holding the scope's shelves.
func (s *Scope) Dir() string { return s.dir }

// Shelf opens the shelf for namespace. A namespace can be requested once;
// a second request, or one whose file name collides with another
// namespace, fails with ErrNamespaceInUse.
func (s *Scope) Shelf(ctx context.Context, namespace string) (*Shelf, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrScopeClosed
	}
	if _, ok := s.shelves[namespace]; ok {
		return nil, fmt.Errorf("%w: %q", ErrNamespaceInUse, namespace)
	}
	path := ShelfPath(s.dir, namespace)
	if other, ok := s.paths[path]; ok {
		return nil, fmt.Errorf("%w: %q shares file %s with %q", ErrNamespaceInUse, namespace, path, other)
	}

	shelf, err := OpenShelf(ctx, path, namespace)
	if err != nil {
		return nil, err
	}
	s.shelves[namespace] = shelf
	s.paths[path] = namespace
	return shelf, nil
}

// Namespaces returns the namespaces bound so far, sorted.
func (s *Scope) Namespaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.shelves))
	for ns := range s.shelves {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Close closes every shelf in the scope. It is safe to call more than once.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, shelf := range s.shelves {
		if err := shelf.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

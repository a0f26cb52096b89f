package memo

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Func is the signature of a memoizable function.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

// Hooks observes cache activity. Implementations must be safe for
// concurrent use and must return quickly.
type Hooks interface {
	// Lookup is called once per Call with whether the result came from the store.
	Lookup(ctx context.Context, namespace string, hit bool)
	// Stored is called after a new entry of size bytes was written.
	Stored(ctx context.Context, namespace string, size int)
}

// Stats counts cache activity of one Memo.
type Stats struct {
	Hits   int64
	Misses int64
	Stores int64
}

// Option configures a Memo.
type Option func(*options)

type options struct {
	keyer Keyer
	hooks Hooks
}

// WithKeyer replaces the DefaultKeyer.
func WithKeyer(k Keyer) Option {
	return func(o *options) {
		if k != nil {
			o.keyer = k
		}
	}
}

// WithHooks attaches observability hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// Memo wraps a function with a persistent result cache.
//
// Contract:
//   - Hit: the stored result is decoded and returned; fn is not called.
//   - Miss: fn is called; a successful result is stored, then returned.
//   - Errors from fn are returned unchanged and nothing is stored.
//   - Store failures and undecodable entries are *StorageError.
//   - Results must round-trip through encoding/json. The value returned on a
//     miss is the decoded stored form, so a hit and a miss look the same.
//   - Strings in args and results must be valid UTF-8. Otherwise Call fails
//     with ErrInvalidUTF8: before fn runs for args, and without storing
//     anything for results.
//   - Concurrent misses for the same key call fn once.
type Memo[A, R any] struct {
	fn        Func[A, R]
	store     Store
	namespace string
	keyer     Keyer
	hooks     Hooks
	group     singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	stores atomic.Int64
}

// Wrap returns fn memoized in store under namespace.
//
// If store belongs to a namespace (as a Shelf does), it must match.
func Wrap[A, R any](store Store, namespace string, fn Func[A, R], opts ...Option) (*Memo[A, R], error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if ns, ok := store.(namespaced); ok && ns.Namespace() != namespace {
		return nil, fmt.Errorf("%w: store holds %q, want %q", ErrNamespaceMismatch, ns.Namespace(), namespace)
	}

	o := options{keyer: NewDefaultKeyer()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Memo[A, R]{
		fn:        fn,
		store:     store,
		namespace: namespace,
		keyer:     o.keyer,
		hooks:     o.hooks,
	}, nil
}

// Bind opens the shelf for namespace in scope and wraps fn with it.
func Bind[A, R any](ctx context.Context, scope *Scope, namespace string, fn Func[A, R], opts ...Option) (*Memo[A, R], error) {
	shelf, err := scope.Shelf(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return Wrap(shelf, namespace, fn, opts...)
}

// Namespace returns the namespace the memo was bound to.
func (m *Memo[A, R]) Namespace() string { return m.namespace }

// Func returns the memoized function as a plain Func.
func (m *Memo[A, R]) Func() Func[A, R] { return m.Call }

// Call returns the cached result for args, calling the wrapped function on a miss.
func (m *Memo[A, R]) Call(ctx context.Context, args A) (R, error) {
	var zero R

	key, err := m.keyer.Key(m.namespace, args)
	if err != nil {
		return zero, err
	}

	if result, ok, err := m.lookup(ctx, key); err != nil || ok {
		if ok {
			m.record(ctx, true)
		}
		return result, err
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if result, ok, err := m.lookup(ctx, key); err != nil || ok {
			if ok {
				m.record(ctx, true)
			}
			return result, err
		}
		m.record(ctx, false)

		result, err := m.fn(ctx, args)
		if err != nil {
			return nil, err
		}
		return m.save(ctx, key, result)
	})
	if err != nil {
		return zero, err
	}
	result, _ := v.(R)
	return result, nil
}

func (m *Memo[A, R]) lookup(ctx context.Context, key string) (R, bool, error) {
	var result R

	data, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return result, false, err
	}
	if !ok {
		return result, false, nil
	}
	if err := decodeEntry(data, &result); err != nil {
		return result, false, &StorageError{Op: "decode", Key: key, Err: err}
	}
	return result, true, nil
}

func (m *Memo[A, R]) save(ctx context.Context, key string, result R) (R, error) {
	var stored R

	data, err := encodeEntry(result)
	if err != nil {
		return stored, err
	}
	if err := m.store.Set(ctx, key, data); err != nil {
		return stored, err
	}
	m.stores.Add(1)
	if m.hooks != nil {
		m.hooks.Stored(ctx, m.namespace, len(data))
	}

	if err := decodeEntry(data, &stored); err != nil {
		return stored, &StorageError{Op: "decode", Key: key, Err: err}
	}
	return stored, nil
}

func (m *Memo[A, R]) record(ctx context.Context, hit bool) {
	if hit {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	if m.hooks != nil {
		m.hooks.Lookup(ctx, m.namespace, hit)
	}
}

// Stats returns the hit, miss and store counts since the memo was created.
func (m *Memo[A, R]) Stats() Stats {
	return Stats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Stores: m.stores.Load(),
	}
}

package memo

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// MaxNamespaceLength is the maximum allowed length for a namespace.
const MaxNamespaceLength = 128

// Sentinel errors for memo operations.
var (
	ErrNilStore          = errors.New("memo: store is nil")
	ErrNilFunc           = errors.New("memo: function is nil")
	ErrInvalidKey        = errors.New("memo: key is invalid")
	ErrKeyTooLong        = errors.New("memo: key exceeds max length")
	ErrInvalidNamespace  = errors.New("memo: namespace is invalid")
	ErrNamespaceInUse    = errors.New("memo: namespace already bound in scope")
	ErrNamespaceMismatch = errors.New("memo: store belongs to another namespace")
	ErrScopeClosed       = errors.New("memo: scope is closed")
	ErrInvalidUTF8       = errors.New("memo: string is not valid UTF-8")
)

// Store is the persistent mapping from cache key to encoded result.
//
// Contract:
// - Get returns (nil, false, nil) on miss. A non-nil error means the store
// could not answer; callers must not treat it as a miss.
// - Set stores value under key, replacing any earlier value.
// - Implementations own the bytes they return; callers may retain them.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// namespaced is implemented by stores that belong to a single namespace.
type namespaced interface {
	Namespace() string
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// ValidateNamespace checks that a namespace is usable as a key prefix and
// as the base of a shelf file name.
func ValidateNamespace(namespace string) error {
	if strings.TrimSpace(namespace) == "" || len(namespace) > MaxNamespaceLength {
		return ErrInvalidNamespace
	}
	if strings.ContainsAny(namespace, "\n\r:") {
		return ErrInvalidNamespace
	}
	return nil
}

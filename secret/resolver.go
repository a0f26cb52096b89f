package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingEnv indicates a referenced environment variable is unset.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrUnknownProvider indicates a secretref naming an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrEmptySecret indicates a provider returned an empty value in strict mode.
	ErrEmptySecret = errors.New("secret: empty value")
)

const refPrefix = "secretref:"

// Resolver resolves secret references using registered providers.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. In strict mode a provider returning an
// empty string is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// DefaultResolver returns a strict resolver with the file and env providers.
func DefaultResolver() *Resolver {
	return NewResolver(true, FileProvider{}, EnvProvider{})
}

// Register adds or replaces a provider.
func (r *Resolver) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// ParseSecretRef splits "secretref:<provider>:<ref>". ok is false for
// values that are not a complete reference.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// ResolveValue expands environment variables in value, then resolves it
// if it is a secret reference.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	name, ref, ok := ParseSecretRef(expanded)
	if !ok {
		return expanded, nil
	}
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	resolved, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("secret provider %q: %w", name, err)
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("%w from provider %q", ErrEmptySecret, name)
	}
	return resolved, nil
}

// Close closes every registered provider.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

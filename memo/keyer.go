package memo

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer generates deterministic cache keys from call arguments.
//
// Contract:
// - Determinism: same arguments must produce the same key, regardless of map
// iteration order or the order keyword arguments were supplied in.
// - Identity: keys depend only on argument values, never on addresses.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from a namespace and the call arguments.
	Key(namespace string, args any) (string, error)
}

// Call is a positional plus keyword argument list.
//
// Kwargs is a map, so two Calls built with the same keyword arguments in a
// different order canonicalize to the same key. A nil Args or Kwargs is the
// same as an empty one.
type Call struct {
	Args   []any
	Kwargs map[string]any
}

// MarshalJSON renders the call as {"args":[...],"kwargs":{...}}.
func (c Call) MarshalJSON() ([]byte, error) {
	args := c.Args
	if args == nil {
		args = []any{}
	}
	kwargs := c.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return json.Marshal(struct {
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	}{args, kwargs})
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: memo:<namespace>:<hash>
// where hash is the hex SHA-256 of the canonical JSON of args.
func (k *DefaultKeyer) Key(namespace string, args any) (string, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return "", err
	}

	canonical, err := Canonicalize(args)
	if err != nil {
		return "", fmt.Errorf("memo: failed to canonicalize arguments: %w", err)
	}

	hash := sha256.Sum256(canonical)
	key := "memo:" + namespace + ":" + hex.EncodeToString(hash[:])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Canonicalize produces a deterministic JSON representation of v.
//
// v is first projected to plain JSON values (so structs, typed maps and
// json.Marshaler implementations all take part), then re-serialized with
// object keys sorted at every depth. Numbers keep their literal form.
// Strings that are not valid UTF-8 are rejected with ErrInvalidUTF8.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := validUTF8(v); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var plain any
	if err := dec.Decode(&plain); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, plain); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		return writeCanonicalMap(buf, val)
	case []any:
		return writeCanonicalSlice(buf, val)
	case json.Number:
		buf.WriteString(val.String())
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

func writeCanonicalMap(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		if err := writeCanonical(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalSlice(buf *bytes.Buffer, s []any) error {
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)

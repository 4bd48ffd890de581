package diddoc

import (
	"encoding/json"
	"fmt"
	"slices"
)

// W3C DID core v1 context
const ContextV1 = "https://www.w3.org/ns/did/v1"

// Context is the normalized "@context" of a document: an ordered, non-empty sequence of identifiers.
//
// The wire form seen at decode time (a single string, or an array) is remembered and re-emitted on encode.
// Equality ignores the wire form.
type Context struct {
	entries []string
	scalar  bool
}

// NewContext builds a context which encodes as an array.
func NewContext(entries ...string) (Context, error) {
	if err := checkContextEntries(entries); err != nil {
		return Context{}, err
	}
	return Context{entries: slices.Clone(entries)}, nil
}

// NewScalarContext builds a single-entry context which encodes as a plain string.
func NewScalarContext(entry string) (Context, error) {
	if err := checkContextEntries([]string{entry}); err != nil {
		return Context{}, err
	}
	return Context{entries: []string{entry}, scalar: true}, nil
}

func checkContextEntries(entries []string) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrMalformedContext)
	}
	for i, e := range entries {
		if e == "" {
			return fmt.Errorf("%w: entry %d is empty", ErrMalformedContext, i)
		}
	}
	return nil
}

// ParseContext accepts a JSON string or array of strings.
func ParseContext(raw json.RawMessage) (Context, error) {
	switch firstByte(raw) {
	case '"':
		s, err := readString(raw)
		if err != nil {
			return Context{}, fmt.Errorf("%w: %v", ErrMalformedContext, err)
		}
		return NewScalarContext(s)
	case '[':
		var entries []string
		if err := json.Unmarshal(raw, &entries); err != nil {
			return Context{}, fmt.Errorf("%w: array entries must be strings", ErrMalformedContext)
		}
		return NewContext(entries...)
	default:
		return Context{}, fmt.Errorf("%w: expected a string or an array of strings", ErrMalformedContext)
	}
}

// Sequence returns a copy of the entries, in order.
func (c Context) Sequence() []string {
	return slices.Clone(c.entries)
}

// IsScalar reports whether the context encodes as a plain string.
func (c Context) IsScalar() bool {
	return c.scalar
}

func (c Context) Contains(entry string) bool {
	return slices.Contains(c.entries, entry)
}

func (c Context) Equal(other Context) bool {
	return slices.Equal(c.entries, other.entries)
}

func (c Context) MarshalJSON() ([]byte, error) {
	if err := checkContextEntries(c.entries); err != nil {
		return nil, err
	}
	if c.scalar && len(c.entries) == 1 {
		return json.Marshal(c.entries[0])
	}
	return json.Marshal(c.entries)
}

func (c *Context) UnmarshalJSON(b []byte) error {
	ctx, err := ParseContext(b)
	if err != nil {
		return decodeErr("Context", "@context", err)
	}
	*c = ctx
	return nil
}

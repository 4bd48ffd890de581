package diddoc

import (
	"fmt"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Subject is an opaque identifier: a document's own id, a controller, or a reference to a verification method.
//
// No normalization is performed; equality is exact string equality. Use [ParseSubject] rather than converting strings directly.
type Subject string

func ParseSubject(raw string) (Subject, error) {
	if raw == "" {
		return "", ErrEmptyIdentifier
	}
	return Subject(raw), nil
}

func (s Subject) String() string {
	return string(s)
}

// DID returns the DID portion of a DID URL (everything before any path, query or fragment), checked against DID syntax.
func (s Subject) DID() (syntax.DID, error) {
	raw := string(s)
	if idx := strings.IndexAny(raw, "/?#"); idx >= 0 {
		raw = raw[:idx]
	}
	did, err := syntax.ParseDID(raw)
	if err != nil {
		return "", fmt.Errorf("subject %q is not a DID URL: %w", s, err)
	}
	return did, nil
}

// Fragment returns the text after '#', or an empty string.
func (s Subject) Fragment() string {
	_, frag, _ := strings.Cut(string(s), "#")
	return frag
}

func (s Subject) MarshalText() ([]byte, error) {
	if s == "" {
		return nil, ErrEmptyIdentifier
	}
	return []byte(s), nil
}

func (s *Subject) UnmarshalText(text []byte) error {
	subj, err := ParseSubject(string(text))
	if err != nil {
		return err
	}
	*s = subj
	return nil
}

func decodeSubject(entity, field string, raw []byte) (Subject, error) {
	str, err := readString(raw)
	if err != nil {
		return "", decodeErr(entity, field, err)
	}
	subj, err := ParseSubject(str)
	if err != nil {
		return "", decodeErr(entity, field, err)
	}
	return subj, nil
}

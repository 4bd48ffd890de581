package diddoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type member struct {
	key   string
	value json.RawMessage
}

// readObject returns the members of a JSON object in wire order, values left raw.
// Repeated keys are all returned; callers decide what to do with them.
func readObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedJSON)
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key is not a string", ErrMalformedJSON)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: member %q: %v", ErrMalformedJSON, key, err)
		}
		members = append(members, member{key: key, value: raw})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedJSON)
	}
	return members, nil
}

// readArray splits a JSON array into its raw elements. null is not an array.
func readArray(data []byte) ([]json.RawMessage, error) {
	if firstByte(data) != '[' {
		return nil, fmt.Errorf("%w: expected an array", ErrMalformedField)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return elems, nil
}

func readString(data []byte) (string, error) {
	if firstByte(data) != '"' {
		return "", fmt.Errorf("%w: expected a string", ErrMalformedField)
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return s, nil
}

// firstByte returns the first non-whitespace byte, or 0 if there is none.
func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}

// objectWriter emits a JSON object member by member, in call order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) raw(key string, value []byte) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(value)
	w.n++
}

func (w *objectWriter) value(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	w.raw(key, b)
	return nil
}

func (w *objectWriter) extension(ext Extension) {
	ext.Each(func(key string, value json.RawMessage) {
		w.raw(key, value)
	})
}

func (w *objectWriter) bytes() []byte {
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}

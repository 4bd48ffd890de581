package diddoc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Extension is an ordered mapping of JSON members not recognized by the typed model.
//
// Insertion order is preserved. Putting a key a second time replaces the value but keeps the key's original position (last write wins).
// Values are stored compacted. The zero value is an empty mapping.
type Extension struct {
	m *linkedhashmap.Map
}

func NewExtension() Extension {
	return Extension{m: linkedhashmap.New()}
}

// Put adds or replaces a member. The value must be valid JSON.
func (e *Extension) Put(key string, value json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return fmt.Errorf("%w: extension member %q: %v", ErrMalformedJSON, key, err)
	}
	if e.m == nil {
		e.m = linkedhashmap.New()
	}
	e.m.Put(key, json.RawMessage(buf.Bytes()))
	return nil
}

func (e Extension) Get(key string) (json.RawMessage, bool) {
	if e.m == nil {
		return nil, false
	}
	v, ok := e.m.Get(key)
	if !ok {
		return nil, false
	}
	return v.(json.RawMessage), true
}

func (e Extension) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

func (e Extension) Len() int {
	if e.m == nil {
		return 0
	}
	return e.m.Size()
}

// Keys returns member names in order.
func (e Extension) Keys() []string {
	keys := make([]string, 0, e.Len())
	e.Each(func(key string, _ json.RawMessage) {
		keys = append(keys, key)
	})
	return keys
}

// Each calls fn for every member, in order.
func (e Extension) Each(fn func(key string, value json.RawMessage)) {
	if e.m == nil {
		return
	}
	it := e.m.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value().(json.RawMessage))
	}
}

func (e Extension) Clone() Extension {
	out := NewExtension()
	e.Each(func(key string, value json.RawMessage) {
		out.m.Put(key, value)
	})
	return out
}

// Equal compares members, values and order.
func (e Extension) Equal(other Extension) bool {
	if e.Len() != other.Len() {
		return false
	}
	a, b := e.Keys(), other.Keys()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
		av, _ := e.Get(a[i])
		bv, _ := other.Get(b[i])
		if !bytes.Equal(av, bv) {
			return false
		}
	}
	return true
}

func (e Extension) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.extension(e)
	return w.bytes(), nil
}

func (e *Extension) UnmarshalJSON(b []byte) error {
	members, err := readObject(b)
	if err != nil {
		return err
	}
	out := NewExtension()
	for _, m := range members {
		if err := out.Put(m.key, m.value); err != nil {
			return err
		}
	}
	*e = out
	return nil
}

package diddoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextForms(t *testing.T) {
	assert := assert.New(t)

	scalar, err := ParseContext(json.RawMessage(`"https://example.org/v1"`))
	require.NoError(t, err)
	list, err := ParseContext(json.RawMessage(`["https://example.org/v1"]`))
	require.NoError(t, err)

	assert.True(scalar.Equal(list))
	assert.Equal(scalar.Sequence(), list.Sequence())
	assert.True(scalar.IsScalar())
	assert.False(list.IsScalar())

	// each form re-encodes the way it was read
	out, err := json.Marshal(scalar)
	assert.NoError(err)
	assert.Equal(`"https://example.org/v1"`, string(out))
	out, err = json.Marshal(list)
	assert.NoError(err)
	assert.Equal(`["https://example.org/v1"]`, string(out))

	multi, err := ParseContext(json.RawMessage(` ["a", "b", "c"] `))
	require.NoError(t, err)
	assert.Equal([]string{"a", "b", "c"}, multi.Sequence())
	assert.True(multi.Contains("b"))
	assert.False(multi.Contains("d"))
	assert.False(multi.Equal(list))
}

func TestContextInvalid(t *testing.T) {
	assert := assert.New(t)

	for _, raw := range []string{`[]`, `42`, `null`, `{}`, `[1]`, `["a", null]`, `""`, `["a", ""]`, `true`} {
		_, err := ParseContext(json.RawMessage(raw))
		assert.ErrorIs(err, ErrMalformedContext, raw)

		var c Context
		err = json.Unmarshal([]byte(raw), &c)
		assert.ErrorIs(err, ErrMalformedContext, raw)
	}

	_, err := NewContext()
	assert.ErrorIs(err, ErrMalformedContext)
	_, err = NewScalarContext("")
	assert.ErrorIs(err, ErrMalformedContext)

	_, err = json.Marshal(Context{})
	assert.ErrorIs(err, ErrMalformedContext)
}

func TestContextSequenceIsCopy(t *testing.T) {
	assert := assert.New(t)

	c, err := NewContext(ContextV1, "https://w3id.org/security/multikey/v1")
	require.NoError(t, err)
	seq := c.Sequence()
	seq[0] = "mutated"
	assert.Equal(ContextV1, c.Sequence()[0])

	var decoded Context
	require.NoError(t, json.Unmarshal([]byte(`["`+ContextV1+`"]`), &decoded))
	assert.True(decoded.Contains(ContextV1))
}

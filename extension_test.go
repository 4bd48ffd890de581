package diddoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionOrder(t *testing.T) {
	assert := assert.New(t)

	var ext Extension
	assert.Equal(0, ext.Len())
	assert.False(ext.Has("a"))
	assert.Empty(ext.Keys())

	require.NoError(t, ext.Put("zeta", json.RawMessage(`1`)))
	require.NoError(t, ext.Put("alpha", json.RawMessage(`{ "b" : [ 1, 2 ] }`)))
	require.NoError(t, ext.Put("mid", json.RawMessage(`null`)))
	require.NoError(t, ext.Put("zeta", json.RawMessage(`"replaced"`)))

	assert.Equal([]string{"zeta", "alpha", "mid"}, ext.Keys())
	v, ok := ext.Get("alpha")
	assert.True(ok)
	assert.Equal(`{"b":[1,2]}`, string(v))
	v, ok = ext.Get("mid")
	assert.True(ok)
	assert.Equal(`null`, string(v))

	out, err := json.Marshal(ext)
	assert.NoError(err)
	assert.Equal(`{"zeta":"replaced","alpha":{"b":[1,2]},"mid":null}`, string(out))

	assert.ErrorIs(ext.Put("bad", json.RawMessage(`{nope`)), ErrMalformedJSON)
}

func TestExtensionEqualAndClone(t *testing.T) {
	assert := assert.New(t)

	var a, b Extension
	require.NoError(t, json.Unmarshal([]byte(`{"x":1,"y":[true]}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"x": 1, "y": [ true ]}`), &b))
	assert.True(a.Equal(b))

	var reordered Extension
	require.NoError(t, json.Unmarshal([]byte(`{"y":[true],"x":1}`), &reordered))
	assert.False(a.Equal(reordered))

	c := a.Clone()
	require.NoError(t, c.Put("z", json.RawMessage(`2`)))
	assert.Equal(2, a.Len())
	assert.Equal(3, c.Len())

	assert.True(Extension{}.Equal(NewExtension()))

	var notObject Extension
	assert.ErrorIs(json.Unmarshal([]byte(`[1]`), &notObject), ErrMalformedJSON)
}

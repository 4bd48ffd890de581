package diddoc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationMethodRequiredFields(t *testing.T) {
	assert := assert.New(t)

	cases := map[string]string{
		"id":         `{"type":"Multikey","controller":"did:example:1"}`,
		"type":       `{"id":"did:example:1#k","controller":"did:example:1"}`,
		"controller": `{"id":"did:example:1#k","type":"Multikey"}`,
	}
	for field, raw := range cases {
		var vm VerificationMethod
		err := json.Unmarshal([]byte(raw), &vm)
		assert.ErrorIs(err, ErrMissingRequiredField, field)
		var de *DecodeError
		if assert.True(errors.As(err, &de), field) {
			assert.Equal(field, de.Field)
			assert.Equal("VerificationMethod", de.Entity)
		}
	}

	var vm VerificationMethod
	assert.ErrorIs(json.Unmarshal([]byte(`{"id":"","type":"Multikey","controller":"did:example:1"}`), &vm), ErrEmptyIdentifier)
	assert.ErrorIs(json.Unmarshal([]byte(`{"id":"did:example:1#k","type":7,"controller":"did:example:1"}`), &vm), ErrMalformedField)
	assert.ErrorIs(json.Unmarshal([]byte(`["not","an","object"]`), &vm), ErrMalformedJSON)
}

func TestVerificationMethodKinds(t *testing.T) {
	assert := assert.New(t)

	for _, tag := range []string{"Ed25519VerificationKey2018", "EcdsaSecp256k1VerificationKey2019", "Multikey", "JsonWebKey2020", "X25519KeyAgreementKey2019"} {
		kind := ParseVerificationMethodType(tag)
		assert.NotEqual(UnknownKey, kind, tag)
		assert.Equal(tag, kind.String())
	}
	assert.Equal(UnknownKey, ParseVerificationMethodType("UnknownKey"))
	assert.Equal(UnknownKey, ParseVerificationMethodType("ed25519verificationkey2018"))
	assert.Equal("UnknownKey", VerificationMethodType(99).String())

	var vm VerificationMethod
	raw := `{"id":"did:example:1#k","type":"BbsBlsSignature2020","controller":"did:example:1","publicKeyBase58":"abc"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &vm))
	assert.Equal(UnknownKey, vm.Kind())
	assert.Equal("BbsBlsSignature2020", vm.Type())
	assert.ErrorIs(vm.CheckKind(), ErrUnrecognizedMethodType)
	assert.Equal(PublicKeyBase58("abc"), vm.Encoding())

	// the unrecognized tag is written back unchanged
	out, err := json.Marshal(vm)
	assert.NoError(err)
	assert.Equal(raw, string(out))
}

func TestVerificationMethodMemberOrder(t *testing.T) {
	assert := assert.New(t)

	raw := `{"x-first":1,"id":"did:e:1#k","publicKeyHex":"ab","type":"RsaVerificationKey2018","x-second":"s","controller":"did:e:1"}`
	var vm VerificationMethod
	require.NoError(t, json.Unmarshal([]byte(raw), &vm))
	assert.Equal([]string{"x-first", "x-second"}, vm.Extra().Keys())
	assert.NoError(vm.CheckKind())

	out, err := json.Marshal(vm)
	assert.NoError(err)
	assert.Equal(`{"id":"did:e:1#k","type":"RsaVerificationKey2018","controller":"did:e:1","publicKeyHex":"ab","x-first":1,"x-second":"s"}`, string(out))

	// repeated extension members: last value, first position
	raw = `{"id":"did:e:1#k","type":"Multikey","controller":"did:e:1","a":1,"b":2,"a":{"v": 3}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &vm))
	assert.Equal([]string{"a", "b"}, vm.Extra().Keys())
	a, _ := vm.Extra().Get("a")
	assert.Equal(`{"v":3}`, string(a))
}

func TestNewVerificationMethod(t *testing.T) {
	assert := assert.New(t)

	vm, err := NewVerificationMethod("did:example:1#k", "Multikey", "did:example:1", PublicKeyMultibase("zabc"))
	require.NoError(t, err)
	assert.Equal(Multikey, vm.Kind())
	assert.Equal(Subject("did:example:1"), vm.Controller())

	_, err = NewVerificationMethod("", "Multikey", "did:example:1", UnknownKeyEncoding)
	assert.ErrorIs(err, ErrEmptyIdentifier)
	_, err = NewVerificationMethod("did:example:1#k", "Multikey", "", UnknownKeyEncoding)
	assert.ErrorIs(err, ErrEmptyIdentifier)

	ext := NewExtension()
	require.NoError(t, ext.Put("revoked", json.RawMessage(`"2024-01-01T00:00:00Z"`)))
	withExt, err := vm.WithExtension(ext)
	require.NoError(t, err)
	assert.False(vm.Equal(withExt))
	assert.Equal(0, vm.Extra().Len())

	out, err := json.Marshal(withExt)
	assert.NoError(err)
	assert.Equal(`{"id":"did:example:1#k","type":"Multikey","controller":"did:example:1","publicKeyMultibase":"zabc","revoked":"2024-01-01T00:00:00Z"}`, string(out))

	for _, reserved := range []string{"id", "controller", "publicKeyPem", "ethereumAddress"} {
		bad := NewExtension()
		require.NoError(t, bad.Put(reserved, json.RawMessage(`"x"`)))
		_, err := vm.WithExtension(bad)
		assert.ErrorIs(err, ErrMalformedField, reserved)
	}

	_, err = json.Marshal(VerificationMethod{})
	assert.ErrorIs(err, ErrEmptyIdentifier)
}

package diddoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMethodPrefix = `{"id":"did:example:123#k","type":"EcdsaSecp256k1VerificationKey2019","controller":"did:example:123"`

func TestKeyEncodingFields(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		field string
		enc   PublicKeyEncoding
	}{
		{"publicKeyPem", PublicKeyPem("-----BEGIN PUBLIC KEY-----")},
		{"publicKeyHex", PublicKeyHex("02b97c30")},
		{"publicKeyBase64", PublicKeyBase64("ArlzMN52fwhM4w==")},
		{"publicKeyBase58", PublicKeyBase58("H3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV")},
		{"publicKeyMultibase", PublicKeyMultibase("zQ3shXjHeiBuRCKmM36cuYnm7YEMzhGnCmCyW92sRJ9pribSF")},
		{"ethereumAddress", EthereumAddress("0xF3beAC30C498D9E26865F34fCAa57dBB935b0D74")},
	}
	for _, c := range cases {
		payload := c.enc.MustPayload()
		raw := testMethodPrefix + `,"` + c.field + `":"` + payload + `"}`

		var vm VerificationMethod
		require.NoError(t, json.Unmarshal([]byte(raw), &vm), c.field)
		assert.Equal(c.enc, vm.Encoding(), c.field)
		assert.Equal(c.field, vm.Encoding().FieldName())
		assert.Equal(c.field, vm.Encoding().Kind().String())
		assert.Equal(0, vm.Extra().Len(), c.field)

		out, err := json.Marshal(vm)
		assert.NoError(err)
		assert.Equal(raw, string(out))
	}
}

func TestUnknownKeyEncoding(t *testing.T) {
	assert := assert.New(t)

	var vm VerificationMethod
	require.NoError(t, json.Unmarshal([]byte(testMethodPrefix+`}`), &vm))
	enc := vm.Encoding()
	assert.Equal(UnknownKeyEncoding, enc)
	assert.True(enc.IsUnknown())
	assert.Equal("", enc.FieldName())
	assert.Equal("unknown", enc.String())

	_, err := enc.Payload()
	assert.ErrorIs(err, ErrUnknownKeyEncoding)
	assert.Panics(func() { enc.MustPayload() })

	// never-supported key fields land in the extension
	require.NoError(t, json.Unmarshal([]byte(testMethodPrefix+`,"publicKeyJwk":{"kty":"EC"}}`), &vm))
	assert.True(vm.Encoding().IsUnknown())
	assert.Equal([]string{"publicKeyJwk"}, vm.Extra().Keys())
}

func TestConflictingKeyEncoding(t *testing.T) {
	assert := assert.New(t)

	raw := []byte(testMethodPrefix + `,"publicKeyMultibase":"zabc","x-note":"n","publicKeyPem":"PEM"}`)

	var vm VerificationMethod
	err := json.Unmarshal(raw, &vm)
	assert.ErrorIs(err, ErrConflictingKeyEncoding)
	assert.Contains(err.Error(), "publicKeyPem and publicKeyMultibase")

	vm, err = decodeVerificationMethod(raw, FirstKeyWins)
	require.NoError(t, err)
	assert.Equal(PublicKeyPem("PEM"), vm.Encoding())
	assert.Equal([]string{"publicKeyMultibase", "x-note"}, vm.Extra().Keys())

	out, err := json.Marshal(vm)
	assert.NoError(err)
	assert.Equal(testMethodPrefix+`,"publicKeyPem":"PEM","publicKeyMultibase":"zabc","x-note":"n"}`, string(out))

	// repeating one key field is not a conflict
	vm, err = decodeVerificationMethod([]byte(testMethodPrefix+`,"publicKeyHex":"aa","publicKeyHex":"bb"}`), RejectConflictingKeys)
	require.NoError(t, err)
	assert.Equal(PublicKeyHex("bb"), vm.Encoding())
}

func TestNonStringKeyField(t *testing.T) {
	assert := assert.New(t)

	_, err := decodeVerificationMethod([]byte(testMethodPrefix+`,"publicKeyBase58":42}`), RejectConflictingKeys)
	assert.ErrorIs(err, ErrMalformedField)
}

func TestKeyEncodingPolicyNames(t *testing.T) {
	assert := assert.New(t)

	for _, p := range []KeyEncodingPolicy{RejectConflictingKeys, FirstKeyWins} {
		parsed, err := ParseKeyEncodingPolicy(p.String())
		assert.NoError(err)
		assert.Equal(p, parsed)
	}
	p, err := ParseKeyEncodingPolicy("")
	assert.NoError(err)
	assert.Equal(RejectConflictingKeys, p)
	_, err = ParseKeyEncodingPolicy("last")
	assert.Error(err)
	assert.Equal("invalid", KeyEncodingPolicy(7).String())
	assert.Equal("unknown", KeyEncodingUnknown.String())
}

package diddoc

import (
	"fmt"
)

// KeyEncodingKind identifies which representation of key material a [PublicKeyEncoding] holds.
//
// The declaration order is also the priority order used by the FirstKeyWins policy.
type KeyEncodingKind int

const (
	KeyEncodingUnknown KeyEncodingKind = iota
	KeyEncodingPem
	KeyEncodingHex
	KeyEncodingBase64
	KeyEncodingBase58
	KeyEncodingMultibase
	KeyEncodingEthereumAddress
)

// JSON member names, indexed by kind
var keyEncodingFields = [...]string{
	KeyEncodingUnknown:         "",
	KeyEncodingPem:             "publicKeyPem",
	KeyEncodingHex:             "publicKeyHex",
	KeyEncodingBase64:          "publicKeyBase64",
	KeyEncodingBase58:          "publicKeyBase58",
	KeyEncodingMultibase:       "publicKeyMultibase",
	KeyEncodingEthereumAddress: "ethereumAddress",
}

func keyEncodingKindForField(name string) (KeyEncodingKind, bool) {
	for k := KeyEncodingPem; k <= KeyEncodingEthereumAddress; k++ {
		if keyEncodingFields[k] == name {
			return k, true
		}
	}
	return KeyEncodingUnknown, false
}

// FieldName returns the JSON member name for this kind ("" for unknown).
func (k KeyEncodingKind) FieldName() string {
	if k < 0 || int(k) >= len(keyEncodingFields) {
		return ""
	}
	return keyEncodingFields[k]
}

func (k KeyEncodingKind) String() string {
	if k == KeyEncodingUnknown || k.FieldName() == "" {
		return "unknown"
	}
	return k.FieldName()
}

// KeyEncodingPolicy decides what happens when a verification method carries more than one public key field.
type KeyEncodingPolicy int

const (
	// Fail with ErrConflictingKeyEncoding. The default.
	RejectConflictingKeys KeyEncodingPolicy = iota
	// Select the first field in KeyEncodingKind order; the others are kept as extension members.
	FirstKeyWins
)

func (p KeyEncodingPolicy) String() string {
	switch p {
	case RejectConflictingKeys:
		return "reject"
	case FirstKeyWins:
		return "first"
	default:
		return "invalid"
	}
}

// ParseKeyEncodingPolicy accepts the names returned by String.
func ParseKeyEncodingPolicy(s string) (KeyEncodingPolicy, error) {
	switch s {
	case "reject", "":
		return RejectConflictingKeys, nil
	case "first":
		return FirstKeyWins, nil
	default:
		return RejectConflictingKeys, fmt.Errorf("unknown key encoding policy: %s", s)
	}
}

// PublicKeyEncoding is the key material of a verification method, tagged by encoding.
//
// The zero value is the unknown state: no recognized key field was present.
type PublicKeyEncoding struct {
	kind    KeyEncodingKind
	payload string
}

var UnknownKeyEncoding = PublicKeyEncoding{}

func PublicKeyPem(s string) PublicKeyEncoding {
	return PublicKeyEncoding{kind: KeyEncodingPem, payload: s}
}

func PublicKeyHex(s string) PublicKeyEncoding {
	return PublicKeyEncoding{kind: KeyEncodingHex, payload: s}
}

func PublicKeyBase64(s string) PublicKeyEncoding {
	return PublicKeyEncoding{kind: KeyEncodingBase64, payload: s}
}

func PublicKeyBase58(s string) PublicKeyEncoding {
	return PublicKeyEncoding{kind: KeyEncodingBase58, payload: s}
}

func PublicKeyMultibase(s string) PublicKeyEncoding {
	return PublicKeyEncoding{kind: KeyEncodingMultibase, payload: s}
}

func EthereumAddress(s string) PublicKeyEncoding {
	return PublicKeyEncoding{kind: KeyEncodingEthereumAddress, payload: s}
}

func (e PublicKeyEncoding) Kind() KeyEncodingKind {
	return e.kind
}

func (e PublicKeyEncoding) IsUnknown() bool {
	return e.kind == KeyEncodingUnknown
}

// FieldName returns the JSON member the payload is carried in ("" for unknown).
func (e PublicKeyEncoding) FieldName() string {
	return e.kind.FieldName()
}

// Payload returns the encoded key string. Fails with ErrUnknownKeyEncoding if there is no key material.
func (e PublicKeyEncoding) Payload() (string, error) {
	if e.IsUnknown() {
		return "", ErrUnknownKeyEncoding
	}
	return e.payload, nil
}

// MustPayload is like Payload but panics if there is no key material.
func (e PublicKeyEncoding) MustPayload() string {
	p, err := e.Payload()
	if err != nil {
		panic(err)
	}
	return p
}

func (e PublicKeyEncoding) String() string {
	if e.IsUnknown() {
		return "unknown"
	}
	return e.kind.FieldName() + "=" + e.payload
}

// selectKeyEncoding applies the policy to the key fields found on one verification method.
// found is indexed by kind; losers are the fields not selected (only with FirstKeyWins).
func selectKeyEncoding(found map[KeyEncodingKind]string, policy KeyEncodingPolicy) (PublicKeyEncoding, []KeyEncodingKind, error) {
	var present []KeyEncodingKind
	for k := KeyEncodingPem; k <= KeyEncodingEthereumAddress; k++ {
		if _, ok := found[k]; ok {
			present = append(present, k)
		}
	}
	switch {
	case len(present) == 0:
		return UnknownKeyEncoding, nil, nil
	case len(present) > 1 && policy != FirstKeyWins:
		return UnknownKeyEncoding, nil, fmt.Errorf("%w: %s and %s", ErrConflictingKeyEncoding, present[0].FieldName(), present[1].FieldName())
	}
	winner := present[0]
	return PublicKeyEncoding{kind: winner, payload: found[winner]}, present[1:], nil
}

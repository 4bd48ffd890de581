package diddoc

import (
	"encoding/json"
)

// KeySetEntry is one element of a verification relationship (role list): either an embedded [VerificationMethod] or a bare reference to one.
type KeySetEntry struct {
	method *VerificationMethod
	ref    Subject
}

// MethodEntry embeds a verification method.
func MethodEntry(vm VerificationMethod) KeySetEntry {
	return KeySetEntry{method: &vm}
}

// ReferenceEntry refers to a verification method by id.
func ReferenceEntry(ref Subject) KeySetEntry {
	return KeySetEntry{ref: ref}
}

func (e KeySetEntry) IsReference() bool {
	return e.method == nil
}

// Method returns the embedded verification method, if this entry is not a reference.
func (e KeySetEntry) Method() (VerificationMethod, bool) {
	if e.method == nil {
		return VerificationMethod{}, false
	}
	return *e.method, true
}

// Subject is the id of the embedded method, or the reference itself.
// This is the one way role lists should be compared or searched.
func (e KeySetEntry) Subject() Subject {
	if e.method != nil {
		return e.method.Subject()
	}
	return e.ref
}

// Kind is UnknownKey for references.
func (e KeySetEntry) Kind() VerificationMethodType {
	if e.method != nil {
		return e.method.Kind()
	}
	return UnknownKey
}

// Encoding is the unknown encoding for references.
func (e KeySetEntry) Encoding() PublicKeyEncoding {
	if e.method != nil {
		return e.method.Encoding()
	}
	return UnknownKeyEncoding
}

func (e KeySetEntry) Equal(other KeySetEntry) bool {
	if e.IsReference() != other.IsReference() {
		return false
	}
	if e.IsReference() {
		return e.ref == other.ref
	}
	return e.method.Equal(*other.method)
}

func (e KeySetEntry) MarshalJSON() ([]byte, error) {
	if e.method != nil {
		return e.method.MarshalJSON()
	}
	if e.ref == "" {
		return nil, ErrEmptyIdentifier
	}
	return json.Marshal(e.ref.String())
}

// UnmarshalJSON decodes with the default key encoding policy. Use a [Decoder] to choose another.
func (e *KeySetEntry) UnmarshalJSON(b []byte) error {
	out, err := decodeKeySetEntry(b, RejectConflictingKeys)
	if err != nil {
		return err
	}
	*e = out
	return nil
}

// decodeKeySetEntry dispatches on the JSON shape: objects are embedded methods, strings are references.
func decodeKeySetEntry(raw []byte, policy KeyEncodingPolicy) (KeySetEntry, error) {
	switch firstByte(raw) {
	case '{':
		vm, err := decodeVerificationMethod(raw, policy)
		if err != nil {
			return KeySetEntry{}, err
		}
		return MethodEntry(vm), nil
	case '"':
		ref, err := decodeSubject("KeySetEntry", "", raw)
		if err != nil {
			return KeySetEntry{}, err
		}
		return ReferenceEntry(ref), nil
	default:
		return KeySetEntry{}, decodeErr("KeySetEntry", "", ErrMalformedKeySetEntry)
	}
}

package diddoc

import (
	"encoding/json"
	"fmt"
	"slices"
)

// VerificationMethodType is the normalized "type" tag of a verification method.
//
// Tags not in this list normalize to UnknownKey; the original string is still kept on the [VerificationMethod].
type VerificationMethodType int

const (
	UnknownKey VerificationMethodType = iota
	JwsVerificationKey2020
	EcdsaSecp256k1VerificationKey2019
	Ed25519VerificationKey2018
	GpgVerificationKey2020
	RsaVerificationKey2018
	X25519KeyAgreementKey2019
	SchnorrSecp256k1VerificationKey2019
	EcdsaSecp256k1RecoveryMethod2020
	Multikey
	JsonWebKey2020
	Ed25519VerificationKey2020
	X25519KeyAgreementKey2020
)

var methodTypeNames = [...]string{
	UnknownKey:                          "UnknownKey",
	JwsVerificationKey2020:              "JwsVerificationKey2020",
	EcdsaSecp256k1VerificationKey2019:   "EcdsaSecp256k1VerificationKey2019",
	Ed25519VerificationKey2018:          "Ed25519VerificationKey2018",
	GpgVerificationKey2020:              "GpgVerificationKey2020",
	RsaVerificationKey2018:              "RsaVerificationKey2018",
	X25519KeyAgreementKey2019:           "X25519KeyAgreementKey2019",
	SchnorrSecp256k1VerificationKey2019: "SchnorrSecp256k1VerificationKey2019",
	EcdsaSecp256k1RecoveryMethod2020:    "EcdsaSecp256k1RecoveryMethod2020",
	Multikey:                            "Multikey",
	JsonWebKey2020:                      "JsonWebKey2020",
	Ed25519VerificationKey2020:          "Ed25519VerificationKey2020",
	X25519KeyAgreementKey2020:           "X25519KeyAgreementKey2020",
}

// ParseVerificationMethodType never fails; unrecognized tags return UnknownKey.
func ParseVerificationMethodType(tag string) VerificationMethodType {
	for t := JwsVerificationKey2020; int(t) < len(methodTypeNames); t++ {
		if methodTypeNames[t] == tag {
			return t
		}
	}
	return UnknownKey
}

func (t VerificationMethodType) String() string {
	if t < 0 || int(t) >= len(methodTypeNames) {
		return methodTypeNames[UnknownKey]
	}
	return methodTypeNames[t]
}

// member names with a typed home on VerificationMethod
func isReservedMethodField(name string) bool {
	switch name {
	case "id", "type", "controller":
		return true
	}
	_, ok := keyEncodingKindForField(name)
	return ok
}

// VerificationMethod is an identified, typed public key record.
//
// Values are immutable once constructed; the With* methods return modified copies.
type VerificationMethod struct {
	id         Subject
	typ        string
	controller Subject
	key        PublicKeyEncoding
	extra      Extension
}

// NewVerificationMethod builds a method without extension members. typ is kept verbatim.
func NewVerificationMethod(id, typ, controller string, key PublicKeyEncoding) (VerificationMethod, error) {
	subj, err := ParseSubject(id)
	if err != nil {
		return VerificationMethod{}, fmt.Errorf("verification method id: %w", err)
	}
	ctrl, err := ParseSubject(controller)
	if err != nil {
		return VerificationMethod{}, fmt.Errorf("verification method controller: %w", err)
	}
	return VerificationMethod{
		id:         subj,
		typ:        typ,
		controller: ctrl,
		key:        key,
		extra:      NewExtension(),
	}, nil
}

// WithExtension returns a copy carrying ext as its extension members.
// Members that collide with typed fields (id, type, controller, key fields) are rejected.
func (vm VerificationMethod) WithExtension(ext Extension) (VerificationMethod, error) {
	for _, k := range ext.Keys() {
		if isReservedMethodField(k) {
			return VerificationMethod{}, fmt.Errorf("%w: %q is not an extension member", ErrMalformedField, k)
		}
	}
	vm.extra = ext.Clone()
	return vm, nil
}

func (vm VerificationMethod) Subject() Subject {
	return vm.id
}

func (vm VerificationMethod) Controller() Subject {
	return vm.controller
}

// Type returns the "type" tag exactly as it appeared on the wire.
func (vm VerificationMethod) Type() string {
	return vm.typ
}

func (vm VerificationMethod) Kind() VerificationMethodType {
	return ParseVerificationMethodType(vm.typ)
}

// CheckKind returns a wrapped ErrUnrecognizedMethodType if Kind is UnknownKey.
func (vm VerificationMethod) CheckKind() error {
	if vm.Kind() == UnknownKey {
		return fmt.Errorf("%w: %q on %s", ErrUnrecognizedMethodType, vm.typ, vm.id)
	}
	return nil
}

func (vm VerificationMethod) Encoding() PublicKeyEncoding {
	return vm.key
}

// Extra returns a copy of the unrecognized members.
func (vm VerificationMethod) Extra() Extension {
	return vm.extra.Clone()
}

func (vm VerificationMethod) Equal(other VerificationMethod) bool {
	return vm.id == other.id &&
		vm.typ == other.typ &&
		vm.controller == other.controller &&
		vm.key == other.key &&
		vm.extra.Equal(other.extra)
}

func (vm VerificationMethod) MarshalJSON() ([]byte, error) {
	if vm.id == "" {
		return nil, fmt.Errorf("verification method id: %w", ErrEmptyIdentifier)
	}
	if vm.controller == "" {
		return nil, fmt.Errorf("verification method %s controller: %w", vm.id, ErrEmptyIdentifier)
	}
	w := newObjectWriter()
	if err := w.value("id", vm.id.String()); err != nil {
		return nil, err
	}
	if err := w.value("type", vm.typ); err != nil {
		return nil, err
	}
	if err := w.value("controller", vm.controller.String()); err != nil {
		return nil, err
	}
	if !vm.key.IsUnknown() {
		if err := w.value(vm.key.FieldName(), vm.key.payload); err != nil {
			return nil, err
		}
	}
	w.extension(vm.extra)
	return w.bytes(), nil
}

// UnmarshalJSON decodes with the default key encoding policy. Use a [Decoder] to choose another.
func (vm *VerificationMethod) UnmarshalJSON(b []byte) error {
	out, err := decodeVerificationMethod(b, RejectConflictingKeys)
	if err != nil {
		return err
	}
	*vm = out
	return nil
}

func decodeVerificationMethod(raw []byte, policy KeyEncodingPolicy) (VerificationMethod, error) {
	const entity = "VerificationMethod"
	members, err := readObject(raw)
	if err != nil {
		return VerificationMethod{}, decodeErr(entity, "", err)
	}

	// first pass: typed members (last occurrence wins) and key material
	var idRaw, typRaw, ctrlRaw json.RawMessage
	keys := map[KeyEncodingKind]string{}
	for _, m := range members {
		switch m.key {
		case "id":
			idRaw = m.value
		case "type":
			typRaw = m.value
		case "controller":
			ctrlRaw = m.value
		default:
			kind, ok := keyEncodingKindForField(m.key)
			if !ok {
				continue
			}
			s, err := readString(m.value)
			if err != nil {
				return VerificationMethod{}, decodeErr(entity, m.key, err)
			}
			keys[kind] = s
		}
	}

	if idRaw == nil {
		return VerificationMethod{}, decodeErr(entity, "id", ErrMissingRequiredField)
	}
	if typRaw == nil {
		return VerificationMethod{}, decodeErr(entity, "type", ErrMissingRequiredField)
	}
	if ctrlRaw == nil {
		return VerificationMethod{}, decodeErr(entity, "controller", ErrMissingRequiredField)
	}

	var vm VerificationMethod
	if vm.id, err = decodeSubject(entity, "id", idRaw); err != nil {
		return VerificationMethod{}, err
	}
	if vm.typ, err = readString(typRaw); err != nil {
		return VerificationMethod{}, decodeErr(entity, "type", err)
	}
	if vm.controller, err = decodeSubject(entity, "controller", ctrlRaw); err != nil {
		return VerificationMethod{}, err
	}

	var losers []KeyEncodingKind
	vm.key, losers, err = selectKeyEncoding(keys, policy)
	if err != nil {
		return VerificationMethod{}, decodeErr(entity, "", err)
	}

	// second pass: everything else, in wire order. Key fields which lost under FirstKeyWins are kept here.
	vm.extra = NewExtension()
	for _, m := range members {
		if kind, ok := keyEncodingKindForField(m.key); ok {
			if !slices.Contains(losers, kind) {
				continue
			}
		} else if isReservedMethodField(m.key) {
			continue
		}
		if err := vm.extra.Put(m.key, m.value); err != nil {
			return VerificationMethod{}, decodeErr(entity, m.key, err)
		}
	}
	return vm, nil
}

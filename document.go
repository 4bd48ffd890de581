package diddoc

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/ipfs/go-cid"
)

// Relationship is one of the five verification relationships (role lists) of a document.
type Relationship int

const (
	Authentication Relationship = iota
	AssertionMethod
	KeyAgreement
	CapabilityInvocation
	CapabilityDelegation
)

const numRelationships = 5

var AllRelationships = [numRelationships]Relationship{
	Authentication,
	AssertionMethod,
	KeyAgreement,
	CapabilityInvocation,
	CapabilityDelegation,
}

var relationshipFields = [numRelationships]string{
	Authentication:       "authentication",
	AssertionMethod:      "assertionMethod",
	KeyAgreement:         "keyAgreement",
	CapabilityInvocation: "capabilityInvocation",
	CapabilityDelegation: "capabilityDelegation",
}

// FieldName returns the document member holding this role list.
func (r Relationship) FieldName() string {
	if r < 0 || r >= numRelationships {
		return ""
	}
	return relationshipFields[r]
}

func (r Relationship) String() string {
	return r.FieldName()
}

func relationshipForField(name string) (Relationship, bool) {
	for i, f := range relationshipFields {
		if f == name {
			return Relationship(i), true
		}
	}
	return 0, false
}

func isReservedDocumentField(name string) bool {
	switch name {
	case "@context", "id", "created", "updated", "verificationMethod", "service":
		return true
	}
	_, ok := relationshipForField(name)
	return ok
}

// Document is a DID document: the aggregate of a context, a subject, verification methods, role lists and services, plus any unrecognized top-level members.
//
// A Document is not modified after construction. The With* methods return modified copies.
type Document struct {
	context             Context
	id                  Subject
	created             string
	updated             string
	verificationMethods []VerificationMethod
	relationships       [numRelationships][]KeySetEntry
	services            []ServiceEndpoint
	extra               Extension
}

// New returns an empty document skeleton. The context is encoded as a single string.
func New(context, id string) (*Document, error) {
	ctx, err := NewScalarContext(context)
	if err != nil {
		return nil, err
	}
	subj, err := ParseSubject(id)
	if err != nil {
		return nil, fmt.Errorf("document id: %w", err)
	}
	return &Document{
		context: ctx,
		id:      subj,
		extra:   NewExtension(),
	}, nil
}

// Decoder holds decoding options. The zero value uses the default policies.
type Decoder struct {
	KeyPolicy KeyEncodingPolicy
}

// Parse decodes a document with the default options. Either a complete document or an error is returned.
func Parse(data []byte) (*Document, error) {
	return Decoder{}.Parse(data)
}

func (d Decoder) Parse(data []byte) (*Document, error) {
	const entity = "Document"
	if !json.Valid(data) {
		return nil, decodeErr(entity, "", ErrMalformedJSON)
	}
	members, err := readObject(data)
	if err != nil {
		return nil, decodeErr(entity, "", err)
	}

	doc := Document{extra: NewExtension()}
	var ctxRaw, idRaw, createdRaw, updatedRaw, vmRaw, svcRaw json.RawMessage
	var relRaw [numRelationships]json.RawMessage
	for _, m := range members {
		switch m.key {
		case "@context":
			ctxRaw = m.value
		case "id":
			idRaw = m.value
		case "created":
			createdRaw = m.value
		case "updated":
			updatedRaw = m.value
		case "verificationMethod":
			vmRaw = m.value
		case "service":
			svcRaw = m.value
		default:
			if rel, ok := relationshipForField(m.key); ok {
				relRaw[rel] = m.value
				continue
			}
			if err := doc.extra.Put(m.key, m.value); err != nil {
				return nil, decodeErr(entity, m.key, err)
			}
		}
	}

	if ctxRaw == nil {
		return nil, decodeErr(entity, "@context", fmt.Errorf("%w: missing", ErrMalformedContext))
	}
	if doc.context, err = ParseContext(ctxRaw); err != nil {
		return nil, decodeErr(entity, "@context", err)
	}
	if idRaw == nil {
		return nil, decodeErr(entity, "id", ErrMissingRequiredField)
	}
	if doc.id, err = decodeSubject(entity, "id", idRaw); err != nil {
		return nil, err
	}
	if createdRaw != nil {
		if doc.created, err = readString(createdRaw); err != nil {
			return nil, decodeErr(entity, "created", err)
		}
	}
	if updatedRaw != nil {
		if doc.updated, err = readString(updatedRaw); err != nil {
			return nil, decodeErr(entity, "updated", err)
		}
	}

	if vmRaw != nil {
		elems, err := readArray(vmRaw)
		if err != nil {
			return nil, decodeErr(entity, "verificationMethod", err)
		}
		doc.verificationMethods = make([]VerificationMethod, 0, len(elems))
		for i, raw := range elems {
			vm, err := decodeVerificationMethod(raw, d.KeyPolicy)
			if err != nil {
				return nil, withPath(err, "VerificationMethod", fmt.Sprintf("verificationMethod[%d]", i))
			}
			doc.verificationMethods = append(doc.verificationMethods, vm)
		}
	}

	for _, rel := range AllRelationships {
		if relRaw[rel] == nil {
			continue
		}
		elems, err := readArray(relRaw[rel])
		if err != nil {
			return nil, decodeErr(entity, rel.FieldName(), err)
		}
		entries := make([]KeySetEntry, 0, len(elems))
		for i, raw := range elems {
			e, err := decodeKeySetEntry(raw, d.KeyPolicy)
			if err != nil {
				return nil, withPath(err, "KeySetEntry", fmt.Sprintf("%s[%d]", rel.FieldName(), i))
			}
			entries = append(entries, e)
		}
		doc.relationships[rel] = entries
	}

	if svcRaw != nil {
		elems, err := readArray(svcRaw)
		if err != nil {
			return nil, decodeErr(entity, "service", err)
		}
		doc.services = make([]ServiceEndpoint, 0, len(elems))
		for i, raw := range elems {
			svc, err := decodeServiceEndpoint(raw)
			if err != nil {
				return nil, withPath(err, "ServiceEndpoint", fmt.Sprintf("service[%d]", i))
			}
			doc.services = append(doc.services, svc)
		}
	}

	return &doc, nil
}

// Encode returns the canonical JSON form: typed members in a fixed order, then extension members in their captured order.
// Empty lists and timestamps are omitted.
func (d *Document) Encode() ([]byte, error) {
	if d.id == "" {
		return nil, fmt.Errorf("document id: %w", ErrEmptyIdentifier)
	}
	w := newObjectWriter()
	if err := w.value("@context", d.context); err != nil {
		return nil, err
	}
	if err := w.value("id", d.id.String()); err != nil {
		return nil, err
	}
	if d.created != "" {
		if err := w.value("created", d.created); err != nil {
			return nil, err
		}
	}
	if d.updated != "" {
		if err := w.value("updated", d.updated); err != nil {
			return nil, err
		}
	}
	if len(d.verificationMethods) > 0 {
		if err := w.value("verificationMethod", d.verificationMethods); err != nil {
			return nil, err
		}
	}
	for _, rel := range AllRelationships {
		if len(d.relationships[rel]) == 0 {
			continue
		}
		if err := w.value(rel.FieldName(), d.relationships[rel]); err != nil {
			return nil, err
		}
	}
	if len(d.services) > 0 {
		if err := w.value("service", d.services); err != nil {
			return nil, err
		}
	}
	w.extension(d.extra)
	return w.bytes(), nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return d.Encode()
}

func (d *Document) UnmarshalJSON(b []byte) error {
	doc, err := Parse(b)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// Context returns the normalized context entries.
func (d *Document) Context() Context {
	return d.context
}

func (d *Document) Subject() Subject {
	return d.id
}

// Created returns the raw "created" timestamp, or "" if absent.
func (d *Document) Created() string {
	return d.created
}

// Updated returns the raw "updated" timestamp, or "" if absent.
func (d *Document) Updated() string {
	return d.updated
}

// CreatedAt parses the "created" timestamp.
func (d *Document) CreatedAt() (time.Time, error) {
	return parseTimestamp("created", d.created)
}

// UpdatedAt parses the "updated" timestamp.
func (d *Document) UpdatedAt() (time.Time, error) {
	return parseTimestamp("updated", d.updated)
}

func parseTimestamp(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("document has no %q timestamp", field)
	}
	dt, err := syntax.ParseDatetime(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("document %q timestamp: %w", field, err)
	}
	return dt.Time(), nil
}

func (d *Document) VerificationMethods() []VerificationMethod {
	return slices.Clone(d.verificationMethods)
}

// Relationship returns the entries of one role list.
func (d *Document) Relationship(rel Relationship) []KeySetEntry {
	if rel < 0 || rel >= numRelationships {
		return nil
	}
	return slices.Clone(d.relationships[rel])
}

func (d *Document) Authentication() []KeySetEntry {
	return d.Relationship(Authentication)
}

func (d *Document) AssertionMethod() []KeySetEntry {
	return d.Relationship(AssertionMethod)
}

func (d *Document) KeyAgreement() []KeySetEntry {
	return d.Relationship(KeyAgreement)
}

func (d *Document) CapabilityInvocation() []KeySetEntry {
	return d.Relationship(CapabilityInvocation)
}

func (d *Document) CapabilityDelegation() []KeySetEntry {
	return d.Relationship(CapabilityDelegation)
}

func (d *Document) Services() []ServiceEndpoint {
	return slices.Clone(d.services)
}

// Extra returns a copy of the unrecognized top-level members.
func (d *Document) Extra() Extension {
	return d.extra.Clone()
}

func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if !d.context.Equal(other.context) || d.context.IsScalar() != other.context.IsScalar() {
		return false
	}
	if d.id != other.id || d.created != other.created || d.updated != other.updated {
		return false
	}
	if !slices.EqualFunc(d.verificationMethods, other.verificationMethods, VerificationMethod.Equal) {
		return false
	}
	for _, rel := range AllRelationships {
		if !slices.EqualFunc(d.relationships[rel], other.relationships[rel], KeySetEntry.Equal) {
			return false
		}
	}
	if !slices.EqualFunc(d.services, other.services, ServiceEndpoint.Equal) {
		return false
	}
	return d.extra.Equal(other.extra)
}

func (d *Document) clone() *Document {
	out := *d
	out.verificationMethods = slices.Clone(d.verificationMethods)
	for i := range out.relationships {
		out.relationships[i] = slices.Clone(d.relationships[i])
	}
	out.services = slices.Clone(d.services)
	out.extra = d.extra.Clone()
	return &out
}

// WithTimestamps returns a copy with the given created and updated values ("" to omit).
func (d *Document) WithTimestamps(created, updated string) *Document {
	out := d.clone()
	out.created = created
	out.updated = updated
	return out
}

// WithVerificationMethods returns a copy whose verificationMethod list is replaced.
func (d *Document) WithVerificationMethods(vms ...VerificationMethod) *Document {
	out := d.clone()
	out.verificationMethods = slices.Clone(vms)
	return out
}

// WithRelationship returns a copy with one role list replaced.
func (d *Document) WithRelationship(rel Relationship, entries ...KeySetEntry) *Document {
	out := d.clone()
	if rel >= 0 && rel < numRelationships {
		out.relationships[rel] = slices.Clone(entries)
	}
	return out
}

// WithServices returns a copy whose service list is replaced.
func (d *Document) WithServices(svcs ...ServiceEndpoint) *Document {
	out := d.clone()
	out.services = slices.Clone(svcs)
	return out
}

// WithExtension returns a copy carrying ext as its top-level extension members.
// Members that collide with typed document fields are rejected.
func (d *Document) WithExtension(ext Extension) (*Document, error) {
	for _, k := range ext.Keys() {
		if isReservedDocumentField(k) {
			return nil, fmt.Errorf("%w: %q is not an extension member", ErrMalformedField, k)
		}
	}
	out := d.clone()
	out.extra = ext.Clone()
	return out, nil
}

// absolute resolves a fragment-only reference ("#key-1") against the document id.
func (d *Document) absolute(s Subject) Subject {
	if strings.HasPrefix(string(s), "#") {
		return d.id + s
	}
	return s
}

// ResolveEntry finds the verification method a role list entry denotes.
//
// Embedded entries resolve to themselves. References are matched against the top-level verificationMethod list first, then against methods embedded in any role list.
// Fragment-only references are resolved relative to the document id.
func (d *Document) ResolveEntry(e KeySetEntry) (VerificationMethod, bool) {
	if vm, ok := e.Method(); ok {
		return vm, true
	}
	target := d.absolute(e.Subject())
	for _, vm := range d.verificationMethods {
		if d.absolute(vm.Subject()) == target {
			return vm, true
		}
	}
	for _, entries := range d.relationships {
		for _, other := range entries {
			if vm, ok := other.Method(); ok && d.absolute(vm.Subject()) == target {
				return vm, true
			}
		}
	}
	return VerificationMethod{}, false
}

// DanglingReferences returns role list references which do not resolve to any verification method in this document, in document order.
//
// These are not errors: a reference may point at a method in another document.
func (d *Document) DanglingReferences() []Subject {
	known := hashset.New()
	for _, vm := range d.verificationMethods {
		known.Add(d.absolute(vm.Subject()))
	}
	for _, entries := range d.relationships {
		for _, e := range entries {
			if !e.IsReference() {
				known.Add(d.absolute(e.Subject()))
			}
		}
	}

	var dangling []Subject
	for _, entries := range d.relationships {
		for _, e := range entries {
			if e.IsReference() && !known.Contains(d.absolute(e.Subject())) {
				dangling = append(dangling, e.Subject())
			}
		}
	}
	return dangling
}

// CID computes a content identifier (CIDv1, raw codec, sha2-256) over the canonical encoding.
func (d *Document) CID() (cid.Cid, error) {
	b, err := d.Encode()
	if err != nil {
		return cid.Undef, err
	}
	builder := cid.V1Builder{Codec: cid.Raw, MhType: 0x12, MhLength: 0}
	c, err := builder.Sum(b)
	if err != nil {
		return cid.Undef, fmt.Errorf("failed to compute document CID: %w", err)
	}
	return c, nil
}

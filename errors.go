package diddoc

import (
	"errors"
	"fmt"
)

var (
	// Input is not valid JSON, or a value that must be an object is not one.
	ErrMalformedJSON = errors.New("malformed JSON")

	// "@context" is neither a string nor a non-empty array of strings.
	ErrMalformedContext = errors.New("malformed @context")

	// A Subject-typed field is an empty string.
	ErrEmptyIdentifier = errors.New("empty identifier")

	// Returned by VerificationMethod.CheckKind. Never returned from decoding.
	ErrUnrecognizedMethodType = errors.New("unrecognized verification method type")

	// More than one public key field was present (with RejectConflictingKeys policy).
	ErrConflictingKeyEncoding = errors.New("conflicting public key encodings")

	// id, type or controller absent from a verification method (or id from a document).
	ErrMissingRequiredField = errors.New("missing required field")

	// Returned by PublicKeyEncoding.Payload when no key material is present.
	ErrUnknownKeyEncoding = errors.New("unknown public key encoding has no payload")

	// A role list element is neither an object nor a string.
	ErrMalformedKeySetEntry = errors.New("key set entry is neither an object nor a string")

	// A field has the wrong JSON type.
	ErrMalformedField = errors.New("malformed field")
)

// DecodeError reports which entity and field failed to decode, and where in
// the document the entity sits.
type DecodeError struct {
	// Type of the innermost entity being decoded, eg "VerificationMethod"
	Entity string
	// Location of the entity in the document, eg "authentication[1]". Empty for the document itself.
	Path string
	// JSON member name, if the failure is specific to one
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	loc := e.Entity
	if e.Path != "" {
		loc += " at " + e.Path
	}
	if e.Field != "" {
		return fmt.Sprintf("failed to decode %s: field %q: %v", loc, e.Field, e.Err)
	}
	return fmt.Sprintf("failed to decode %s: %v", loc, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(entity, field string, err error) error {
	return &DecodeError{Entity: entity, Field: field, Err: err}
}

// withPath prefixes the location of a nested DecodeError; other errors are wrapped as a field failure of the parent.
func withPath(err error, entity, path string) error {
	var de *DecodeError
	if errors.As(err, &de) {
		p := path
		if de.Path != "" {
			p = path + "." + de.Path
		}
		return &DecodeError{Entity: de.Entity, Path: p, Field: de.Field, Err: de.Err}
	}
	return &DecodeError{Entity: entity, Path: path, Err: err}
}

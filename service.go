package diddoc

import (
	"encoding/json"
)

// ServiceEndpoint is a "service" entry. It is carried opaquely: every member is kept, in order, exactly as decoded.
type ServiceEndpoint struct {
	fields Extension
}

// NewServiceEndpoint builds the common id/type/serviceEndpoint shape with a string endpoint.
func NewServiceEndpoint(id, typ, endpoint string) (ServiceEndpoint, error) {
	fields := NewExtension()
	for _, kv := range [][2]string{{"id", id}, {"type", typ}, {"serviceEndpoint", endpoint}} {
		b, err := json.Marshal(kv[1])
		if err != nil {
			return ServiceEndpoint{}, err
		}
		if err := fields.Put(kv[0], b); err != nil {
			return ServiceEndpoint{}, err
		}
	}
	return ServiceEndpoint{fields: fields}, nil
}

func (s ServiceEndpoint) stringField(name string) string {
	raw, ok := s.fields.Get(name)
	if !ok {
		return ""
	}
	str, err := readString(raw)
	if err != nil {
		return ""
	}
	return str
}

// ID returns the "id" member if it is a string, else "".
func (s ServiceEndpoint) ID() string {
	return s.stringField("id")
}

// Type returns the "type" member if it is a string, else "" (eg, for an array of types).
func (s ServiceEndpoint) Type() string {
	return s.stringField("type")
}

// Endpoint returns the raw "serviceEndpoint" member, which may be a string, object or array.
func (s ServiceEndpoint) Endpoint() json.RawMessage {
	raw, _ := s.fields.Get("serviceEndpoint")
	return raw
}

// Fields returns a copy of all members.
func (s ServiceEndpoint) Fields() Extension {
	return s.fields.Clone()
}

func (s ServiceEndpoint) Equal(other ServiceEndpoint) bool {
	return s.fields.Equal(other.fields)
}

func (s ServiceEndpoint) MarshalJSON() ([]byte, error) {
	return s.fields.MarshalJSON()
}

func (s *ServiceEndpoint) UnmarshalJSON(b []byte) error {
	out, err := decodeServiceEndpoint(b)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func decodeServiceEndpoint(raw []byte) (ServiceEndpoint, error) {
	var fields Extension
	if err := fields.UnmarshalJSON(raw); err != nil {
		return ServiceEndpoint{}, decodeErr("ServiceEndpoint", "", err)
	}
	return ServiceEndpoint{fields: fields}, nil
}

package account

import (
	"bytes"
	"encoding/json"
	"maps"

	"gopkg.in/yaml.v3"
)

// CredentialForm identifies which shape a credential blob was supplied in.
type CredentialForm int

const (
	// FormNone means no usable credential blob was supplied.
	FormNone CredentialForm = iota
	// FormMapping is a name to value cookie mapping.
	FormMapping
	// FormDelimited is a "k1=v1; k2=v2" cookie header string.
	FormDelimited
)

func (f CredentialForm) String() string {
	switch f {
	case FormMapping:
		return "mapping"
	case FormDelimited:
		return "delimited"
	default:
		return "none"
	}
}

// Credentials is the raw cookie blob of an account.
// The form is fixed when the value is constructed or decoded.
type Credentials struct {
	form    CredentialForm
	mapping map[string]string
	raw     string
}

// MappingCredentials builds credentials from a cookie mapping.
func MappingCredentials(m map[string]string) Credentials {
	return Credentials{form: FormMapping, mapping: maps.Clone(m)}
}

// DelimitedCredentials builds credentials from a cookie header string.
func DelimitedCredentials(s string) Credentials {
	return Credentials{form: FormDelimited, raw: s}
}

// Form returns the shape the credentials were supplied in.
func (c Credentials) Form() CredentialForm {
	return c.form
}

func (c Credentials) clone() Credentials {
	c.mapping = maps.Clone(c.mapping)
	return c
}

// UnmarshalJSON accepts either a JSON object of strings or a JSON string.
// Any other shape decodes to FormNone rather than failing the whole config.
func (c *Credentials) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*c = Credentials{}
		return nil
	}

	switch data[0] {
	case '{':
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			*c = Credentials{}
			return nil
		}
		*c = Credentials{form: FormMapping, mapping: m}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = DelimitedCredentials(s)
	default:
		*c = Credentials{}
	}
	return nil
}

// MarshalJSON writes the credentials back in the form they were supplied.
func (c Credentials) MarshalJSON() ([]byte, error) {
	switch c.form {
	case FormMapping:
		return json.Marshal(c.mapping)
	case FormDelimited:
		return json.Marshal(c.raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalYAML accepts either a mapping node or a scalar string.
func (c *Credentials) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var m map[string]string
		if err := value.Decode(&m); err != nil {
			*c = Credentials{}
			return nil
		}
		*c = Credentials{form: FormMapping, mapping: m}
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*c = DelimitedCredentials(s)
	default:
		*c = Credentials{}
	}
	return nil
}

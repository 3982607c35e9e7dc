// Package schema compiles JSON Schema documents into a closed set of
// validation rules and reports the first violation with a path to it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON Schema restricted to the vocabulary the engine
// validates: type, enum, required, properties, additionalProperties, items,
// min/max length, min/max items and numeric bounds.
type Schema struct {
	raw []byte

	types []string
	enum  []any

	required   []string
	properties []property
	closed     bool    // additionalProperties: false
	additional *Schema // additionalProperties: {...}
	items      *Schema

	minLength, maxLength *int
	minItems, maxItems   *int

	minimum, maximum                   *float64
	exclusiveMinFlag, exclusiveMaxFlag bool     // draft-4 boolean form
	exclusiveMinimum, exclusiveMaximum *float64 // draft-6 numeric form

	rules []rule
}

type property struct {
	name   string
	schema *Schema
}

type document struct {
	Type                 json.RawMessage `json:"type"`
	Enum                 json.RawMessage `json:"enum"`
	Required             []string        `json:"required"`
	Properties           json.RawMessage `json:"properties"`
	AdditionalProperties json.RawMessage `json:"additionalProperties"`
	Items                json.RawMessage `json:"items"`
	MinLength            *int            `json:"minLength"`
	MaxLength            *int            `json:"maxLength"`
	MinItems             *int            `json:"minItems"`
	MaxItems             *int            `json:"maxItems"`
	Minimum              *float64        `json:"minimum"`
	Maximum              *float64        `json:"maximum"`
	ExclusiveMinimum     json.RawMessage `json:"exclusiveMinimum"`
	ExclusiveMaximum     json.RawMessage `json:"exclusiveMaximum"`
}

// Compile checks raw against the JSON Schema meta-schema and builds the rule
// set used by Validate.
func Compile(raw []byte) (*Schema, error) {
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return build(raw)
}

// CompileMap compiles a schema expressed as decoded JSON.
func CompileMap(m map[string]any) (*Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return Compile(raw)
}

// MustCompile is like Compile but panics on error. Use it for schemas
// declared as package-level literals.
func MustCompile(raw string) *Schema {
	s, err := Compile([]byte(raw))
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the source document.
func (s *Schema) Raw() []byte {
	return s.raw
}

func build(raw []byte) (*Schema, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	s := &Schema{
		raw:       raw,
		required:  doc.Required,
		minLength: doc.MinLength,
		maxLength: doc.MaxLength,
		minItems:  doc.MinItems,
		maxItems:  doc.MaxItems,
		minimum:   doc.Minimum,
		maximum:   doc.Maximum,
	}

	if len(doc.Type) > 0 {
		types, err := decodeTypes(doc.Type)
		if err != nil {
			return nil, err
		}
		s.types = types
	}

	if len(doc.Enum) > 0 {
		if err := json.Unmarshal(doc.Enum, &s.enum); err != nil {
			return nil, fmt.Errorf("failed to decode enum: %w", err)
		}
	}

	if len(doc.Properties) > 0 {
		keys, values, err := orderedObject(doc.Properties)
		if err != nil {
			return nil, fmt.Errorf("failed to decode properties: %w", err)
		}
		for _, key := range keys {
			sub, err := build(values[key])
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", key, err)
			}
			s.properties = append(s.properties, property{name: key, schema: sub})
		}
	}

	if len(doc.AdditionalProperties) > 0 {
		var flag bool
		if err := json.Unmarshal(doc.AdditionalProperties, &flag); err == nil {
			s.closed = !flag
		} else {
			sub, err := build(doc.AdditionalProperties)
			if err != nil {
				return nil, fmt.Errorf("additionalProperties: %w", err)
			}
			s.additional = sub
		}
	}

	// Only the single-schema form of items is part of the vocabulary; tuple
	// arrays are accepted by the meta-check and left unvalidated.
	if len(doc.Items) > 0 && bytes.TrimSpace(doc.Items)[0] == '{' {
		sub, err := build(doc.Items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.items = sub
	}

	if err := decodeExclusive(doc.ExclusiveMinimum, &s.exclusiveMinFlag, &s.exclusiveMinimum); err != nil {
		return nil, fmt.Errorf("exclusiveMinimum: %w", err)
	}
	if err := decodeExclusive(doc.ExclusiveMaximum, &s.exclusiveMaxFlag, &s.exclusiveMaximum); err != nil {
		return nil, fmt.Errorf("exclusiveMaximum: %w", err)
	}

	s.rules = s.planRules()
	return s, nil
}

func decodeTypes(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("failed to decode type: %w", err)
	}
	return many, nil
}

func decodeExclusive(raw json.RawMessage, flag *bool, bound **float64) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, flag); err == nil {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	*bound = &n
	return nil
}

// orderedObject decodes a JSON object keeping its keys in document order.
func orderedObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value
	}
	return keys, values, nil
}

package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Parse parses a JSON Schema document.
func Parse(data []byte) (Schema, error) {
	var js jsonschema.Schema
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	return FromJSONSchema(&js)
}

// Marshal encodes s as a JSON Schema document.
func Marshal(s Schema) ([]byte, error) {
	js, err := ToJSONSchema(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(js)
}

// For infers a Schema from the Go type T.
func For[T any]() (Schema, error) {
	js, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("schema: infer: %w", err)
	}
	return FromJSONSchema(js)
}

// FromJSONSchema converts a jsonschema.Schema into a Schema.
//
// A schema without any type-constraining keyword (including the boolean
// schema true) converts to an AnyOf over every JSON type. A list of types
// converts to an AnyOf of the individual types. oneOf is treated as anyOf.
// $ref, allOf, not and non-string enums are not supported.
func FromJSONSchema(js *jsonschema.Schema) (Schema, error) {
	if js == nil {
		return nil, errors.New("schema: nil schema")
	}
	if js.Ref != "" {
		return nil, fmt.Errorf("schema: $ref %q is not supported", js.Ref)
	}
	if len(js.AllOf) > 0 {
		return nil, errors.New("schema: allOf is not supported")
	}
	meta, err := metaFrom(js)
	if err != nil {
		return nil, err
	}

	if len(js.AnyOf) > 0 || len(js.OneOf) > 0 {
		candidates := append(append([]*jsonschema.Schema{}, js.AnyOf...), js.OneOf...)
		out := &AnyOf{Meta: meta}
		for _, c := range candidates {
			s, err := FromJSONSchema(c)
			if err != nil {
				return nil, err
			}
			out.Schemas = append(out.Schemas, s)
		}
		return out, nil
	}

	if len(js.Types) > 0 {
		out := &AnyOf{Meta: meta}
		for _, t := range js.Types {
			s, err := fromType(t, js, Meta{})
			if err != nil {
				return nil, err
			}
			out.Schemas = append(out.Schemas, s)
		}
		return out, nil
	}

	typ := js.Type
	if typ == "" {
		typ = inferType(js)
	}
	if typ == "" {
		if js.Not != nil {
			return nil, errors.New("schema: not is not supported")
		}
		out := anything()
		out.Meta = meta
		return out, nil
	}
	return fromType(typ, js, meta)
}

func fromType(typ string, js *jsonschema.Schema, meta Meta) (Schema, error) {
	switch typ {
	case "null":
		return &Null{Meta: meta}, nil
	case "boolean":
		return &Boolean{Meta: meta}, nil
	case "number":
		return &Number{Meta: meta}, nil
	case "integer":
		return &Integer{Meta: meta}, nil
	case "string":
		if len(js.Enum) > 0 {
			cases := make([]string, 0, len(js.Enum))
			for _, v := range js.Enum {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("schema: enum value %v is not a string", v)
				}
				cases = append(cases, s)
			}
			return &Enum{Meta: meta, Cases: cases}, nil
		}
		return &String{Meta: meta, Pattern: js.Pattern, Format: js.Format}, nil
	case "array":
		out := &Array{Meta: meta, MinItems: js.MinItems, MaxItems: js.MaxItems}
		if js.Items != nil {
			items, err := FromJSONSchema(js.Items)
			if err != nil {
				return nil, err
			}
			out.Items = items
		}
		return out, nil
	case "object":
		out := &Object{Meta: meta, Required: js.Required}
		if len(js.Properties) > 0 {
			out.Properties = make(map[string]Schema, len(js.Properties))
			for name, p := range js.Properties {
				s, err := FromJSONSchema(p)
				if err != nil {
					return nil, fmt.Errorf("schema: property %q: %w", name, err)
				}
				out.Properties[name] = s
			}
		}
		switch ap := js.AdditionalProperties; {
		case ap == nil, isTrueSchema(ap):
		case isFalseSchema(ap):
			out.Closed = true
		default:
			s, err := FromJSONSchema(ap)
			if err != nil {
				return nil, fmt.Errorf("schema: additionalProperties: %w", err)
			}
			out.AdditionalProperties = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("schema: unknown type %q", typ)
	}
}

func inferType(js *jsonschema.Schema) string {
	switch {
	case len(js.Enum) > 0:
		return "string"
	case len(js.Properties) > 0, len(js.Required) > 0, js.AdditionalProperties != nil:
		return "object"
	case js.Items != nil, js.MinItems != nil, js.MaxItems != nil:
		return "array"
	case js.Pattern != "":
		return "string"
	}
	return ""
}

func isTrueSchema(js *jsonschema.Schema) bool {
	return inferType(js) == "" && js.Type == "" && len(js.Types) == 0 &&
		len(js.AnyOf) == 0 && len(js.OneOf) == 0 && js.Not == nil && js.Ref == ""
}

func isFalseSchema(js *jsonschema.Schema) bool {
	return js.Not != nil && isTrueSchema(js.Not)
}

func anything() *AnyOf {
	return &AnyOf{Schemas: []Schema{
		&Null{}, &Boolean{}, &Number{}, &String{}, &Array{}, &Object{},
	}}
}

func metaFrom(js *jsonschema.Schema) (Meta, error) {
	meta := Meta{
		Title:       js.Title,
		Description: js.Description,
		Examples:    js.Examples,
	}
	if len(js.Default) > 0 {
		v, err := DecodeValue(js.Default)
		if err != nil {
			return Meta{}, fmt.Errorf("schema: default: %w", err)
		}
		meta.Default = v
	}
	return meta, nil
}

// ToJSONSchema converts s into a jsonschema.Schema.
func ToJSONSchema(s Schema) (*jsonschema.Schema, error) {
	if s == nil {
		return nil, errors.New("schema: nil schema")
	}
	js := &jsonschema.Schema{}
	meta := s.Annotations()
	js.Title = meta.Title
	js.Description = meta.Description
	js.Examples = meta.Examples
	if meta.Default != nil {
		data, err := json.Marshal(meta.Default)
		if err != nil {
			return nil, fmt.Errorf("schema: default: %w", err)
		}
		js.Default = data
	}

	switch s := s.(type) {
	case *Null:
		js.Type = "null"
	case *Boolean:
		js.Type = "boolean"
	case *Number:
		js.Type = "number"
	case *Integer:
		js.Type = "integer"
	case *String:
		js.Type = "string"
		js.Pattern = s.Pattern
		js.Format = s.Format
	case *Enum:
		js.Type = "string"
		for _, c := range s.Cases {
			js.Enum = append(js.Enum, c)
		}
	case *Array:
		js.Type = "array"
		js.MinItems = s.MinItems
		js.MaxItems = s.MaxItems
		if s.Items != nil {
			items, err := ToJSONSchema(s.Items)
			if err != nil {
				return nil, err
			}
			js.Items = items
		}
	case *Object:
		js.Type = "object"
		js.Required = s.Required
		if len(s.Properties) > 0 {
			js.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
			for name, p := range s.Properties {
				ps, err := ToJSONSchema(p)
				if err != nil {
					return nil, err
				}
				js.Properties[name] = ps
			}
		}
		switch {
		case s.Closed:
			js.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
		case s.AdditionalProperties != nil:
			ap, err := ToJSONSchema(s.AdditionalProperties)
			if err != nil {
				return nil, err
			}
			js.AdditionalProperties = ap
		}
	case *AnyOf:
		for _, c := range s.Schemas {
			cs, err := ToJSONSchema(c)
			if err != nil {
				return nil, err
			}
			js.AnyOf = append(js.AnyOf, cs)
		}
	default:
		return nil, fmt.Errorf("schema: unsupported schema %T", s)
	}
	return js, nil
}

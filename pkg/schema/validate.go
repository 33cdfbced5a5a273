package schema

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// ErrorKind classifies a validation failure.
type ErrorKind int

const (
	// ErrTypeMismatch means the value has the wrong JSON type.
	ErrTypeMismatch ErrorKind = iota + 1
	// ErrMissingProperty means a required object property is absent.
	ErrMissingProperty
	// ErrPatternMismatch means a string does not match the pattern.
	ErrPatternMismatch
	// ErrInvalidPattern means the schema pattern is not a valid regexp.
	ErrInvalidPattern
	// ErrEnumMismatch means a string is not one of the enum cases.
	ErrEnumMismatch
	// ErrTooFewItems means an array is shorter than minItems.
	ErrTooFewItems
	// ErrTooManyItems means an array is longer than maxItems.
	ErrTooManyItems
	// ErrNoMatch means no anyOf candidate accepted the value.
	ErrNoMatch
	// ErrUnsupportedSchema means the schema variant is unknown.
	ErrUnsupportedSchema
	// ErrUnexpectedProperty means a closed object has an unlisted property.
	ErrUnexpectedProperty
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrTypeMismatch:
		return "type_mismatch"
	case ErrMissingProperty:
		return "missing_property"
	case ErrPatternMismatch:
		return "pattern_mismatch"
	case ErrInvalidPattern:
		return "invalid_pattern"
	case ErrEnumMismatch:
		return "enum_mismatch"
	case ErrTooFewItems:
		return "too_few_items"
	case ErrTooManyItems:
		return "too_many_items"
	case ErrNoMatch:
		return "no_match"
	case ErrUnsupportedSchema:
		return "unsupported_schema"
	case ErrUnexpectedProperty:
		return "unexpected_property"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ValidationError describes why a value does not match a schema.
type ValidationError struct {
	// Path locates the offending value. "$" is the root; object members
	// append ".name" and array elements append "[i]".
	Path string `json:"path"`

	// Kind classifies the failure.
	Kind ErrorKind `json:"kind"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Causes holds the candidate failures of an anyOf mismatch.
	Causes []*ValidationError `json:"causes,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Message)
}

// Validate checks value against s. It returns nil or a *ValidationError.
// The value is never modified.
func Validate(value any, s Schema) error {
	if err := validate(value, s, "$"); err != nil {
		return err
	}
	return nil
}

func validate(value any, s Schema, path string) *ValidationError {
	switch s := s.(type) {
	case *Null:
		if value != nil {
			return typeMismatch(path, "null", value)
		}
	case *Boolean:
		if _, ok := value.(bool); !ok {
			return typeMismatch(path, "boolean", value)
		}
	case *String:
		str, ok := value.(string)
		if !ok {
			return typeMismatch(path, "string", value)
		}
		if s.Pattern != "" {
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				return &ValidationError{
					Path:    path,
					Kind:    ErrInvalidPattern,
					Message: fmt.Sprintf("invalid pattern %q: %v", s.Pattern, err),
				}
			}
			if !re.MatchString(str) {
				return &ValidationError{
					Path:    path,
					Kind:    ErrPatternMismatch,
					Message: fmt.Sprintf("%q does not match pattern %q", str, s.Pattern),
				}
			}
		}
	case *Number:
		if _, ok := numericOf(value); !ok {
			return typeMismatch(path, "number", value)
		}
	case *Integer:
		f, ok := numericOf(value)
		if !ok || !isWhole(f) {
			return typeMismatch(path, "integer", value)
		}
	case *Enum:
		str, ok := value.(string)
		if !ok {
			return typeMismatch(path, "string", value)
		}
		if !slices.Contains(s.Cases, str) {
			return &ValidationError{
				Path:    path,
				Kind:    ErrEnumMismatch,
				Message: fmt.Sprintf("%q is not one of [%s]", str, strings.Join(s.Cases, ", ")),
			}
		}
	case *Array:
		return validateArray(value, s, path)
	case *Object:
		return validateObject(value, s, path)
	case *AnyOf:
		var causes []*ValidationError
		for _, candidate := range s.Schemas {
			err := validate(value, candidate, path)
			if err == nil {
				return nil
			}
			causes = append(causes, err)
		}
		return &ValidationError{
			Path:    path,
			Kind:    ErrNoMatch,
			Message: fmt.Sprintf("value matches none of %d candidate schemas", len(s.Schemas)),
			Causes:  causes,
		}
	default:
		return &ValidationError{
			Path:    path,
			Kind:    ErrUnsupportedSchema,
			Message: fmt.Sprintf("unsupported schema %T", s),
		}
	}
	return nil
}

func validateArray(value any, s *Array, path string) *ValidationError {
	items, ok := value.([]any)
	if !ok {
		return typeMismatch(path, "array", value)
	}
	if s.MinItems != nil && len(items) < *s.MinItems {
		return &ValidationError{
			Path:    path,
			Kind:    ErrTooFewItems,
			Message: fmt.Sprintf("array has %d items, want at least %d", len(items), *s.MinItems),
		}
	}
	if s.MaxItems != nil && len(items) > *s.MaxItems {
		return &ValidationError{
			Path:    path,
			Kind:    ErrTooManyItems,
			Message: fmt.Sprintf("array has %d items, want at most %d", len(items), *s.MaxItems),
		}
	}
	if s.Items == nil {
		return nil
	}
	for i, item := range items {
		if err := validate(item, s.Items, path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func validateObject(value any, s *Object, path string) *ValidationError {
	obj, ok := value.(map[string]any)
	if !ok {
		return typeMismatch(path, "object", value)
	}
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			return &ValidationError{
				Path:    path,
				Kind:    ErrMissingProperty,
				Message: fmt.Sprintf("missing required property %q", name),
			}
		}
	}

	// Sorted for deterministic error reporting.
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := s.Properties[name]
		if !ok && s.Closed {
			return &ValidationError{
				Path:    path + "." + name,
				Kind:    ErrUnexpectedProperty,
				Message: fmt.Sprintf("unexpected property %q", name),
			}
		}
		if !ok {
			prop = s.AdditionalProperties
		}
		if prop == nil {
			continue
		}
		if err := validate(obj[name], prop, path+"."+name); err != nil {
			return err
		}
	}
	return nil
}

func typeMismatch(path, want string, value any) *ValidationError {
	return &ValidationError{
		Path:    path,
		Kind:    ErrTypeMismatch,
		Message: fmt.Sprintf("expected %s, got %s", want, ValueKind(value)),
	}
}

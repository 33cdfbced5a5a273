package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := DecodeValue([]byte(s))
	if err != nil {
		t.Fatalf("DecodeValue(%q) error = %v", s, err)
	}
	return v
}

func wantKind(t *testing.T, err error, kind ErrorKind, path string) {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Kind != kind {
		t.Errorf("Kind = %v, want %v", verr.Kind, kind)
	}
	if verr.Path != path {
		t.Errorf("Path = %q, want %q", verr.Path, path)
	}
}

func TestValidateObjectRequired(t *testing.T) {
	s := &Object{
		Properties: map[string]Schema{"a": &Integer{}},
		Required:   []string{"a"},
	}

	if err := Validate(mustDecode(t, `{"a":1}`), s); err != nil {
		t.Errorf("Validate({a:1}) error = %v", err)
	}

	err := Validate(mustDecode(t, `{}`), s)
	wantKind(t, err, ErrMissingProperty, "$")

	err = Validate(mustDecode(t, `{"a":"x"}`), s)
	wantKind(t, err, ErrTypeMismatch, "$.a")
}

func TestValidateObjectAdditionalProperties(t *testing.T) {
	open := &Object{Properties: map[string]Schema{"a": &String{}}}
	if err := Validate(mustDecode(t, `{"a":"x","b":[1,2]}`), open); err != nil {
		t.Errorf("open object error = %v", err)
	}

	typed := &Object{AdditionalProperties: &Boolean{}}
	if err := Validate(mustDecode(t, `{"x":true}`), typed); err != nil {
		t.Errorf("typed additional error = %v", err)
	}
	wantKind(t, Validate(mustDecode(t, `{"x":1}`), typed), ErrTypeMismatch, "$.x")

	closed := &Object{Properties: map[string]Schema{"a": &String{}}, Closed: true}
	wantKind(t, Validate(mustDecode(t, `{"a":"x","b":1}`), closed), ErrUnexpectedProperty, "$.b")
}

func TestValidateEnum(t *testing.T) {
	s := &Enum{Cases: []string{"x", "y"}}
	if err := Validate("x", s); err != nil {
		t.Errorf("Validate(x) error = %v", err)
	}
	wantKind(t, Validate("z", s), ErrEnumMismatch, "$")
	wantKind(t, Validate(json.Number("1"), s), ErrTypeMismatch, "$")
}

func TestValidateNumbers(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		schema Schema
		ok     bool
	}{
		{"integer int", 1, &Integer{}, true},
		{"integer whole float", json.Number("2.0"), &Integer{}, true},
		{"integer numeric string", "3", &Integer{}, true},
		{"integer fraction", json.Number("2.5"), &Integer{}, false},
		{"integer fraction string", "2.5", &Integer{}, false},
		{"integer bool", true, &Integer{}, false},
		{"number float", 1.5, &Number{}, true},
		{"number json", json.Number("-4e3"), &Number{}, true},
		{"number string", "0.25", &Number{}, true},
		{"number word", "abc", &Number{}, false},
		{"number NaN string", "NaN", &Number{}, false},
		{"number null", nil, &Number{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.value, tt.schema)
			if tt.ok && err != nil {
				t.Errorf("Validate(%v) error = %v", tt.value, err)
			}
			if !tt.ok {
				wantKind(t, err, ErrTypeMismatch, "$")
			}
		})
	}
}

func TestValidateArray(t *testing.T) {
	s := &Object{Properties: map[string]Schema{
		"items": &Array{Items: &String{}, MinItems: intPtr(1), MaxItems: intPtr(3)},
	}}

	if err := Validate(mustDecode(t, `{"items":["a","b"]}`), s); err != nil {
		t.Errorf("Validate error = %v", err)
	}
	wantKind(t, Validate(mustDecode(t, `{"items":[]}`), s), ErrTooFewItems, "$.items")
	wantKind(t, Validate(mustDecode(t, `{"items":["a","b","c","d"]}`), s), ErrTooManyItems, "$.items")
	wantKind(t, Validate(mustDecode(t, `{"items":["a",2]}`), s), ErrTypeMismatch, "$.items[1]")
	wantKind(t, Validate(mustDecode(t, `{"items":"a"}`), s), ErrTypeMismatch, "$.items")
}

func TestValidatePattern(t *testing.T) {
	s := &String{Pattern: `^[a-z]+\d$`}
	if err := Validate("abc1", s); err != nil {
		t.Errorf("Validate(abc1) error = %v", err)
	}
	wantKind(t, Validate("ABC", s), ErrPatternMismatch, "$")

	bad := &String{Pattern: `(`}
	wantKind(t, Validate("x", bad), ErrInvalidPattern, "$")
}

func TestValidateAnyOf(t *testing.T) {
	s := &AnyOf{Schemas: []Schema{&Null{}, &Integer{}}}
	for _, v := range []any{nil, json.Number("7")} {
		if err := Validate(v, s); err != nil {
			t.Errorf("Validate(%v) error = %v", v, err)
		}
	}

	err := Validate("seven", s)
	wantKind(t, err, ErrNoMatch, "$")
	var verr *ValidationError
	errors.As(err, &verr)
	if len(verr.Causes) != 2 {
		t.Errorf("len(Causes) = %d, want 2", len(verr.Causes))
	}
}

func TestValidateDoesNotModifyValue(t *testing.T) {
	v := mustDecode(t, `{"a":[1,2],"b":{"c":null}}`)
	before, _ := json.Marshal(v)
	s := &Object{Properties: map[string]Schema{
		"a": &Array{Items: &Integer{}},
		"b": &Object{Properties: map[string]Schema{"c": &Null{}}},
	}}
	if err := Validate(v, s); err != nil {
		t.Fatalf("Validate error = %v", err)
	}
	after, _ := json.Marshal(v)
	if string(before) != string(after) {
		t.Errorf("value changed: %s -> %s", before, after)
	}
}

func TestValueKind(t *testing.T) {
	tests := map[string]string{
		`null`:    "null",
		`true`:    "boolean",
		`1`:       "integer",
		`1.5`:     "number",
		`"s"`:     "string",
		`[]`:      "array",
		`{"a":1}`: "object",
	}
	for in, want := range tests {
		if got := ValueKind(mustDecode(t, in)); got != want {
			t.Errorf("ValueKind(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeValueTrailingData(t *testing.T) {
	if _, err := DecodeValue([]byte(`{} {}`)); err == nil {
		t.Error("DecodeValue with trailing data: want error")
	}
}

func TestValidationErrorJSON(t *testing.T) {
	err := Validate("x", &AnyOf{Schemas: []Schema{&Number{}, &Null{}}})
	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("Marshal: %v", jerr)
	}
	got := string(data)
	for _, want := range []string{`"kind":"no_match"`, `"path":"$"`, `"kind":"type_mismatch"`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON %s missing %s", got, want)
		}
	}
}

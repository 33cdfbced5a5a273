package schema

// Ensure all schema variants implement Schema.
var (
	_ Schema = (*Null)(nil)
	_ Schema = (*Boolean)(nil)
	_ Schema = (*AnyOf)(nil)
	_ Schema = (*Enum)(nil)
	_ Schema = (*Object)(nil)
	_ Schema = (*String)(nil)
	_ Schema = (*Array)(nil)
	_ Schema = (*Number)(nil)
	_ Schema = (*Integer)(nil)
)

// Schema is one of the supported schema variants.
type Schema interface {
	// Annotations returns the metadata of the schema. It never affects
	// validation.
	Annotations() *Meta

	isSchema()
}

// Meta holds annotation keywords shared by every variant.
type Meta struct {
	Title       string
	Description string
	Default     any
	Examples    []any
}

// Null accepts only JSON null.
type Null struct {
	Meta
}

// Boolean accepts true or false.
type Boolean struct {
	Meta
}

// AnyOf accepts a value matching at least one of its candidates.
type AnyOf struct {
	Meta
	Schemas []Schema
}

// Enum accepts a string equal to one of Cases.
type Enum struct {
	Meta
	Cases []string
}

// Object accepts a JSON object.
//
// A property listed in Properties is validated against its schema. Any other
// property is validated against AdditionalProperties when it is set, rejected
// when Closed is set, and accepted otherwise.
type Object struct {
	Meta
	Properties           map[string]Schema
	Required             []string
	AdditionalProperties Schema

	// Closed corresponds to "additionalProperties": false.
	Closed bool
}

// String accepts a JSON string. Pattern, if set, is a regular expression the
// value must match. Format is informational.
type String struct {
	Meta
	Pattern string
	Format  string
}

// Array accepts a JSON array whose elements all match Items.
type Array struct {
	Meta
	Items    Schema
	MinItems *int
	MaxItems *int
}

// Number accepts integers, floats and numeric strings.
type Number struct {
	Meta
}

// Integer accepts integers, floats with zero fraction and numeric strings
// with zero fraction.
type Integer struct {
	Meta
}

func (s *Null) Annotations() *Meta    { return &s.Meta }
func (s *Boolean) Annotations() *Meta { return &s.Meta }
func (s *AnyOf) Annotations() *Meta   { return &s.Meta }
func (s *Enum) Annotations() *Meta    { return &s.Meta }
func (s *Object) Annotations() *Meta  { return &s.Meta }
func (s *String) Annotations() *Meta  { return &s.Meta }
func (s *Array) Annotations() *Meta   { return &s.Meta }
func (s *Number) Annotations() *Meta  { return &s.Meta }
func (s *Integer) Annotations() *Meta { return &s.Meta }

func (*Null) isSchema()    {}
func (*Boolean) isSchema() {}
func (*AnyOf) isSchema()   {}
func (*Enum) isSchema()    {}
func (*Object) isSchema()  {}
func (*String) isSchema()  {}
func (*Array) isSchema()   {}
func (*Number) isSchema()  {}
func (*Integer) isSchema() {}

// Package schema provides a small JSON Schema model and a structural
// validator for MCP tool arguments.
//
// A Schema is one of Null, Boolean, AnyOf, Enum, Object, String, Array,
// Number or Integer. Schemas are usually parsed from the JSON documents a
// server declares for its tools:
//
//	s, err := schema.Parse(tool.InputSchema)
//	if err != nil {
//	    return err
//	}
//	if err := schema.Validate(args, s); err != nil {
//	    var verr *schema.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Println(verr.Path, verr.Kind)
//	    }
//	}
//
// # Values
//
// JSON values are plain Go values: nil, bool, string, json.Number (or any Go
// integer/float type), []any and map[string]any. Use [DecodeValue] to decode
// JSON while keeping integers distinguishable from floats.
package schema

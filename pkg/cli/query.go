package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// Query runs the jq expression expr over input and returns every result.
// input is normalized through JSON first, so any marshalable value works.
func Query(ctx context.Context, expr string, input any) ([]any, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode query input: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode query input: %w", err)
	}

	var out []any
	iter := code.RunWithContext(ctx, v)
	for {
		r, ok := iter.Next()
		if !ok {
			return out, nil
		}
		if err, ok := r.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				return out, nil
			}
			return nil, fmt.Errorf("run query: %w", err)
		}
		out = append(out, r)
	}
}

package cli

import (
	"context"
	"testing"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

func TestQuery(t *testing.T) {
	items := rt.ItemList{
		&rt.Message{ID: "m1", Role: rt.RoleUser, Content: []rt.ContentPart{{Type: rt.ContentInputText, Text: "hi"}}},
		&rt.FunctionCall{ID: "fc1", CallID: "c1", Name: "lookup", Arguments: "{}"},
		&rt.Message{ID: "m2", Role: rt.RoleAssistant, Content: []rt.ContentPart{{Type: rt.ContentText, Text: "hello"}}},
	}
	tests := []struct {
		name string
		expr string
		want []any
	}{
		{"ids", ".[].id", []any{"m1", "fc1", "m2"}},
		{"select", `.[] | select(.type == "message") | .role`, []any{"user", "assistant"}},
		{"length", "length", []any{3}},
		{"empty", "empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(context.Background(), tt.expr, items)
			if err != nil {
				t.Fatalf("Query(%q): %v", tt.expr, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Query(%q) = %v, want %v", tt.expr, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("result[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"parse", ".["},
		{"compile", "undefined_fn(1)"},
		{"runtime", `error("boom")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Query(context.Background(), tt.expr, map[string]any{}); err == nil {
				t.Fatalf("Query(%q): want error", tt.expr)
			}
		})
	}
}

func TestQueryHalt(t *testing.T) {
	got, err := Query(context.Background(), "1, halt, 2", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query = %v, want [1]", got)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"table", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"name": "test", "value": 123}
	if err := Print(&buf, FormatJSON, data); err != nil {
		t.Fatalf("Print: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got["name"] != "test" {
		t.Errorf("name = %v, want test", got["name"])
	}
	if !strings.Contains(buf.String(), "\n  \"") {
		t.Errorf("output not indented: %s", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Errorf("output missing trailing newline: %q", buf.String())
	}
}

func TestPrintYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	item := &rt.FunctionCall{ID: "fc_1", CallID: "call_1", Name: "lookup", Arguments: "{}"}
	if err := Print(&buf, FormatYAML, item); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"type: function_call", "call_id: call_1", "name: lookup"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	if _, err := Encode("table", 1); err == nil {
		t.Error("unsupported format: want error")
	}
	if _, err := Encode(FormatJSON, make(chan int)); err == nil {
		t.Error("unencodable value: want error")
	}
}

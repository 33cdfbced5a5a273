package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequest loads a YAML or JSON file into v. "-" reads stdin.
func LoadRequest(path string, v any) error {
	if path == "-" {
		return LoadRequestFromReader(os.Stdin, v)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRequest(data, path, v)
}

// LoadRequestFromReader loads a request from r, trying JSON then YAML.
func LoadRequestFromReader(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := json.Unmarshal(data, v); err == nil {
		return nil
	}
	if err := unmarshalYAML(data, v); err != nil {
		return fmt.Errorf("failed to parse input (tried JSON and YAML)")
	}
	return nil
}

// ParseRequest parses data by the extension of filename, falling back to
// YAML then JSON.
//
// YAML documents are converted to JSON before decoding, so the target's json
// tags and unmarshalers apply to both formats.
func ParseRequest(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := unmarshalYAML(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := unmarshalYAML(data, v); err != nil {
			if err2 := json.Unmarshal(data, v); err2 != nil {
				return fmt.Errorf("failed to parse file (tried YAML and JSON)")
			}
		}
	}
	return nil
}

func unmarshalYAML(data []byte, v any) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(js, v)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
)

// Format selects how Print encodes a value.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml", "json" or "" (yaml).
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Encode returns v encoded in format f.
//
// YAML is converted from the JSON encoding of v, so wire types keep their
// json field names and custom marshalers.
func Encode(f Format, v any) ([]byte, error) {
	js, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(json.RawMessage(js), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML, "":
		out, err := yaml.JSONToYAML(js)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported output format %q", f)
}

// Print writes v to w in format f.
func Print(w io.Writer, f Format, v any) error {
	data, err := Encode(f, v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

var (
	successMark = lipgloss.NewStyle().Foreground(DefaultTheme.Primary).Render("✓")
	infoMark    = lipgloss.NewStyle().Foreground(DefaultTheme.User).Render("ℹ")
	warnMark    = lipgloss.NewStyle().Foreground(DefaultTheme.Tool).Render("⚠")
	errorMark   = lipgloss.NewStyle().Foreground(DefaultTheme.Error).Render("Error:")
)

func printLine(w io.Writer, mark, format string, args []any) {
	fmt.Fprintln(w, mark+" "+fmt.Sprintf(format, args...))
}

// PrintSuccess prints a status line to stdout.
func PrintSuccess(format string, args ...any) { printLine(os.Stdout, successMark, format, args) }

// PrintInfo prints a status line to stdout.
func PrintInfo(format string, args ...any) { printLine(os.Stdout, infoMark, format, args) }

// PrintWarning prints a status line to stderr.
func PrintWarning(format string, args ...any) { printLine(os.Stderr, warnMark, format, args) }

// PrintError prints a status line to stderr.
func PrintError(format string, args ...any) { printLine(os.Stderr, errorMark, format, args) }

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haivivi/realtalk/pkg/audio/resampler"
	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Theme defines the terminal colors.
type Theme struct {
	Primary lipgloss.Color // assistant and accents
	User    lipgloss.Color
	Tool    lipgloss.Color
	Error   lipgloss.Color
	Dim     lipgloss.Color // ids, status and help text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	User:    lipgloss.Color("#58a6ff"),
	Tool:    lipgloss.Color("#d29922"),
	Error:   lipgloss.Color("#f85149"),
	Dim:     lipgloss.Color("#6e7681"),
}

// ItemStyles renders conversation items as single terminal lines.
type ItemStyles struct {
	Assistant lipgloss.Style
	User      lipgloss.Style
	System    lipgloss.Style
	Tool      lipgloss.Style
	Error     lipgloss.Style
	Dim       lipgloss.Style

	// MaxWidth truncates rendered bodies; 0 disables truncation.
	MaxWidth int
}

// NewItemStyles creates styles from a theme.
func NewItemStyles(t Theme) ItemStyles {
	return ItemStyles{
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		User:      lipgloss.NewStyle().Bold(true).Foreground(t.User),
		System:    lipgloss.NewStyle().Italic(true).Foreground(t.Dim),
		Tool:      lipgloss.NewStyle().Foreground(t.Tool),
		Error:     lipgloss.NewStyle().Foreground(t.Error),
		Dim:       lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Render returns one line describing item.
func (s ItemStyles) Render(item rt.Item) string {
	switch it := item.(type) {
	case *rt.Message:
		return s.message(it)
	case *rt.FunctionCall:
		return s.Tool.Render("ƒ "+it.Name) + s.body("("+it.Arguments+")") + s.status(it.Status)
	case *rt.FunctionCallOutput:
		return s.Tool.Render("ƒ ⇒ ") + s.body(it.Output)
	case *rt.MCPCall:
		line := s.Tool.Render("⚙ "+it.ServerLabel+"."+it.Name) + s.body("("+compact(it.Arguments)+")")
		if it.Error != nil {
			return line + " " + s.Error.Render("✗ "+compact(it.Error))
		}
		if it.Output != nil {
			return line + s.Dim.Render(" ⇒ ") + s.body(compact(it.Output))
		}
		return line
	case *rt.MCPToolCall:
		line := s.Tool.Render("⚙ "+it.ServerLabel+"."+it.Name) + s.body("("+it.Arguments+")")
		if it.Error != "" {
			return line + " " + s.Error.Render("✗ "+it.Error)
		}
		if it.Output != "" {
			return line + s.Dim.Render(" ⇒ ") + s.body(it.Output)
		}
		return line
	case *rt.MCPApprovalRequest:
		return s.Tool.Render("? "+it.ServerLabel+"."+it.Name) + s.body("("+it.Arguments+")") +
			s.Dim.Render(" awaiting approval "+it.ID)
	case *rt.MCPApprovalResponse:
		verdict := "approved"
		if !it.Approve {
			verdict = "denied"
		}
		line := s.Tool.Render("✓ "+verdict) + s.Dim.Render(" "+it.ApprovalRequestID)
		if it.Reason != "" {
			line += " " + s.body(it.Reason)
		}
		return line
	case *rt.MCPListTools:
		if it.IsPlaceholder() {
			return s.Tool.Render("⚙ "+it.ServerLabel) + s.Dim.Render(" listing tools…")
		}
		names := make([]string, len(it.Tools))
		for i, tool := range it.Tools {
			names[i] = tool.Name
		}
		return s.Tool.Render("⚙ "+it.ServerLabel) + " " + s.body(strings.Join(names, ", "))
	case nil:
		return ""
	default:
		return s.Dim.Render(item.ItemType() + " " + item.ItemID())
	}
}

func (s ItemStyles) message(m *rt.Message) string {
	var label lipgloss.Style
	switch m.Role {
	case rt.RoleUser:
		label = s.User
	case rt.RoleAssistant:
		label = s.Assistant
	default:
		label = s.System
	}

	var texts []string
	var audio int
	for _, p := range m.Content {
		switch {
		case p.Text != "":
			texts = append(texts, p.Text)
		case p.Transcript != "":
			texts = append(texts, p.Transcript)
		}
		if p.Type.IsAudio() {
			audio += len(p.Audio)
		}
	}

	line := label.Render(string(m.Role)+":") + " " + s.body(strings.Join(texts, " "))
	if audio > 0 {
		line += s.Dim.Render(" ♪ " + FormatDuration(resampler.Realtime.Duration(audio)))
	}
	return line + s.status(m.Status)
}

func (s ItemStyles) body(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if s.MaxWidth > 1 && lipgloss.Width(text) > s.MaxWidth {
		text = truncateString(text, s.MaxWidth-1) + "…"
	}
	return text
}

func (s ItemStyles) status(st rt.Status) string {
	switch st {
	case rt.StatusInProgress:
		return s.Dim.Render(" …")
	case rt.StatusIncomplete:
		return " " + s.Error.Render("[incomplete]")
	default:
		return ""
	}
}

// compact renders a JSON value on one line.
func compact(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// truncateString truncates s to the given display width without splitting
// multi-byte characters.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	current := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if current+w > width {
			return string(runes[:i])
		}
		current += w
	}
	return s
}

package conversation

import (
	"fmt"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
	"github.com/haivivi/realtalk/pkg/schema"
)

// ValidateMCPArguments validates the arguments of the MCP item id against
// s. The item must be an MCPCall, MCPToolCall or MCPApprovalRequest. When s
// is nil the schema is looked up in the tool listings of the same server.
// A mismatch is returned as *schema.ValidationError.
func (c *Conversation) ValidateMCPArguments(id string, s schema.Schema) error {
	item, ok := c.Entry(id)
	if !ok {
		return fmt.Errorf("conversation: unknown item %q", id)
	}

	var (
		label, name string
		args        any
		err         error
	)
	switch v := item.(type) {
	case *rt.MCPCall:
		label, name = v.ServerLabel, v.Name
		args = v.Arguments
		if str, ok := v.Arguments.(string); ok {
			args, err = schema.DecodeValue([]byte(str))
		}
	case *rt.MCPToolCall:
		label, name = v.ServerLabel, v.Name
		args, err = v.DecodeArguments()
	case *rt.MCPApprovalRequest:
		label, name = v.ServerLabel, v.Name
		args, err = v.DecodeArguments()
	default:
		return fmt.Errorf("conversation: item %q is %s, not an MCP call", id, item.ItemType())
	}
	if err != nil {
		return fmt.Errorf("conversation: decode arguments of %q: %w", id, err)
	}

	if s == nil {
		s, err = c.toolSchema(label, name)
		if err != nil {
			return err
		}
	}
	return schema.Validate(args, s)
}

// toolSchema finds the input schema of tool name on server label, newest
// listing first.
func (c *Conversation) toolSchema(label, name string) (schema.Schema, error) {
	c.mu.RLock()
	var tool *rt.MCPTool
	for i := len(c.entries) - 1; i >= 0 && tool == nil; i-- {
		l, ok := c.entries[i].(*rt.MCPListTools)
		if !ok || l.ServerLabel != label || l.IsPlaceholder() {
			continue
		}
		tool = l.Tool(name)
	}
	c.mu.RUnlock()

	if tool == nil {
		return nil, fmt.Errorf("conversation: no schema for tool %q on server %q", name, label)
	}
	s, err := tool.Schema()
	if err != nil {
		return nil, fmt.Errorf("conversation: schema of tool %q: %w", name, err)
	}
	return s, nil
}

package openairealtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/haivivi/realtalk/pkg/schema"
	"github.com/kaptinlin/jsonrepair"
)

// Item type discriminators.
const (
	ItemTypeMessage             = "message"
	ItemTypeFunctionCall        = "function_call"
	ItemTypeFunctionCallOutput  = "function_call_output"
	ItemTypeMCPCall             = "mcp_call"
	ItemTypeMCPToolCall         = "mcp_tool_call"
	ItemTypeMCPApprovalRequest  = "mcp_approval_request"
	ItemTypeMCPApprovalResponse = "mcp_approval_response"
	ItemTypeMCPListTools        = "mcp_list_tools"
)

// Ensure all item types implement Item.
var (
	_ Item = (*Message)(nil)
	_ Item = (*FunctionCall)(nil)
	_ Item = (*FunctionCallOutput)(nil)
	_ Item = (*MCPCall)(nil)
	_ Item = (*MCPToolCall)(nil)
	_ Item = (*MCPApprovalRequest)(nil)
	_ Item = (*MCPApprovalResponse)(nil)
	_ Item = (*MCPListTools)(nil)
)

// Item is one entry of the conversation log. The concrete type is one of
// *Message, *FunctionCall, *FunctionCallOutput, *MCPCall, *MCPToolCall,
// *MCPApprovalRequest, *MCPApprovalResponse or *MCPListTools.
//
// Items are treated as immutable values: code that needs a modified item
// clones it first.
type Item interface {
	// ItemID returns the item identity.
	ItemID() string

	// ItemType returns the wire discriminator.
	ItemType() string

	isItem()
}

// Message is a user, assistant or system message.
type Message struct {
	ID      string        `json:"id,omitzero"`
	Status  Status        `json:"status,omitzero"`
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// FunctionCall is a function call issued by the model.
type FunctionCall struct {
	ID        string `json:"id,omitzero"`
	Status    Status `json:"status,omitzero"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionCallOutput is the result of a function call.
type FunctionCallOutput struct {
	ID     string `json:"id,omitzero"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// MCPCall is a call to a tool on an MCP server. Arguments, Output and Error
// are JSON values.
type MCPCall struct {
	ID                string `json:"id,omitzero"`
	ServerLabel       string `json:"server_label"`
	Name              string `json:"name"`
	Arguments         any    `json:"arguments,omitzero"`
	Output            any    `json:"output,omitzero"`
	Error             any    `json:"error,omitzero"`
	ApprovalRequestID string `json:"approval_request_id,omitzero"`
}

// MCPToolCall is an MCP tool invocation whose arguments and output are
// JSON-encoded strings.
type MCPToolCall struct {
	ID          string `json:"id,omitzero"`
	ServerLabel string `json:"server_label"`
	Name        string `json:"name"`
	Arguments   string `json:"arguments"`
	Output      string `json:"output,omitzero"`
	Error       string `json:"error,omitzero"`
}

// MCPApprovalRequest asks the client to approve an MCP tool invocation.
// Arguments is a JSON-encoded string.
type MCPApprovalRequest struct {
	ID          string `json:"id,omitzero"`
	ServerLabel string `json:"server_label"`
	Name        string `json:"name"`
	Arguments   string `json:"arguments"`
}

// MCPApprovalResponse answers an MCPApprovalRequest.
type MCPApprovalResponse struct {
	ID                string `json:"id,omitzero"`
	ApprovalRequestID string `json:"approval_request_id"`
	Approve           bool   `json:"approve"`
	Reason            string `json:"reason,omitzero"`
}

// MCPListTools lists the tools an MCP server offers. A nil Tools marks a
// placeholder whose listing has not arrived yet.
type MCPListTools struct {
	ID          string    `json:"id,omitzero"`
	ServerLabel string    `json:"server_label"`
	Tools       []MCPTool `json:"tools,omitzero"`
	Error       any       `json:"error,omitzero"`
}

// MCPTool describes one tool of an MCP server.
type MCPTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitzero"`
	InputSchema json.RawMessage `json:"input_schema,omitzero"`
	Annotations any             `json:"annotations,omitzero"`
}

// Schema parses the tool's input schema.
func (t *MCPTool) Schema() (schema.Schema, error) {
	if len(t.InputSchema) == 0 {
		return schema.Parse([]byte("true"))
	}
	return schema.Parse(t.InputSchema)
}

// Tool returns the tool named name, or nil.
func (l *MCPListTools) Tool(name string) *MCPTool {
	for i := range l.Tools {
		if l.Tools[i].Name == name {
			return &l.Tools[i]
		}
	}
	return nil
}

// IsPlaceholder reports whether the listing has not arrived yet.
func (l *MCPListTools) IsPlaceholder() bool { return l.Tools == nil }

// DecodeArguments decodes the JSON-encoded arguments, repairing malformed
// JSON if needed.
func (c *MCPToolCall) DecodeArguments() (any, error) {
	return decodeArguments(c.Arguments)
}

// DecodeArguments decodes the JSON-encoded arguments, repairing malformed
// JSON if needed.
func (r *MCPApprovalRequest) DecodeArguments() (any, error) {
	return decodeArguments(r.Arguments)
}

func decodeArguments(s string) (any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	v, err := schema.DecodeValue([]byte(s))
	if err == nil {
		return v, nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	fixed, rerr := jsonrepair.JSONRepair(s)
	if rerr != nil {
		return nil, fmt.Errorf("openai-realtime: repair arguments: %w", rerr)
	}
	return schema.DecodeValue([]byte(fixed))
}

func (m *Message) ItemID() string             { return m.ID }
func (f *FunctionCall) ItemID() string        { return f.ID }
func (f *FunctionCallOutput) ItemID() string  { return f.ID }
func (c *MCPCall) ItemID() string             { return c.ID }
func (c *MCPToolCall) ItemID() string         { return c.ID }
func (r *MCPApprovalRequest) ItemID() string  { return r.ID }
func (r *MCPApprovalResponse) ItemID() string { return r.ID }
func (l *MCPListTools) ItemID() string        { return l.ID }

func (*Message) ItemType() string             { return ItemTypeMessage }
func (*FunctionCall) ItemType() string        { return ItemTypeFunctionCall }
func (*FunctionCallOutput) ItemType() string  { return ItemTypeFunctionCallOutput }
func (*MCPCall) ItemType() string             { return ItemTypeMCPCall }
func (*MCPToolCall) ItemType() string         { return ItemTypeMCPToolCall }
func (*MCPApprovalRequest) ItemType() string  { return ItemTypeMCPApprovalRequest }
func (*MCPApprovalResponse) ItemType() string { return ItemTypeMCPApprovalResponse }
func (*MCPListTools) ItemType() string        { return ItemTypeMCPListTools }

func (*Message) isItem()             {}
func (*FunctionCall) isItem()        {}
func (*FunctionCallOutput) isItem()  {}
func (*MCPCall) isItem()             {}
func (*MCPToolCall) isItem()         {}
func (*MCPApprovalRequest) isItem()  {}
func (*MCPApprovalResponse) isItem() {}
func (*MCPListTools) isItem()        {}

func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	return marshalTagged(ItemTypeMessage, alias(m))
}

func (f FunctionCall) MarshalJSON() ([]byte, error) {
	type alias FunctionCall
	return marshalTagged(ItemTypeFunctionCall, alias(f))
}

func (f FunctionCallOutput) MarshalJSON() ([]byte, error) {
	type alias FunctionCallOutput
	return marshalTagged(ItemTypeFunctionCallOutput, alias(f))
}

func (c MCPCall) MarshalJSON() ([]byte, error) {
	type alias MCPCall
	return marshalTagged(ItemTypeMCPCall, alias(c))
}

func (c MCPToolCall) MarshalJSON() ([]byte, error) {
	type alias MCPToolCall
	return marshalTagged(ItemTypeMCPToolCall, alias(c))
}

func (r MCPApprovalRequest) MarshalJSON() ([]byte, error) {
	type alias MCPApprovalRequest
	return marshalTagged(ItemTypeMCPApprovalRequest, alias(r))
}

func (r MCPApprovalResponse) MarshalJSON() ([]byte, error) {
	type alias MCPApprovalResponse
	return marshalTagged(ItemTypeMCPApprovalResponse, alias(r))
}

func (l MCPListTools) MarshalJSON() ([]byte, error) {
	type alias MCPListTools
	return marshalTagged(ItemTypeMCPListTools, alias(l))
}

var itemDecoders = map[string]func() Item{
	ItemTypeMessage:             func() Item { return new(Message) },
	ItemTypeFunctionCall:        func() Item { return new(FunctionCall) },
	ItemTypeFunctionCallOutput:  func() Item { return new(FunctionCallOutput) },
	ItemTypeMCPCall:             func() Item { return new(MCPCall) },
	ItemTypeMCPToolCall:         func() Item { return new(MCPToolCall) },
	ItemTypeMCPApprovalRequest:  func() Item { return new(MCPApprovalRequest) },
	ItemTypeMCPApprovalResponse: func() Item { return new(MCPApprovalResponse) },
	ItemTypeMCPListTools:        func() Item { return new(MCPListTools) },
}

// EncodeItem encodes item with its "type" discriminator.
func EncodeItem(item Item) ([]byte, error) {
	if item == nil {
		return nil, errors.New("openai-realtime: nil item")
	}
	return json.Marshal(item)
}

// DecodeItem decodes an item, dispatching on its "type" discriminator. JSON
// numbers inside free-form values are kept as json.Number.
func DecodeItem(data []byte) (Item, error) {
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}
	newItem, ok := itemDecoders[typ]
	if !ok {
		return nil, fmt.Errorf("openai-realtime: unknown item type %q", typ)
	}
	item := newItem()
	if err := decodeNumbers(data, item); err != nil {
		return nil, fmt.Errorf("openai-realtime: decode %s: %w", typ, err)
	}
	return item, nil
}

// ItemList is a list of items that decodes through DecodeItem.
type ItemList []Item

// UnmarshalJSON implements json.Unmarshaler.
func (l *ItemList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	if raws == nil {
		*l = nil
		return nil
	}
	items := make(ItemList, 0, len(raws))
	for _, raw := range raws {
		item, err := DecodeItem(raw)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	*l = items
	return nil
}

// CloneItem returns a copy of item that shares no mutable slices with it.
// Free-form JSON values are shared.
func CloneItem(item Item) Item {
	switch v := item.(type) {
	case *Message:
		c := *v
		if v.Content != nil {
			c.Content = make([]ContentPart, len(v.Content))
			for i, p := range v.Content {
				p.Audio = bytes.Clone(p.Audio)
				c.Content[i] = p
			}
		}
		return &c
	case *FunctionCall:
		c := *v
		return &c
	case *FunctionCallOutput:
		c := *v
		return &c
	case *MCPCall:
		c := *v
		return &c
	case *MCPToolCall:
		c := *v
		return &c
	case *MCPApprovalRequest:
		c := *v
		return &c
	case *MCPApprovalResponse:
		c := *v
		return &c
	case *MCPListTools:
		c := *v
		if v.Tools != nil {
			c.Tools = append([]MCPTool{}, v.Tools...)
		}
		return &c
	}
	return item
}

// marshalTagged marshals v and prepends the "type" member.
func marshalTagged(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("openai-realtime: %s does not encode as an object", typ)
	}
	name, _ := json.Marshal(typ)
	var buf bytes.Buffer
	buf.Grow(len(body) + len(name) + 9)
	buf.WriteString(`{"type":`)
	buf.Write(name)
	if len(body) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

func peekType(data []byte) (string, error) {
	var v struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	if v.Type == "" {
		return "", errors.New("openai-realtime: missing type")
	}
	return v.Type, nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

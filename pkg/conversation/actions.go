package conversation

import (
	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Send queues a client event.
func (c *Conversation) Send(ev rt.ClientEvent) error {
	return c.enqueue(ev)
}

// SendText adds a user text message and requests a response.
func (c *Conversation) SendText(text string) error {
	return c.enqueue(
		&rt.ConversationItemCreate{
			Item: &rt.Message{
				Role: rt.RoleUser,
				Content: []rt.ContentPart{
					{Type: rt.ContentInputText, Text: text},
				},
			},
		},
		&rt.ResponseCreate{},
	)
}

// SendAudioDelta appends PCM audio to the input buffer. With server VAD
// the server commits the buffer and responds on its own.
func (c *Conversation) SendAudioDelta(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	return c.enqueue(&rt.InputAudioBufferAppend{Audio: pcm})
}

// SendResult adds the output of a function call. The caller decides when
// to request the next response.
func (c *Conversation) SendResult(out *rt.FunctionCallOutput) error {
	return c.enqueue(&rt.ConversationItemCreate{Item: out})
}

// SendApproval answers an MCP approval request.
func (c *Conversation) SendApproval(requestID string, approve bool, reason string) error {
	return c.enqueue(&rt.ConversationItemCreate{
		Item: &rt.MCPApprovalResponse{
			ApprovalRequestID: requestID,
			Approve:           approve,
			Reason:            reason,
		},
	})
}

// CreateResponse requests a response. opts may be nil.
func (c *Conversation) CreateResponse(opts *rt.ResponseCreateOptions) error {
	return c.enqueue(&rt.ResponseCreate{Response: opts})
}

// UpdateSession applies fn to the current session configuration and sends
// the result as session.update. The local session is replaced when the
// server confirms with session.updated.
func (c *Conversation) UpdateSession(fn func(*rt.SessionConfig)) error {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return ErrNoSession
	}
	cfg := session.Config()
	fn(&cfg)
	return c.enqueue(&rt.SessionUpdate{Session: cfg})
}

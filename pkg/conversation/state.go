package conversation

import (
	"slices"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Snapshot is a point-in-time copy of the conversation state.
type Snapshot struct {
	Entries       []rt.Item
	Session       *rt.SessionResource
	Status        rt.ConnectionStatus
	UserSpeaking  bool
	ModelSpeaking bool
	Interrupting  bool
	PlayingItemID string
}

// Snapshot returns a copy of the current state. Entries are immutable
// values and are shared with the log.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Entries:       slices.Clone(c.entries),
		Session:       c.session,
		Status:        c.transport.Status(),
		UserSpeaking:  c.userSpeaking,
		ModelSpeaking: c.modelSpeaking,
		Interrupting:  c.interrupting,
		PlayingItemID: c.playingItemID,
	}
}

// Entries returns the item log in arrival order.
func (c *Conversation) Entries() []rt.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries)
}

// Entry returns the item with the given id.
func (c *Conversation) Entry(id string) (rt.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.entries[i], true
}

// Session returns the current session, or nil before session.created.
func (c *Conversation) Session() *rt.SessionResource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Status returns the transport connection status.
func (c *Conversation) Status() rt.ConnectionStatus {
	return c.transport.Status()
}

// IsUserSpeaking reports whether server VAD detected user speech.
func (c *Conversation) IsUserSpeaking() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userSpeaking
}

// IsModelSpeaking reports whether model audio is playing.
func (c *Conversation) IsModelSpeaking() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelSpeaking
}

// IsInterrupting reports whether InterruptSpeech is running.
func (c *Conversation) IsInterrupting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interrupting
}

// PlayingItemID returns the id of the message whose audio is playing.
func (c *Conversation) PlayingItemID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playingItemID
}

// MCPCallStep returns the progress of the MCP call id. The zero step means
// unknown.
func (c *Conversation) MCPCallStep(id string) rt.MCPCallStep {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if tr, ok := c.mcp[id]; ok {
		return tr.callStep
	}
	return 0
}

// MCPListToolsStatus returns the listing progress of the MCP list tools
// item id. The zero status means unknown.
func (c *Conversation) MCPListToolsStatus(id string) rt.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if tr, ok := c.mcp[id]; ok {
		return tr.listTools
	}
	return 0
}

// MCPResponseLastEventID returns the id of the last server event that
// touched the MCP call id.
func (c *Conversation) MCPResponseLastEventID(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if tr, ok := c.mcp[id]; ok {
		return tr.responseLastEventID
	}
	return ""
}

// MCPListToolsLastEventID returns the id of the last server event that
// touched the MCP list tools item id.
func (c *Conversation) MCPListToolsLastEventID(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if tr, ok := c.mcp[id]; ok {
		return tr.listToolsLastEventID
	}
	return ""
}

// LastResponse returns the most recent response resource.
func (c *Conversation) LastResponse() *rt.ResponseResource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastResponse
}

// RateLimits returns the latest rate limits.
func (c *Conversation) RateLimits() []rt.RateLimit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.rateLimits)
}

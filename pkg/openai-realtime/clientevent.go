package openairealtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client event types (sent from client to server).
const (
	// Session events
	EventTypeSessionUpdate = "session.update"

	// Input audio buffer events
	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeInputAudioBufferClear  = "input_audio_buffer.clear"

	// Conversation item events
	EventTypeConversationItemCreate   = "conversation.item.create"
	EventTypeConversationItemTruncate = "conversation.item.truncate"
	EventTypeConversationItemDelete   = "conversation.item.delete"
	EventTypeConversationItemRetrieve = "conversation.item.retrieve"

	// Response events
	EventTypeResponseCreate = "response.create"
	EventTypeResponseCancel = "response.cancel"

	// Output audio buffer events (WebRTC)
	EventTypeOutputAudioBufferClear = "output_audio_buffer.clear"
)

// NewEventID generates a unique client event ID.
func NewEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// Ensure all client event types implement ClientEvent.
var (
	_ ClientEvent = (*SessionUpdate)(nil)
	_ ClientEvent = (*InputAudioBufferAppend)(nil)
	_ ClientEvent = (*InputAudioBufferCommit)(nil)
	_ ClientEvent = (*InputAudioBufferClear)(nil)
	_ ClientEvent = (*ConversationItemCreate)(nil)
	_ ClientEvent = (*ConversationItemTruncate)(nil)
	_ ClientEvent = (*ConversationItemDelete)(nil)
	_ ClientEvent = (*ConversationItemRetrieve)(nil)
	_ ClientEvent = (*ResponseCreate)(nil)
	_ ClientEvent = (*ResponseCancel)(nil)
	_ ClientEvent = (*OutputAudioBufferClear)(nil)
)

// ClientEvent is an event sent from the client to the server.
type ClientEvent interface {
	// EventType returns the wire discriminator.
	EventType() string

	// Header returns the common event fields.
	Header() *EventHeader

	isClientEvent()
}

// EventHeader holds the fields every client event carries.
type EventHeader struct {
	EventID string `json:"event_id,omitzero"`
}

// Header returns h.
func (h *EventHeader) Header() *EventHeader { return h }

// SessionUpdate updates the session configuration.
type SessionUpdate struct {
	EventHeader
	Session SessionConfig `json:"session"`
}

// InputAudioBufferAppend appends audio to the input buffer. Audio is
// base64 encoded on the wire.
type InputAudioBufferAppend struct {
	EventHeader
	Audio []byte `json:"audio"`
}

// InputAudioBufferCommit commits the input buffer as a user message.
type InputAudioBufferCommit struct {
	EventHeader
}

// InputAudioBufferClear clears the input buffer.
type InputAudioBufferClear struct {
	EventHeader
}

// ConversationItemCreate adds an item to the conversation.
type ConversationItemCreate struct {
	EventHeader
	PreviousItemID string `json:"previous_item_id,omitzero"`
	Item           Item   `json:"item"`
}

// ConversationItemTruncate truncates the audio of an assistant message.
type ConversationItemTruncate struct {
	EventHeader
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

// ConversationItemDelete removes an item from the conversation.
type ConversationItemDelete struct {
	EventHeader
	ItemID string `json:"item_id"`
}

// ConversationItemRetrieve asks the server for an item.
type ConversationItemRetrieve struct {
	EventHeader
	ItemID string `json:"item_id"`
}

// ResponseCreate requests a model response. A nil Response uses the
// session defaults.
type ResponseCreate struct {
	EventHeader
	Response *ResponseCreateOptions `json:"response,omitzero"`
}

// ResponseCancel cancels the in-progress response.
type ResponseCancel struct {
	EventHeader
	ResponseID string `json:"response_id,omitzero"`
}

// OutputAudioBufferClear stops playback of buffered output audio.
type OutputAudioBufferClear struct {
	EventHeader
}

func (*SessionUpdate) EventType() string            { return EventTypeSessionUpdate }
func (*InputAudioBufferAppend) EventType() string   { return EventTypeInputAudioBufferAppend }
func (*InputAudioBufferCommit) EventType() string   { return EventTypeInputAudioBufferCommit }
func (*InputAudioBufferClear) EventType() string    { return EventTypeInputAudioBufferClear }
func (*ConversationItemCreate) EventType() string   { return EventTypeConversationItemCreate }
func (*ConversationItemTruncate) EventType() string { return EventTypeConversationItemTruncate }
func (*ConversationItemDelete) EventType() string   { return EventTypeConversationItemDelete }
func (*ConversationItemRetrieve) EventType() string { return EventTypeConversationItemRetrieve }
func (*ResponseCreate) EventType() string           { return EventTypeResponseCreate }
func (*ResponseCancel) EventType() string           { return EventTypeResponseCancel }
func (*OutputAudioBufferClear) EventType() string   { return EventTypeOutputAudioBufferClear }

func (*SessionUpdate) isClientEvent()            {}
func (*InputAudioBufferAppend) isClientEvent()   {}
func (*InputAudioBufferCommit) isClientEvent()   {}
func (*InputAudioBufferClear) isClientEvent()    {}
func (*ConversationItemCreate) isClientEvent()   {}
func (*ConversationItemTruncate) isClientEvent() {}
func (*ConversationItemDelete) isClientEvent()   {}
func (*ConversationItemRetrieve) isClientEvent() {}
func (*ResponseCreate) isClientEvent()           {}
func (*ResponseCancel) isClientEvent()           {}
func (*OutputAudioBufferClear) isClientEvent()   {}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ConversationItemCreate) UnmarshalJSON(data []byte) error {
	var v struct {
		EventID        string          `json:"event_id"`
		PreviousItemID string          `json:"previous_item_id"`
		Item           json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	item, err := DecodeItem(v.Item)
	if err != nil {
		return err
	}
	*e = ConversationItemCreate{
		EventHeader:    EventHeader{EventID: v.EventID},
		PreviousItemID: v.PreviousItemID,
		Item:           item,
	}
	return nil
}

var clientEventDecoders = map[string]func() ClientEvent{
	EventTypeSessionUpdate:            func() ClientEvent { return new(SessionUpdate) },
	EventTypeInputAudioBufferAppend:   func() ClientEvent { return new(InputAudioBufferAppend) },
	EventTypeInputAudioBufferCommit:   func() ClientEvent { return new(InputAudioBufferCommit) },
	EventTypeInputAudioBufferClear:    func() ClientEvent { return new(InputAudioBufferClear) },
	EventTypeConversationItemCreate:   func() ClientEvent { return new(ConversationItemCreate) },
	EventTypeConversationItemTruncate: func() ClientEvent { return new(ConversationItemTruncate) },
	EventTypeConversationItemDelete:   func() ClientEvent { return new(ConversationItemDelete) },
	EventTypeConversationItemRetrieve: func() ClientEvent { return new(ConversationItemRetrieve) },
	EventTypeResponseCreate:           func() ClientEvent { return new(ResponseCreate) },
	EventTypeResponseCancel:           func() ClientEvent { return new(ResponseCancel) },
	EventTypeOutputAudioBufferClear:   func() ClientEvent { return new(OutputAudioBufferClear) },
}

// EncodeClientEvent encodes ev in the GA dialect. An event without an ID is
// assigned one.
func EncodeClientEvent(ev ClientEvent) ([]byte, error) {
	return DialectGA.Encode(ev)
}

// DecodeClientEvent decodes a client event, dispatching on its "type"
// discriminator.
func DecodeClientEvent(data []byte) (ClientEvent, error) {
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}
	newEvent, ok := clientEventDecoders[typ]
	if !ok {
		return nil, fmt.Errorf("openai-realtime: unknown client event type %q", typ)
	}
	ev := newEvent()
	if err := decodeNumbers(data, ev); err != nil {
		return nil, fmt.Errorf("openai-realtime: decode %s: %w", typ, err)
	}
	return ev, nil
}

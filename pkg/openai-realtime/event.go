package openairealtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Server event types (sent from server to client). Beta aliases are kept
// alongside the GA names.
const (
	// Error event
	EventTypeError = "error"

	// Session events
	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	// Conversation events
	EventTypeConversationCreated       = "conversation.created"
	EventTypeConversationItemCreated   = "conversation.item.created"
	EventTypeConversationItemAdded     = "conversation.item.added"
	EventTypeConversationItemDone      = "conversation.item.done"
	EventTypeConversationItemRetrieved = "conversation.item.retrieved"
	EventTypeConversationItemTruncated = "conversation.item.truncated"
	EventTypeConversationItemDeleted   = "conversation.item.deleted"

	// Input audio transcription events
	EventTypeInputAudioTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	EventTypeInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventTypeInputAudioTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"

	// Input audio buffer events
	EventTypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioBufferCleared       = "input_audio_buffer.cleared"
	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	// Output audio buffer events
	EventTypeOutputAudioBufferStarted = "output_audio_buffer.started"
	EventTypeOutputAudioBufferStopped = "output_audio_buffer.stopped"
	EventTypeOutputAudioBufferCleared = "output_audio_buffer.cleared"

	// Response events
	EventTypeResponseCreated          = "response.created"
	EventTypeResponseDone             = "response.done"
	EventTypeResponseOutputItemAdded  = "response.output_item.added"
	EventTypeResponseOutputItemDone   = "response.output_item.done"
	EventTypeResponseContentPartAdded = "response.content_part.added"
	EventTypeResponseContentPartDone  = "response.content_part.done"

	// Response text events
	EventTypeResponseOutputTextDelta = "response.output_text.delta"
	EventTypeResponseOutputTextDone  = "response.output_text.done"
	EventTypeResponseTextDelta       = "response.text.delta"
	EventTypeResponseTextDone        = "response.text.done"

	// Response audio events
	EventTypeResponseOutputAudioDelta = "response.output_audio.delta"
	EventTypeResponseOutputAudioDone  = "response.output_audio.done"
	EventTypeResponseAudioDelta       = "response.audio.delta"
	EventTypeResponseAudioDone        = "response.audio.done"

	// Response audio transcript events
	EventTypeResponseOutputAudioTranscriptDelta = "response.output_audio_transcript.delta"
	EventTypeResponseOutputAudioTranscriptDone  = "response.output_audio_transcript.done"
	EventTypeResponseAudioTranscriptDelta       = "response.audio_transcript.delta"
	EventTypeResponseAudioTranscriptDone        = "response.audio_transcript.done"

	// Response function call events
	EventTypeResponseFunctionCallArgumentsDelta = "response.function_call_arguments.delta"
	EventTypeResponseFunctionCallArgumentsDone  = "response.function_call_arguments.done"

	// MCP events
	EventTypeResponseMCPCallArgumentsDelta = "response.mcp_call_arguments.delta"
	EventTypeResponseMCPCallArgumentsDone  = "response.mcp_call_arguments.done"
	EventTypeResponseMCPCallInProgress     = "response.mcp_call.in_progress"
	EventTypeResponseMCPCallCompleted      = "response.mcp_call.completed"
	EventTypeResponseMCPCallFailed         = "response.mcp_call.failed"
	EventTypeMCPListToolsInProgress        = "mcp_list_tools.in_progress"
	EventTypeMCPListToolsCompleted         = "mcp_list_tools.completed"
	EventTypeMCPListToolsFailed            = "mcp_list_tools.failed"

	// Rate limits event
	EventTypeRateLimitsUpdated = "rate_limits.updated"
)

// ServerEvent represents a server event received from the Realtime API.
// Fields that a given event type does not carry are left zero.
type ServerEvent struct {
	// Type is the event type.
	Type string `json:"type"`

	// EventID is the unique identifier for this event.
	EventID string `json:"event_id,omitzero"`

	// === Session events ===

	Session *SessionResource `json:"session,omitzero"`

	// === Conversation events ===

	Conversation *ConversationResource `json:"conversation,omitzero"`

	// Item is the conversation item (conversation.item.*, output_item.*).
	Item Item `json:"-"`

	PreviousItemID string `json:"previous_item_id,omitzero"`

	// ItemID is the ID of the item the event refers to.
	ItemID string `json:"item_id,omitzero"`

	AudioStartMs int `json:"audio_start_ms,omitzero"`
	AudioEndMs   int `json:"audio_end_ms,omitzero"`

	// === Transcription events ===

	Transcript   string `json:"transcript,omitzero"`
	ContentIndex int    `json:"content_index,omitzero"`

	// Error is set by error events and failed transcriptions.
	Error *EventError `json:"error,omitzero"`

	// === Response events ===

	Response    *ResponseResource `json:"response,omitzero"`
	ResponseID  string            `json:"response_id,omitzero"`
	OutputIndex int               `json:"output_index,omitzero"`
	Part        *ContentPart      `json:"part,omitzero"`

	// === Delta events ===

	// Delta contains incremental text or arguments. For audio deltas it is
	// the base64 payload; see Audio.
	Delta string `json:"delta,omitzero"`

	// Audio is the decoded audio of an audio delta.
	Audio []byte `json:"-"`

	// Text is the final text of a text done event.
	Text string `json:"text,omitzero"`

	// === Function call events ===

	CallID    string `json:"call_id,omitzero"`
	Name      string `json:"name,omitzero"`
	Arguments string `json:"arguments,omitzero"`

	// === Rate limits event ===

	RateLimits []RateLimit `json:"rate_limits,omitzero"`

	// Raw contains the original JSON message.
	Raw []byte `json:"-"`
}

// IsAudioDelta reports whether the event carries output audio.
func (e *ServerEvent) IsAudioDelta() bool {
	return e.Type == EventTypeResponseOutputAudioDelta || e.Type == EventTypeResponseAudioDelta
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ServerEvent) UnmarshalJSON(data []byte) error {
	type alias ServerEvent
	aux := struct {
		*alias
		Item json.RawMessage `json:"item,omitzero"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Item) > 0 && string(aux.Item) != "null" {
		item, err := DecodeItem(aux.Item)
		if err != nil {
			return err
		}
		e.Item = item
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e ServerEvent) MarshalJSON() ([]byte, error) {
	type alias ServerEvent
	return json.Marshal(struct {
		alias
		Item Item `json:"item,omitzero"`
	}{alias: alias(e), Item: e.Item})
}

// DecodeServerEvent decodes one inbound frame. Failures are returned as
// *DecodeError.
func DecodeServerEvent(data []byte) (*ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, &DecodeError{Data: data, Err: err}
	}
	if ev.Type == "" {
		return nil, &DecodeError{Data: data, Err: fmt.Errorf("missing type")}
	}
	ev.Raw = data
	if ev.IsAudioDelta() && ev.Delta != "" {
		audio, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			return nil, &DecodeError{Data: data, Err: fmt.Errorf("audio delta: %w", err)}
		}
		ev.Audio = audio
	}
	return &ev, nil
}

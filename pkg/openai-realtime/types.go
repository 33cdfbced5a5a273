package openairealtime

import (
	"fmt"
	"time"
)

// Models supported by the Realtime API.
const (
	ModelGPTRealtime              = "gpt-realtime"
	ModelGPT4oRealtimePreview     = "gpt-4o-realtime-preview"
	ModelGPT4oMiniRealtimePreview = "gpt-4o-mini-realtime-preview"
)

// Audio formats supported by the Realtime API.
const (
	// AudioFormatPCM16 is 16-bit PCM audio at 24kHz, mono, little-endian.
	AudioFormatPCM16    = "pcm16"
	AudioFormatG711ULaw = "g711_ulaw"
	AudioFormatG711ALaw = "g711_alaw"
)

// Voice options for audio output.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
	VoiceMarin   = "marin"
	VoiceCedar   = "cedar"
)

// VAD modes for turn detection.
const (
	VADServerVAD   = "server_vad"
	VADSemanticVAD = "semantic_vad"
)

// Modality types.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// Tool choice options.
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
)

// Tool types.
const (
	ToolTypeFunction = "function"
	ToolTypeMCP      = "mcp"
)

// Status is the lifecycle status of an item. The zero value means the
// status is unset. Statuses are ordered: in progress < incomplete < completed.
type Status int

const (
	StatusInProgress Status = iota + 1
	StatusIncomplete
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusInProgress: "in_progress",
	StatusIncomplete: "incomplete",
	StatusCompleted:  "completed",
}

// String returns the wire name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown statuses decode
// to the zero value.
func (s *Status) UnmarshalText(b []byte) error {
	*s = 0
	for k, v := range statusNames {
		if v == string(b) {
			*s = k
		}
	}
	return nil
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ContentType is the type of a message content part.
type ContentType string

const (
	ContentInputText     ContentType = "input_text"
	ContentInputAudio    ContentType = "input_audio"
	ContentText          ContentType = "text"
	ContentOutputText    ContentType = "output_text"
	ContentAudio         ContentType = "audio"
	ContentOutputAudio   ContentType = "output_audio"
	ContentItemReference ContentType = "item_reference"
)

// IsAudio reports whether the part carries audio.
func (t ContentType) IsAudio() bool {
	return t == ContentInputAudio || t == ContentAudio || t == ContentOutputAudio
}

// ContentPart is one part of message content.
type ContentPart struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitzero"`

	// Audio is raw audio. It is base64 encoded on the wire.
	Audio []byte `json:"audio,omitzero"`

	Transcript string `json:"transcript,omitzero"`

	// ID references another item (item_reference only).
	ID string `json:"id,omitzero"`
}

// ConnectConfig contains configuration for establishing a realtime connection.
type ConnectConfig struct {
	// Model is the model ID to use.
	// Default: gpt-realtime
	Model string `json:"model,omitzero"`

	// Voice is used when creating the WebRTC ephemeral token.
	// Default: alloy
	Voice string `json:"voice,omitzero"`

	// WriteTimeout bounds each WebSocket frame write.
	// Default: 10s
	WriteTimeout time.Duration `json:"write_timeout,omitzero"`
}

// DefaultWriteTimeout is the WebSocket write timeout when none is set.
const DefaultWriteTimeout = 10 * time.Second

func (c *ConnectConfig) withDefaults() *ConnectConfig {
	out := ConnectConfig{}
	if c != nil {
		out = *c
	}
	if out.Model == "" {
		out.Model = ModelGPTRealtime
	}
	if out.Voice == "" {
		out.Voice = VoiceAlloy
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = DefaultWriteTimeout
	}
	return &out
}

// SessionConfig contains configuration for updating session parameters.
// It encodes in the GA shape; Dialect.Encode produces the beta shape.
type SessionConfig struct {
	Modalities        []string
	Instructions      string
	Voice             string
	InputAudioFormat  string
	OutputAudioFormat string

	// InputAudioTranscription enables transcription of user audio.
	InputAudioTranscription *TranscriptionConfig

	// TurnDetection configures voice activity detection. Nil keeps the
	// current setting.
	TurnDetection *TurnDetection

	// TurnDetectionDisabled sends "turn_detection": null, which disables
	// server-side VAD.
	TurnDetectionDisabled bool

	Tools []Tool

	// ToolChoice is a string ("auto", "none", "required") or an object.
	ToolChoice any

	// Temperature exists in the beta dialect only.
	Temperature             *float64
	MaxResponseOutputTokens any
}

// TranscriptionConfig configures input audio transcription.
type TranscriptionConfig struct {
	// Model is the transcription model to use.
	// Default: whisper-1
	Model    string `json:"model,omitzero"`
	Language string `json:"language,omitzero"`
	Prompt   string `json:"prompt,omitzero"`
}

// TurnDetection configures voice activity detection.
type TurnDetection struct {
	// Type is the VAD mode: "server_vad" or "semantic_vad".
	Type string `json:"type,omitzero"`

	Threshold         float64 `json:"threshold,omitzero"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitzero"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitzero"`

	CreateResponse    *bool `json:"create_response,omitzero"`
	InterruptResponse *bool `json:"interrupt_response,omitzero"`

	// Eagerness is "low", "medium" or "high" (semantic_vad only).
	Eagerness string `json:"eagerness,omitzero"`
}

// Tool defines a function or MCP tool available to the model.
type Tool struct {
	// Type is "function" or "mcp".
	Type string `json:"type"`

	// Function tools.
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parameters  map[string]any `json:"parameters,omitzero"`

	// MCP tools.
	ServerLabel     string            `json:"server_label,omitzero"`
	ServerURL       string            `json:"server_url,omitzero"`
	Headers         map[string]string `json:"headers,omitzero"`
	AllowedTools    []string          `json:"allowed_tools,omitzero"`
	RequireApproval any               `json:"require_approval,omitzero"`
}

// ResponseCreateOptions contains options for creating a response. Like
// SessionConfig it encodes in the GA shape.
type ResponseCreateOptions struct {
	Modalities        []string
	Instructions      string
	Voice             string
	OutputAudioFormat string
	Tools             []Tool
	ToolChoice        any

	// Temperature exists in the beta dialect only.
	Temperature     *float64
	MaxOutputTokens any

	// Conversation is "auto" (default) or "none".
	Conversation string

	// Input provides items directly instead of using the conversation.
	Input ItemList

	Metadata map[string]string
}

// SessionResource is the session state returned by the server.
type SessionResource struct {
	ID                      string               `json:"id,omitzero"`
	Object                  string               `json:"object,omitzero"`
	Model                   string               `json:"model,omitzero"`
	ExpiresAt               int64                `json:"expires_at,omitzero"`
	Modalities              []string             `json:"modalities,omitzero"`
	Instructions            string               `json:"instructions,omitzero"`
	Voice                   string               `json:"voice,omitzero"`
	InputAudioFormat        string               `json:"input_audio_format,omitzero"`
	OutputAudioFormat       string               `json:"output_audio_format,omitzero"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitzero"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitzero"`
	Tools                   []Tool               `json:"tools,omitzero"`
	ToolChoice              any                  `json:"tool_choice,omitzero"`
	Temperature             float64              `json:"temperature,omitzero"`
	MaxResponseOutputTokens any                  `json:"max_response_output_tokens,omitzero"`
}

// Config returns the updatable part of the session.
func (r *SessionResource) Config() SessionConfig {
	cfg := SessionConfig{
		Modalities:              r.Modalities,
		Instructions:            r.Instructions,
		Voice:                   r.Voice,
		InputAudioFormat:        r.InputAudioFormat,
		OutputAudioFormat:       r.OutputAudioFormat,
		InputAudioTranscription: r.InputAudioTranscription,
		TurnDetection:           r.TurnDetection,
		Tools:                   r.Tools,
		ToolChoice:              r.ToolChoice,
		MaxResponseOutputTokens: r.MaxResponseOutputTokens,
	}
	if r.Temperature != 0 {
		t := r.Temperature
		cfg.Temperature = &t
	}
	return cfg
}

// ConversationResource represents a conversation.
type ConversationResource struct {
	ID     string `json:"id,omitzero"`
	Object string `json:"object,omitzero"`
}

// ResponseResource represents a response from the model.
type ResponseResource struct {
	ID     string `json:"id,omitzero"`
	Object string `json:"object,omitzero"`

	// Status is "in_progress", "completed", "cancelled", "incomplete" or
	// "failed".
	Status        string         `json:"status,omitzero"`
	StatusDetails *StatusDetails `json:"status_details,omitzero"`
	Output        ItemList       `json:"output,omitzero"`
	Usage         *Usage         `json:"usage,omitzero"`
}

// StatusDetails contains details about the response status.
type StatusDetails struct {
	Type   string `json:"type,omitzero"`
	Reason string `json:"reason,omitzero"`
	Error  *Error `json:"error,omitzero"`
}

// Usage contains token usage information.
type Usage struct {
	TotalTokens        int           `json:"total_tokens,omitzero"`
	InputTokens        int           `json:"input_tokens,omitzero"`
	OutputTokens       int           `json:"output_tokens,omitzero"`
	InputTokenDetails  *TokenDetails `json:"input_token_details,omitzero"`
	OutputTokenDetails *TokenDetails `json:"output_token_details,omitzero"`
}

// TokenDetails contains detailed token breakdown.
type TokenDetails struct {
	CachedTokens int `json:"cached_tokens,omitzero"`
	TextTokens   int `json:"text_tokens,omitzero"`
	AudioTokens  int `json:"audio_tokens,omitzero"`
}

// String summarizes the usage for display.
func (u *Usage) String() string {
	if u == nil {
		return "no usage"
	}
	return fmt.Sprintf("%d tokens (%d in, %d out)", u.TotalTokens, u.InputTokens, u.OutputTokens)
}

// RateLimit represents rate limit information.
type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}

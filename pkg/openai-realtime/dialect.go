package openairealtime

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Dialect selects the shape of session and response objects on the wire.
// The GA interface nests audio settings under "audio" and names modalities
// "output_modalities"; the beta interface ("OpenAI-Beta: realtime=v1") keeps
// them flat. All other events are shared.
type Dialect int

const (
	DialectGA Dialect = iota
	DialectBeta
)

// SessionTypeRealtime is the GA session type sent with every session object.
const SessionTypeRealtime = "realtime"

// String returns "ga" or "beta".
func (d Dialect) String() string {
	if d == DialectBeta {
		return "beta"
	}
	return "ga"
}

// Encode encodes ev with its "type" discriminator in dialect d. An event
// without an ID is assigned one.
func (d Dialect) Encode(ev ClientEvent) ([]byte, error) {
	if ev == nil {
		return nil, errors.New("openai-realtime: nil client event")
	}
	if h := ev.Header(); h.EventID == "" {
		h.EventID = NewEventID()
	}
	var body any = ev
	if d == DialectBeta {
		switch e := ev.(type) {
		case *SessionUpdate:
			body = struct {
				EventHeader
				Session betaSession `json:"session"`
			}{e.EventHeader, e.Session.beta()}
		case *ResponseCreate:
			if e.Response != nil {
				body = struct {
					EventHeader
					Response betaResponse `json:"response"`
				}{e.EventHeader, e.Response.beta()}
			}
		}
	}
	return marshalTagged(ev.EventType(), body)
}

// audioFormats maps beta format names to GA format objects.
var audioFormats = map[string]gaAudioFormat{
	AudioFormatPCM16:    {Type: "audio/pcm", Rate: 24000},
	AudioFormatG711ULaw: {Type: "audio/pcmu"},
	AudioFormatG711ALaw: {Type: "audio/pcma"},
}

type gaAudioFormat struct {
	Type string `json:"type"`
	Rate int    `json:"rate,omitzero"`
}

func gaFormat(name string) *gaAudioFormat {
	if name == "" {
		return nil
	}
	if f, ok := audioFormats[name]; ok {
		return &f
	}
	return &gaAudioFormat{Type: name}
}

func (f *gaAudioFormat) name() string {
	if f == nil {
		return ""
	}
	for name, g := range audioFormats {
		if g.Type == f.Type {
			return name
		}
	}
	return f.Type
}

type gaAudioInput struct {
	Format        *gaAudioFormat       `json:"format,omitzero"`
	Transcription *TranscriptionConfig `json:"transcription,omitzero"`

	// TurnDetection is raw so that an explicit null survives.
	TurnDetection json.RawMessage `json:"turn_detection,omitzero"`
}

type gaAudioOutput struct {
	Format *gaAudioFormat `json:"format,omitzero"`
	Voice  string         `json:"voice,omitzero"`
}

type gaAudio struct {
	Input  *gaAudioInput  `json:"input,omitzero"`
	Output *gaAudioOutput `json:"output,omitzero"`
}

func newGAAudio(in *gaAudioInput, out *gaAudioOutput) *gaAudio {
	if in.Format == nil && in.Transcription == nil && in.TurnDetection == nil {
		in = nil
	}
	if out.Format == nil && out.Voice == "" {
		out = nil
	}
	if in == nil && out == nil {
		return nil
	}
	return &gaAudio{Input: in, Output: out}
}

type gaSession struct {
	Type             string   `json:"type"`
	OutputModalities []string `json:"output_modalities,omitzero"`
	Instructions     string   `json:"instructions,omitzero"`
	Audio            *gaAudio `json:"audio,omitzero"`
	Tools            []Tool   `json:"tools,omitzero"`
	ToolChoice       any      `json:"tool_choice,omitzero"`
	MaxOutputTokens  any      `json:"max_output_tokens,omitzero"`
}

type betaSession struct {
	Modalities              []string             `json:"modalities,omitzero"`
	Instructions            string               `json:"instructions,omitzero"`
	Voice                   string               `json:"voice,omitzero"`
	InputAudioFormat        string               `json:"input_audio_format,omitzero"`
	OutputAudioFormat       string               `json:"output_audio_format,omitzero"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitzero"`
	TurnDetection           json.RawMessage      `json:"turn_detection,omitzero"`
	Tools                   []Tool               `json:"tools,omitzero"`
	ToolChoice              any                  `json:"tool_choice,omitzero"`
	Temperature             *float64             `json:"temperature,omitzero"`
	MaxResponseOutputTokens any                  `json:"max_response_output_tokens,omitzero"`
}

// wireSession decodes a session object of either dialect.
type wireSession struct {
	betaSession
	Type             string   `json:"type"`
	OutputModalities []string `json:"output_modalities"`
	Audio            *gaAudio `json:"audio"`
	MaxOutputTokens  any      `json:"max_output_tokens"`
}

var jsonNull = json.RawMessage("null")

func encodeTurnDetection(td *TurnDetection, disabled bool) (json.RawMessage, error) {
	if disabled {
		return jsonNull, nil
	}
	if td == nil {
		return nil, nil
	}
	return json.Marshal(td)
}

func decodeTurnDetection(raw json.RawMessage) (td *TurnDetection, disabled bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, true, nil
	}
	td = new(TurnDetection)
	if err := json.Unmarshal(raw, td); err != nil {
		return nil, false, err
	}
	return td, false, nil
}

func (s SessionConfig) ga() (gaSession, error) {
	td, err := encodeTurnDetection(s.TurnDetection, s.TurnDetectionDisabled)
	if err != nil {
		return gaSession{}, err
	}
	return gaSession{
		Type:             SessionTypeRealtime,
		OutputModalities: s.Modalities,
		Instructions:     s.Instructions,
		Audio: newGAAudio(
			&gaAudioInput{Format: gaFormat(s.InputAudioFormat), Transcription: s.InputAudioTranscription, TurnDetection: td},
			&gaAudioOutput{Format: gaFormat(s.OutputAudioFormat), Voice: s.Voice},
		),
		Tools:           s.Tools,
		ToolChoice:      s.ToolChoice,
		MaxOutputTokens: s.MaxResponseOutputTokens,
	}, nil
}

func (s SessionConfig) beta() betaSession {
	td, _ := encodeTurnDetection(s.TurnDetection, s.TurnDetectionDisabled)
	return betaSession{
		Modalities:              s.Modalities,
		Instructions:            s.Instructions,
		Voice:                   s.Voice,
		InputAudioFormat:        s.InputAudioFormat,
		OutputAudioFormat:       s.OutputAudioFormat,
		InputAudioTranscription: s.InputAudioTranscription,
		TurnDetection:           td,
		Tools:                   s.Tools,
		ToolChoice:              s.ToolChoice,
		Temperature:             s.Temperature,
		MaxResponseOutputTokens: s.MaxResponseOutputTokens,
	}
}

// MarshalJSON encodes the GA session shape. Temperature has no GA field and
// is sent in the beta dialect only.
func (s SessionConfig) MarshalJSON() ([]byte, error) {
	g, err := s.ga()
	if err != nil {
		return nil, err
	}
	return json.Marshal(g)
}

// UnmarshalJSON accepts both the GA and the beta session shapes.
func (s *SessionConfig) UnmarshalJSON(data []byte) error {
	var w wireSession
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := SessionConfig{
		Modalities:              w.Modalities,
		Instructions:            w.Instructions,
		Voice:                   w.Voice,
		InputAudioFormat:        w.InputAudioFormat,
		OutputAudioFormat:       w.OutputAudioFormat,
		InputAudioTranscription: w.InputAudioTranscription,
		Tools:                   w.Tools,
		ToolChoice:              w.ToolChoice,
		Temperature:             w.Temperature,
		MaxResponseOutputTokens: w.MaxResponseOutputTokens,
	}
	if w.OutputModalities != nil {
		out.Modalities = w.OutputModalities
	}
	if w.MaxOutputTokens != nil {
		out.MaxResponseOutputTokens = w.MaxOutputTokens
	}
	td := w.TurnDetection
	if a := w.Audio; a != nil {
		if in := a.Input; in != nil {
			if in.Format != nil {
				out.InputAudioFormat = in.Format.name()
			}
			if in.Transcription != nil {
				out.InputAudioTranscription = in.Transcription
			}
			if in.TurnDetection != nil {
				td = in.TurnDetection
			}
		}
		if o := a.Output; o != nil {
			if o.Format != nil {
				out.OutputAudioFormat = o.Format.name()
			}
			if o.Voice != "" {
				out.Voice = o.Voice
			}
		}
	}
	var err error
	if out.TurnDetection, out.TurnDetectionDisabled, err = decodeTurnDetection(td); err != nil {
		return err
	}
	*s = out
	return nil
}

// UnmarshalJSON accepts both the GA and the beta session resource shapes.
func (r *SessionResource) UnmarshalJSON(data []byte) error {
	type alias SessionResource
	var base alias
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var cfg SessionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	*r = SessionResource(base)
	r.Modalities = cfg.Modalities
	r.Voice = cfg.Voice
	r.InputAudioFormat = cfg.InputAudioFormat
	r.OutputAudioFormat = cfg.OutputAudioFormat
	r.InputAudioTranscription = cfg.InputAudioTranscription
	r.TurnDetection = cfg.TurnDetection
	r.MaxResponseOutputTokens = cfg.MaxResponseOutputTokens
	return nil
}

type gaResponseAudio struct {
	Output *gaAudioOutput `json:"output,omitzero"`
}

type gaResponse struct {
	OutputModalities []string          `json:"output_modalities,omitzero"`
	Instructions     string            `json:"instructions,omitzero"`
	Audio            *gaResponseAudio  `json:"audio,omitzero"`
	Tools            []Tool            `json:"tools,omitzero"`
	ToolChoice       any               `json:"tool_choice,omitzero"`
	MaxOutputTokens  any               `json:"max_output_tokens,omitzero"`
	Conversation     string            `json:"conversation,omitzero"`
	Input            ItemList          `json:"input,omitzero"`
	Metadata         map[string]string `json:"metadata,omitzero"`
}

type betaResponse struct {
	Modalities              []string          `json:"modalities,omitzero"`
	Instructions            string            `json:"instructions,omitzero"`
	Voice                   string            `json:"voice,omitzero"`
	OutputAudioFormat       string            `json:"output_audio_format,omitzero"`
	Tools                   []Tool            `json:"tools,omitzero"`
	ToolChoice              any               `json:"tool_choice,omitzero"`
	Temperature             *float64          `json:"temperature,omitzero"`
	MaxResponseOutputTokens any               `json:"max_response_output_tokens,omitzero"`
	Conversation            string            `json:"conversation,omitzero"`
	Input                   ItemList          `json:"input,omitzero"`
	Metadata                map[string]string `json:"metadata,omitzero"`
}

// wireResponse decodes a response.create payload of either dialect.
type wireResponse struct {
	betaResponse
	OutputModalities []string         `json:"output_modalities"`
	Audio            *gaResponseAudio `json:"audio"`
	MaxOutputTokens  any              `json:"max_output_tokens"`
}

func (r ResponseCreateOptions) ga() gaResponse {
	out := gaResponse{
		OutputModalities: r.Modalities,
		Instructions:     r.Instructions,
		Tools:            r.Tools,
		ToolChoice:       r.ToolChoice,
		MaxOutputTokens:  r.MaxOutputTokens,
		Conversation:     r.Conversation,
		Input:            r.Input,
		Metadata:         r.Metadata,
	}
	if r.Voice != "" || r.OutputAudioFormat != "" {
		out.Audio = &gaResponseAudio{Output: &gaAudioOutput{Format: gaFormat(r.OutputAudioFormat), Voice: r.Voice}}
	}
	return out
}

func (r ResponseCreateOptions) beta() betaResponse {
	return betaResponse{
		Modalities:              r.Modalities,
		Instructions:            r.Instructions,
		Voice:                   r.Voice,
		OutputAudioFormat:       r.OutputAudioFormat,
		Tools:                   r.Tools,
		ToolChoice:              r.ToolChoice,
		Temperature:             r.Temperature,
		MaxResponseOutputTokens: r.MaxOutputTokens,
		Conversation:            r.Conversation,
		Input:                   r.Input,
		Metadata:                r.Metadata,
	}
}

// MarshalJSON encodes the GA response shape. Temperature is sent in the beta
// dialect only.
func (r ResponseCreateOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ga())
}

// UnmarshalJSON accepts both the GA and the beta response shapes.
func (r *ResponseCreateOptions) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := ResponseCreateOptions{
		Modalities:        w.Modalities,
		Instructions:      w.Instructions,
		Voice:             w.Voice,
		OutputAudioFormat: w.OutputAudioFormat,
		Tools:             w.Tools,
		ToolChoice:        w.ToolChoice,
		Temperature:       w.Temperature,
		MaxOutputTokens:   w.MaxResponseOutputTokens,
		Conversation:      w.Conversation,
		Input:             w.Input,
		Metadata:          w.Metadata,
	}
	if w.OutputModalities != nil {
		out.Modalities = w.OutputModalities
	}
	if w.MaxOutputTokens != nil {
		out.MaxOutputTokens = w.MaxOutputTokens
	}
	if w.Audio != nil && w.Audio.Output != nil {
		if f := w.Audio.Output.Format; f != nil {
			out.OutputAudioFormat = f.name()
		}
		if v := w.Audio.Output.Voice; v != "" {
			out.Voice = v
		}
	}
	*r = out
	return nil
}

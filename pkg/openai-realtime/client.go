package openairealtime

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// DefaultWebSocketURL is the default WebSocket endpoint.
	DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

	// DefaultHTTPURL is the default HTTP endpoint (for WebRTC session creation).
	DefaultHTTPURL = "https://api.openai.com/v1/realtime"
)

// ErrMissingAPIKey is returned by NewClient for an empty key.
var ErrMissingAPIKey = errors.New("openai-realtime: API key is required")

// TransportKind names a transport implementation.
type TransportKind string

const (
	TransportWebSocket TransportKind = "websocket"
	TransportWebRTC    TransportKind = "webrtc"
)

// ParseTransportKind accepts "websocket", "ws", "webrtc" or "" (websocket).
func ParseTransportKind(s string) (TransportKind, error) {
	switch strings.ToLower(s) {
	case "", "ws", "websocket":
		return TransportWebSocket, nil
	case "webrtc":
		return TransportWebRTC, nil
	}
	return "", fmt.Errorf("openai-realtime: unknown transport %q", s)
}

// Client holds credentials and endpoints and creates transports from them.
// It keeps no connection state and may be shared.
type Client struct {
	config clientConfig
}

type clientConfig struct {
	apiKey       string
	organization string
	project      string
	wsURL        string
	httpURL      string
	httpClient   *http.Client
	beta         bool
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient returns a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{config: clientConfig{
		apiKey:     apiKey,
		wsURL:      DefaultWebSocketURL,
		httpURL:    DefaultHTTPURL,
		httpClient: http.DefaultClient,
	}}
	for _, opt := range opts {
		opt(&c.config)
	}
	return c, nil
}

// WithOrganization sets the OpenAI-Organization header.
func WithOrganization(orgID string) Option {
	return func(c *clientConfig) { c.organization = orgID }
}

// WithProject sets the OpenAI-Project header.
func WithProject(projectID string) Option {
	return func(c *clientConfig) { c.project = projectID }
}

// WithBaseURL points both endpoints at one realtime URL given with any of
// the http, https, ws or wss schemes, e.g. "https://proxy.local/v1/realtime".
func WithBaseURL(base string) Option {
	return func(c *clientConfig) {
		base = strings.TrimRight(base, "/")
		scheme, rest, ok := strings.Cut(base, "://")
		if !ok {
			c.wsURL, c.httpURL = "wss://"+base, "https://"+base
			return
		}
		switch scheme {
		case "http", "ws":
			c.wsURL, c.httpURL = "ws://"+rest, "http://"+rest
		default:
			c.wsURL, c.httpURL = "wss://"+rest, "https://"+rest
		}
	}
}

// WithWebSocketURL overrides the WebSocket endpoint only.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) { c.wsURL = url }
}

// WithHTTPURL overrides the WebRTC session endpoint only.
func WithHTTPURL(url string) Option {
	return func(c *clientConfig) { c.httpURL = url }
}

// WithHTTPClient sets the client used for WebRTC session creation. Its
// Timeout also bounds the WebSocket handshake.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithBeta sends the "OpenAI-Beta: realtime=v1" header and encodes session
// and response objects in the beta dialect.
func WithBeta() Option {
	return func(c *clientConfig) { c.beta = true }
}

func (c *Client) dialect() Dialect {
	if c.config.beta {
		return DialectBeta
	}
	return DialectGA
}

// headers returns the authentication headers shared by every request.
func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.config.apiKey)
	if c.config.beta {
		h.Set("OpenAI-Beta", "realtime=v1")
	}
	if c.config.organization != "" {
		h.Set("OpenAI-Organization", c.config.organization)
	}
	if c.config.project != "" {
		h.Set("OpenAI-Project", c.config.project)
	}
	return h
}

// NewTransport returns an unconnected transport of the named kind (see
// ParseTransportKind).
func (c *Client) NewTransport(kind string, config *ConnectConfig) (Transport, error) {
	k, err := ParseTransportKind(kind)
	if err != nil {
		return nil, err
	}
	if k == TransportWebRTC {
		return c.NewWebRTCTransport(config), nil
	}
	return c.NewWebSocketTransport(config), nil
}

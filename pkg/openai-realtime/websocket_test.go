package openairealtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newRealtimeServer starts a WebSocket server that writes frames to the
// client and forwards received frames to the returned channel.
func newRealtimeServer(t *testing.T, frames []string) (*httptest.Server, <-chan []byte, <-chan http.Header) {
	t.Helper()
	received := make(chan []byte, 10)
	headers := make(chan http.Header, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(srv.Close)
	return srv, received, headers
}

func TestWebSocketTransport(t *testing.T) {
	srv, received, headers := newRealtimeServer(t, []string{
		`{"type":"session.created","event_id":"e1","session":{"id":"sess_1","voice":"alloy"}}`,
		`{"type":"response.output_text.delta"`,
		`{"type":"response.output_text.delta","event_id":"e2","item_id":"m1","delta":"hi"}`,
	})

	client, err := NewClient("sk-test", WithWebSocketURL("ws"+strings.TrimPrefix(srv.URL, "http")), WithBeta())
	if err != nil {
		t.Fatal(err)
	}
	tr := client.NewWebSocketTransport(nil)
	if got := tr.Status(); got != ConnectionDisconnected {
		t.Errorf("Status before connect = %v, want disconnected", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	defer tr.Disconnect()
	if got := tr.Status(); got != ConnectionConnected {
		t.Errorf("Status = %v, want connected", got)
	}

	h := <-headers
	if got := h.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.Get("OpenAI-Beta"); got != "realtime=v1" {
		t.Errorf("OpenAI-Beta = %q", got)
	}

	var (
		types     []string
		decodeErr int
	)
	for ev, err := range tr.Events() {
		if err != nil {
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Events error = %v", err)
			}
			decodeErr++
			continue
		}
		types = append(types, ev.Type)
		if len(types) == 2 {
			break
		}
	}
	if decodeErr != 1 {
		t.Errorf("decode errors = %d, want 1", decodeErr)
	}
	if len(types) != 2 || types[0] != EventTypeSessionCreated || types[1] != EventTypeResponseOutputTextDelta {
		t.Errorf("types = %v", types)
	}
	if got := tr.SessionID(); got != "sess_1" {
		t.Errorf("SessionID = %q, want sess_1", got)
	}

	if err := tr.Send(&ResponseCreate{}); err != nil {
		t.Fatalf("Send error = %v", err)
	}
	select {
	case msg := <-received:
		ev, err := DecodeClientEvent(msg)
		if err != nil {
			t.Fatalf("DecodeClientEvent(%s) error = %v", msg, err)
		}
		if ev.EventType() != EventTypeResponseCreate {
			t.Errorf("sent type = %s", ev.EventType())
		}
	case <-ctx.Done():
		t.Fatal("server did not receive the event")
	}

	if err := tr.Disconnect(); err != nil {
		t.Errorf("Disconnect error = %v", err)
	}
	if got := tr.Status(); got != ConnectionDisconnected {
		t.Errorf("Status after disconnect = %v, want disconnected", got)
	}
	if err := tr.Send(&ResponseCancel{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send after disconnect = %v, want ErrNotConnected", err)
	}
}

func TestWebSocketTransportAbruptClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"session.created","session":{"id":"s"}}`))
		conn.UnderlyingConn().Close()
	}))
	defer srv.Close()

	client, err := NewClient("sk-test", WithWebSocketURL("ws"+strings.TrimPrefix(srv.URL, "http")))
	if err != nil {
		t.Fatal(err)
	}
	tr := client.NewWebSocketTransport(&ConnectConfig{Model: ModelGPT4oRealtimePreview})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tr.Disconnect()

	done := make(chan error, 1)
	go func() {
		var last error
		for _, err := range tr.Events() {
			last = err
		}
		done <- last
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Events ended without error on abrupt close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Events did not end")
	}
	if got := tr.Status(); got != ConnectionDisconnected {
		t.Errorf("Status = %v, want disconnected", got)
	}
}

func TestWebSocketTransportDialError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient("bad", WithWebSocketURL("ws"+strings.TrimPrefix(srv.URL, "http")))
	if err != nil {
		t.Fatal(err)
	}
	tr := client.NewWebSocketTransport(nil)
	err = tr.Connect(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Connect error = %v, want *Error", err)
	}
	if apiErr.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("HTTPStatus = %d, want 401", apiErr.HTTPStatus)
	}
	if tr.Status() != ConnectionDisconnected {
		t.Errorf("Status = %v, want disconnected", tr.Status())
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewClient(\"\") error = %v, want ErrMissingAPIKey", err)
	}
	c, _ := NewClient("k")
	if _, err := c.NewTransport("carrier-pigeon", nil); err == nil {
		t.Error("NewTransport(unknown): want error")
	}
}

func TestNewTransportKinds(t *testing.T) {
	c, _ := NewClient("k")
	tests := []struct {
		kind string
		want string
	}{
		{"", "*openairealtime.WebSocketTransport"},
		{"WS", "*openairealtime.WebSocketTransport"},
		{"websocket", "*openairealtime.WebSocketTransport"},
		{"webrtc", "*openairealtime.WebRTCTransport"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			tr, err := c.NewTransport(tt.kind, nil)
			if err != nil {
				t.Fatalf("NewTransport(%q): %v", tt.kind, err)
			}
			if got := fmt.Sprintf("%T", tr); got != tt.want {
				t.Errorf("NewTransport(%q) = %s, want %s", tt.kind, got, tt.want)
			}
		})
	}
}

func TestWithBaseURL(t *testing.T) {
	tests := []struct {
		base     string
		wantWS   string
		wantHTTP string
	}{
		{"https://proxy.local/v1/realtime/", "wss://proxy.local/v1/realtime", "https://proxy.local/v1/realtime"},
		{"http://localhost:8080/realtime", "ws://localhost:8080/realtime", "http://localhost:8080/realtime"},
		{"ws://localhost:8080/realtime", "ws://localhost:8080/realtime", "http://localhost:8080/realtime"},
		{"wss://proxy.local/realtime", "wss://proxy.local/realtime", "https://proxy.local/realtime"},
		{"proxy.local/realtime", "wss://proxy.local/realtime", "https://proxy.local/realtime"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			c, err := NewClient("k", WithBaseURL(tt.base))
			if err != nil {
				t.Fatal(err)
			}
			if c.config.wsURL != tt.wantWS {
				t.Errorf("wsURL = %q, want %q", c.config.wsURL, tt.wantWS)
			}
			if c.config.httpURL != tt.wantHTTP {
				t.Errorf("httpURL = %q, want %q", c.config.httpURL, tt.wantHTTP)
			}
		})
	}
}

func TestClientHeaders(t *testing.T) {
	c, _ := NewClient("sk-1", WithOrganization("org"), WithProject("proj"), WithBeta())
	h := c.headers()
	want := map[string]string{
		"Authorization":       "Bearer sk-1",
		"OpenAI-Beta":         "realtime=v1",
		"OpenAI-Organization": "org",
		"OpenAI-Project":      "proj",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}

	plain, _ := NewClient("sk-2")
	if got := plain.headers().Get("OpenAI-Beta"); got != "" {
		t.Errorf("OpenAI-Beta without WithBeta = %q, want empty", got)
	}
}

func TestWebSocketTransportWriteTimeout(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client, err := NewClient("sk-test", WithWebSocketURL("ws"+strings.TrimPrefix(srv.URL, "http")))
	if err != nil {
		t.Fatal(err)
	}
	tr := client.NewWebSocketTransport(&ConnectConfig{WriteTimeout: 50 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	defer tr.Disconnect()

	chunk := &InputAudioBufferAppend{Audio: make([]byte, 1<<20)}
	failed := make(chan error, 1)
	go func() {
		for range 256 {
			chunk.EventID = ""
			if err := tr.Send(chunk); err != nil {
				failed <- err
				return
			}
		}
		failed <- nil
	}()

	select {
	case err := <-failed:
		if err == nil {
			t.Fatal("peer never read, yet every write succeeded")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked past the write timeout")
	}
}

package openairealtime

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport is a WebSocket-based Transport. It is suitable for
// server-side applications.
type WebSocketTransport struct {
	client *Client
	config *ConnectConfig
	pump   *eventPump

	mu   sync.Mutex
	conn *websocket.Conn

	// writeMu serializes frame writes. Disconnect does not take it, so
	// closing the connection unblocks a stalled write.
	writeMu sync.Mutex
}

// NewWebSocketTransport returns an unconnected WebSocket transport.
func (c *Client) NewWebSocketTransport(config *ConnectConfig) *WebSocketTransport {
	return &WebSocketTransport{
		client: c,
		config: config.withDefaults(),
		pump:   newEventPump(),
	}
}

// Connect dials the Realtime API.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return errors.New("openai-realtime: already connected")
	}
	select {
	case <-t.pump.closeCh:
		return errors.New("openai-realtime: transport closed")
	default:
	}

	cfg := t.client.config
	u := fmt.Sprintf("%s?model=%s", cfg.wsURL, url.QueryEscape(t.config.Model))

	headers := t.client.headers()
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.httpClient.Timeout,
	}

	t.pump.setStatus(ConnectionConnecting)
	conn, resp, err := dialer.DialContext(ctx, u, headers)
	if err != nil {
		t.pump.setStatus(ConnectionDisconnected)
		if resp != nil {
			return &Error{
				Code:       ErrorCodeConnectionFailed,
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
				Err:        err,
			}
		}
		return fmt.Errorf("openai-realtime: failed to connect: %w", err)
	}
	t.conn = conn
	t.pump.setStatus(ConnectionConnected)

	go t.readLoop(conn)
	return nil
}

// Disconnect closes the connection.
func (t *WebSocketTransport) Disconnect() error {
	t.pump.close()
	t.pump.setStatus(ConnectionDisconnected)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// Send writes one event as a text frame. A write that does not finish within
// ConnectConfig.WriteTimeout fails.
func (t *WebSocketTransport) Send(ev ClientEvent) error {
	data, err := t.client.dialect().Encode(ev)
	if err != nil {
		return err
	}

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil || t.pump.getStatus() != ConnectionConnected {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	logOutbound(data)
	if err := conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout)); err != nil {
		return fmt.Errorf("openai-realtime: set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("openai-realtime: write: %w", err)
	}
	return nil
}

// Events returns an iterator over server events.
func (t *WebSocketTransport) Events() iter.Seq2[*ServerEvent, error] {
	return t.pump.seq()
}

// Status returns the connection status.
func (t *WebSocketTransport) Status() ConnectionStatus {
	return t.pump.getStatus()
}

// SessionID returns the session ID assigned by the server, or "" before
// session.created.
func (t *WebSocketTransport) SessionID() string {
	return t.pump.getSessionID()
}

func (t *WebSocketTransport) readLoop(conn *websocket.Conn) {
	defer t.pump.end()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.pump.setStatus(ConnectionDisconnected)
			select {
			case <-t.pump.closeCh:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			t.pump.push(nil, fmt.Errorf("openai-realtime: read: %w", err))
			return
		}
		if !t.pump.frame(message) {
			return
		}
	}
}

// Ensure WebSocketTransport implements Transport.
var _ Transport = (*WebSocketTransport)(nil)

package openairealtime

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ConnectionStatus is the state of a transport connection.
type ConnectionStatus int32

const (
	ConnectionDisconnected ConnectionStatus = iota
	ConnectionConnecting
	ConnectionConnected
)

// String returns the string representation of the status.
func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionConnecting:
		return "connecting"
	case ConnectionConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Transport carries events between the client and the Realtime API.
// WebSocketTransport and WebRTCTransport implement it.
type Transport interface {
	// Connect establishes the connection. Errors are fatal to this attempt.
	Connect(ctx context.Context) error

	// Disconnect closes the connection and ends the event sequence.
	Disconnect() error

	// Send encodes and writes one event.
	Send(ev ClientEvent) error

	// Events returns the inbound server events. A *DecodeError is yielded
	// for a frame that could not be decoded and the sequence continues;
	// any other error ends the sequence. The sequence ends without error
	// when the transport is disconnected.
	Events() iter.Seq2[*ServerEvent, error]

	// Status returns the current connection status.
	Status() ConnectionStatus
}

type eventOrError struct {
	event *ServerEvent
	err   error
}

// eventPump is the inbound queue shared by the transports.
type eventPump struct {
	events    chan eventOrError
	closeCh   chan struct{}
	closeOnce sync.Once
	endOnce   sync.Once

	status    atomic.Int32
	sessionID atomic.Value
}

func newEventPump() *eventPump {
	return &eventPump{
		events:  make(chan eventOrError, 100),
		closeCh: make(chan struct{}),
	}
}

func (p *eventPump) setStatus(s ConnectionStatus) { p.status.Store(int32(s)) }

func (p *eventPump) getStatus() ConnectionStatus { return ConnectionStatus(p.status.Load()) }

func (p *eventPump) getSessionID() string {
	id, _ := p.sessionID.Load().(string)
	return id
}

// push queues an event or error. It returns false once the pump is closed.
func (p *eventPump) push(ev *ServerEvent, err error) bool {
	select {
	case <-p.closeCh:
		return false
	case p.events <- eventOrError{event: ev, err: err}:
		return true
	}
}

// frame decodes and queues one inbound frame.
func (p *eventPump) frame(data []byte) bool {
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		msgStr := string(data)
		if len(msgStr) > 1000 {
			msgStr = msgStr[:1000] + "..."
		}
		slog.Debug("received message", "len", len(data), "content", msgStr)
	}

	ev, err := DecodeServerEvent(data)
	if err != nil {
		return p.push(nil, err)
	}
	if ev.Type == EventTypeSessionCreated && ev.Session != nil {
		p.sessionID.Store(ev.Session.ID)
	}
	return p.push(ev, nil)
}

// end closes the inbound queue; the event sequence drains and stops.
func (p *eventPump) end() {
	p.endOnce.Do(func() { close(p.events) })
}

// close stops the event sequence immediately.
func (p *eventPump) close() {
	p.closeOnce.Do(func() { close(p.closeCh) })
}

func (p *eventPump) seq() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-p.closeCh:
				return
			case item, ok := <-p.events:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
				var decodeErr *DecodeError
				if item.err != nil && !errors.As(item.err, &decodeErr) {
					return
				}
			}
		}
	}
}

func logOutbound(data []byte) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	str := string(data)
	if len(str) > 500 {
		str = str[:500] + "..."
	}
	slog.Debug("sending event", "content", str)
}

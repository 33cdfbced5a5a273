package conversation

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

type frame struct {
	ev  *rt.ServerEvent
	err error
}

// fakeTransport records sent client events and replays queued frames.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []rt.ClientEvent
	sendErr error
	status  rt.ConnectionStatus

	// stall, when set, blocks Send until it is closed or the transport is
	// disconnected. With deaf set, disconnecting does not release it.
	stall chan struct{}
	deaf  bool

	frames    chan frame
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames: make(chan frame, 100),
		done:   make(chan struct{}),
	}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.setStatus(rt.ConnectionConnected)
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.setStatus(rt.ConnectionDisconnected)
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *fakeTransport) Send(ev rt.ClientEvent) error {
	f.mu.Lock()
	f.sent = append(f.sent, ev)
	stall, deaf, err := f.stall, f.deaf, f.sendErr
	f.mu.Unlock()

	if stall == nil {
		return err
	}
	if deaf {
		<-stall
		return errStalled
	}
	select {
	case <-stall:
		return err
	case <-f.done:
		return errStalled
	}
}

var errStalled = errors.New("write: connection closed")

// stallSends makes every later Send block.
func (f *fakeTransport) stallSends(deaf bool) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stall = make(chan struct{})
	f.deaf = deaf
	return f.stall
}

func (f *fakeTransport) Events() iter.Seq2[*rt.ServerEvent, error] {
	return func(yield func(*rt.ServerEvent, error) bool) {
		for {
			select {
			case fr, ok := <-f.frames:
				if !ok {
					return
				}
				if !yield(fr.ev, fr.err) {
					return
				}
			case <-f.done:
				return
			}
		}
	}
}

func (f *fakeTransport) Status() rt.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) setStatus(s rt.ConnectionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeTransport) sentEvents() []rt.ClientEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rt.ClientEvent(nil), f.sent...)
}

var _ rt.Transport = (*fakeTransport)(nil)

func newTestConversation(t *testing.T, opts ...Option) (*Conversation, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	c := New(ft, opts...)
	t.Cleanup(func() { c.Close() })
	return c, ft
}

// flush waits until every event queued before it has reached the
// transport and returns what was sent, excluding the marker.
func flush(t *testing.T, c *Conversation, ft *fakeTransport) []rt.ClientEvent {
	t.Helper()
	marker := &rt.ConversationItemRetrieve{ItemID: "flush-marker"}
	if err := c.Send(marker); err != nil {
		t.Fatalf("Send(marker) error: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sent := ft.sentEvents()
		for i, ev := range sent {
			if ev == rt.ClientEvent(marker) {
				return append(sent[:i:i], sent[i+1:]...)
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for outbox")
	return nil
}

func countType(evs []rt.ClientEvent, typ string) int {
	n := 0
	for _, ev := range evs {
		if ev.EventType() == typ {
			n++
		}
	}
	return n
}

func recvError(t *testing.T, c *Conversation) error {
	t.Helper()
	select {
	case err := <-c.Errors():
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
		return nil
	}
}

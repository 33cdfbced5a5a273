package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

var (
	// ErrClosed is returned by actions on a closed Conversation.
	ErrClosed = errors.New("conversation: closed")

	// ErrNoSession is returned by UpdateSession before the server has
	// announced a session.
	ErrNoSession = errors.New("conversation: no session")
)

// Conversation reconciles the server event stream of one Realtime session
// into an ordered log of items plus the out-of-band progress the log cannot
// hold: MCP call steps, tool listing progress, speaking flags and audio
// playback timing.
//
// Events are applied by a single consumer (Run, or the goroutine started by
// Start). Readers may call the accessors or Snapshot from any goroutine.
// Client events are queued on an outbox and written in order by a separate
// goroutine, so handling an event never waits for the network. Send
// failures and server errors are delivered on Errors.
type Conversation struct {
	transport rt.Transport
	cfg       config
	log       Logger

	mu            sync.RWMutex
	entries       []rt.Item
	index         map[string]int
	mcp           map[string]*mcpTrack
	session       *rt.SessionResource
	lastResponse  *rt.ResponseResource
	rateLimits    []rt.RateLimit
	configured    bool
	userSpeaking  bool
	modelSpeaking bool
	interrupting  bool
	playingItemID string
	audioStart    time.Time
	audioPlayed   time.Duration

	out *outbox

	errMu   sync.Mutex
	errs    chan error
	changes chan struct{}
	closing bool // Close has begun; no new work is accepted
	closed  bool // streams are closed

	runMu   sync.Mutex
	cancel  context.CancelFunc
	runDone chan struct{}
}

// mcpTrack is the per-item MCP tracking record.
type mcpTrack struct {
	callStep             rt.MCPCallStep
	listTools            rt.Status
	responseLastEventID  string
	listToolsLastEventID string
}

// New returns a Conversation over transport. The transport is not
// connected until Start.
func New(transport rt.Transport, opts ...Option) *Conversation {
	cfg := config{
		logger:       DefaultLogger(),
		now:          time.Now,
		pollInterval: DefaultPollInterval,
		closeTimeout: DefaultCloseTimeout,
		errorBuffer:  64,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Conversation{
		transport: transport,
		cfg:       cfg,
		log:       cfg.logger,
		index:     make(map[string]int),
		mcp:       make(map[string]*mcpTrack),
		errs:      make(chan error, cfg.errorBuffer),
		changes:   make(chan struct{}, 1),
	}
	c.out = newOutbox(c.deliver)
	go c.out.run()
	return c
}

// Start connects the transport and runs the event loop in the background
// until Close. Connection errors are returned.
func (c *Conversation) Start(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.transport.Connect(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.runMu.Lock()
	c.cancel = cancel
	c.runDone = done
	c.runMu.Unlock()

	go func() {
		defer close(done)
		if err := c.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.WarnPrintf("event loop ended: %v", err)
		}
	}()
	return nil
}

// Run consumes server events until the transport ends the sequence, a
// transport error occurs or ctx is done. Cancelling ctx disconnects the
// transport.
func (c *Conversation) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.transport.Disconnect()
		case <-stop:
		}
	}()

	for ev, err := range c.transport.Events() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			var decodeErr *rt.DecodeError
			if errors.As(err, &decodeErr) {
				c.log.WarnPrintf("%v", err)
				c.pushError(err)
				continue
			}
			c.pushError(err)
			return err
		}
		c.Handle(ev)
	}
	return ctx.Err()
}

// Close flushes queued client events, stops the event loop, disconnects the
// transport and closes the error and change streams. Send failures during
// the flush are still delivered on Errors. A flush that outlasts the close
// timeout is cut short by disconnecting the transport.
func (c *Conversation) Close() error {
	c.errMu.Lock()
	if c.closing {
		c.errMu.Unlock()
		return nil
	}
	c.closing = true
	c.errMu.Unlock()

	disconnected, err := c.flushOutbox()

	c.runMu.Lock()
	cancel, done := c.cancel, c.runDone
	c.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
	if !disconnected {
		err = c.transport.Disconnect()
	}
	if done != nil {
		<-done
	}

	c.errMu.Lock()
	c.closed = true
	close(c.errs)
	close(c.changes)
	c.errMu.Unlock()
	return err
}

// flushOutbox drains queued sends while the transport is still connected.
// If the drain exceeds the close timeout the transport is disconnected so a
// blocked Send fails; a Send that still does not return is abandoned.
func (c *Conversation) flushOutbox() (disconnected bool, err error) {
	flushed := make(chan struct{})
	go func() {
		c.out.close()
		close(flushed)
	}()

	timeout := c.cfg.closeTimeout
	select {
	case <-flushed:
		return false, nil
	case <-time.After(timeout):
	}

	c.log.WarnPrintf("outbox flush exceeded %v, disconnecting", timeout)
	err = c.transport.Disconnect()
	select {
	case <-flushed:
	case <-time.After(timeout):
		c.log.ErrorPrintf("transport send did not return after disconnect")
	}
	return true, err
}

// Errors returns the stream of non-fatal runtime errors: server error
// events, failed transcriptions, undecodable frames and send failures. It
// is closed by Close.
func (c *Conversation) Errors() <-chan error {
	return c.errs
}

// Changes returns a channel that receives a value after state changes.
// Notifications are coalesced. It is closed by Close.
func (c *Conversation) Changes() <-chan struct{} {
	return c.changes
}

// WaitForConnection polls the transport status until it is connected or
// ctx is done.
func (c *Conversation) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.pollInterval)
	defer ticker.Stop()
	for {
		if c.transport.Status() == rt.ConnectionConnected {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Conversation) isClosed() bool {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.closing
}

// pushError delivers err on the error stream without blocking.
func (c *Conversation) pushError(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.closed {
		c.log.DebugPrintf("dropped error after close: %v", err)
		return
	}
	select {
	case c.errs <- err:
	default:
		c.log.ErrorPrintf("error stream full, dropped: %v", err)
	}
}

func (c *Conversation) notify() {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// deliver is the outbox sink.
func (c *Conversation) deliver(ev rt.ClientEvent) {
	if err := c.transport.Send(ev); err != nil {
		c.log.WarnPrintf("send %s: %v", ev.EventType(), err)
		c.pushError(rt.NewSendError(ev, err))
	}
}

// enqueue queues events for sending in order.
func (c *Conversation) enqueue(evs ...rt.ClientEvent) error {
	if c.isClosed() {
		return ErrClosed
	}
	return c.out.put(evs...)
}

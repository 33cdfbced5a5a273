package conversation

import (
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// DefaultPollInterval is how often WaitForConnection checks the transport.
const DefaultPollInterval = 100 * time.Millisecond

// DefaultCloseTimeout bounds how long Close waits for queued events to be
// written before disconnecting.
const DefaultCloseTimeout = 5 * time.Second

type config struct {
	logger       Logger
	now          func() time.Time
	configure    func(*rt.SessionConfig)
	pollInterval time.Duration
	closeTimeout time.Duration
	errorBuffer  int
}

// Option configures a Conversation.
type Option func(*config)

// WithLogger sets the logger. The default is DefaultLogger().
func WithLogger(l Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithClock sets the clock used for audio playback timing.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithSessionConfigurator registers fn to adjust the session once, when the
// first session.created event arrives. The result is sent as session.update.
func WithSessionConfigurator(fn func(*rt.SessionConfig)) Option {
	return func(c *config) {
		c.configure = fn
	}
}

// WithPollInterval sets the WaitForConnection poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}

// WithErrorBuffer sets the capacity of the error stream. Errors that do not
// fit are logged and dropped.
func WithErrorBuffer(n int) Option {
	return func(c *config) {
		c.errorBuffer = n
	}
}

// WithCloseTimeout bounds how long Close waits for queued events to reach
// the transport.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.closeTimeout = d
		}
	}
}

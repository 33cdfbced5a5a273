package conversation

import (
	"sync"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// outbox is an unbounded FIFO of client events drained by one goroutine.
// put never blocks on the network.
type outbox struct {
	send func(rt.ClientEvent)

	mu     sync.Mutex
	queue  []rt.ClientEvent
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newOutbox(send func(rt.ClientEvent)) *outbox {
	return &outbox{
		send: send,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// put appends evs in order.
func (o *outbox) put(evs ...rt.ClientEvent) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.queue = append(o.queue, evs...)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *outbox) run() {
	defer close(o.done)
	for {
		o.mu.Lock()
		batch := o.queue
		o.queue = nil
		closed := o.closed
		o.mu.Unlock()

		for _, ev := range batch {
			o.send(ev)
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-o.wake
		}
	}
}

// close stops accepting events, flushes what is queued and waits for the
// drain goroutine to exit.
func (o *outbox) close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return
	}
	o.closed = true
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	<-o.done
}

package realtime

import "sync"

// Client is the channel side of one connection.
//
// Send is never closed by the registry, so concurrent broadcasters can
// not panic on a closing connection; done is the stop signal instead.
// closeTransport is invoked exactly once, from whichever path wins the
// shutdown race.
type Client struct {
	Send chan Message

	done           chan struct{}
	closeOnce      sync.Once
	closeTransport func(code int, reason string)
}

// NewClient constructs a Client with a bounded send queue.
// closeTransport may be nil for registry-only tests.
func NewClient(queueSize int, closeTransport func(code int, reason string)) *Client {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Client{
		Send:           make(chan Message, queueSize),
		done:           make(chan struct{}),
		closeTransport: closeTransport,
	}
}

// Done is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close stops the client goroutines and closes the transport.
// Idempotent; Send stays open.
func (c *Client) Close(code int, reason string) {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closeTransport != nil {
			c.closeTransport(code, reason)
		}
	})
}

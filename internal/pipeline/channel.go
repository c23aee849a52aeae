package pipeline

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Channel is one connection's endpoint: a pipeline plus an open/closed state.
// Reads are serialized against each other. Writes walk the pipeline one at a
// time in call order.
type Channel struct {
	id       uuid.UUID
	pipeline *Pipeline
	active   atomic.Bool
	closed   chan struct{}
	once     sync.Once
	onClose  func() error
	closeErr error

	readMu  sync.Mutex
	writeMu sync.Mutex
	writing bool
	closing bool
	pending []any
}

// NewChannel binds p to a new active channel. onClose, if set, runs once when
// the channel closes.
func NewChannel(id uuid.UUID, p *Pipeline, onClose func() error) *Channel {
	ch := &Channel{
		id:       id,
		pipeline: p,
		closed:   make(chan struct{}),
		onClose:  onClose,
	}
	p.channel = ch
	ch.active.Store(true)
	return ch
}

func (c *Channel) ID() uuid.UUID           { return c.id }
func (c *Channel) Pipeline() *Pipeline     { return c.pipeline }
func (c *Channel) Active() bool            { return c.active.Load() }
func (c *Channel) Closed() <-chan struct{} { return c.closed }

// Read feeds one unit received from the peer into the pipeline.
func (c *Channel) Read(msg any) error {
	if !c.Active() {
		return ErrChannelClosed
	}
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return c.pipeline.FireRead(msg)
}

// Write sends one unit towards the peer through the whole pipeline.
//
// A Write issued while another walk is in progress, including one issued from
// inside an outbound stage, is queued and returns nil. The goroutine doing the
// walk sends queued units once its own unit is through and logs their errors.
func (c *Channel) Write(msg any) error {
	if !c.Active() {
		return ErrChannelClosed
	}
	c.writeMu.Lock()
	if !c.Active() {
		c.writeMu.Unlock()
		return ErrChannelClosed
	}
	if c.writing {
		c.pending = append(c.pending, msg)
		c.writeMu.Unlock()
		return nil
	}
	c.writing = true
	c.writeMu.Unlock()

	defer c.drain()
	return c.pipeline.Write(msg)
}

// drain sends queued units until none are left, then gives up the walk and
// finishes a Close that arrived during it.
func (c *Channel) drain() {
	released := false
	defer func() {
		if released {
			return
		}
		c.writeMu.Lock()
		closing := c.closing
		c.writing, c.closing, c.pending = false, false, nil
		c.writeMu.Unlock()
		if closing {
			_ = c.shutdown()
		}
	}()
	for {
		c.writeMu.Lock()
		if len(c.pending) == 0 {
			closing := c.closing
			c.writing, c.closing, c.pending = false, false, nil
			released = true
			c.writeMu.Unlock()
			if closing {
				if err := c.shutdown(); err != nil {
					slog.Warn("Deferred close failed", "channel", c.id, "error", err)
				}
			}
			return
		}
		msg := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		c.writeMu.Unlock()

		if err := c.pipeline.Write(msg); err != nil {
			slog.Warn("Queued write failed", "channel", c.id, "error", err)
		}
	}
}

// Close marks the channel inactive and runs onClose once. A Close issued
// during a write walk takes effect after the units queued so far are sent;
// it returns nil and the walking goroutine logs any onClose error.
func (c *Channel) Close() error {
	c.writeMu.Lock()
	if c.writing {
		c.closing = true
		c.active.Store(false)
		c.writeMu.Unlock()
		return nil
	}
	c.writeMu.Unlock()
	return c.shutdown()
}

func (c *Channel) shutdown() error {
	c.once.Do(func() {
		c.active.Store(false)
		close(c.closed)
		if c.onClose != nil {
			c.closeErr = c.onClose()
		}
	})
	return c.closeErr
}

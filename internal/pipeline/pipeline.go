// Package pipeline 负责每个连接的处理链：按名字排序的 stage 列表，入站单元从头走到尾，出站单元从尾走到头
package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// Anchor stage names a connection's chain is built from.
const (
	Splitter      = "splitter"
	Decompress    = "decompress"
	Decoder       = "decoder"
	PacketHandler = "packet_handler"
	Encoder       = "encoder"
	Prepender     = "prepender"
	Compress      = "compress"
)

var (
	ErrNoSuchStage    = errors.New("no such stage")
	ErrDuplicateStage = errors.New("duplicate stage name")
	ErrChannelClosed  = errors.New("channel closed")
)

// Handler is any stage. A stage takes part in reads, writes or both by
// implementing InboundHandler, OutboundHandler or both.
type Handler any

// InboundHandler transforms a unit travelling from the peer towards the
// application. Returning a nil unit drops it.
type InboundHandler interface {
	HandleRead(ctx *Context, msg any) (any, error)
}

// OutboundHandler transforms a unit travelling towards the peer. Returning a
// nil unit drops it.
type OutboundHandler interface {
	HandleWrite(ctx *Context, msg any) (any, error)
}

// InboundFunc adapts a function to InboundHandler.
type InboundFunc func(ctx *Context, msg any) (any, error)

func (f InboundFunc) HandleRead(ctx *Context, msg any) (any, error) { return f(ctx, msg) }

// OutboundFunc adapts a function to OutboundHandler.
type OutboundFunc func(ctx *Context, msg any) (any, error)

func (f OutboundFunc) HandleWrite(ctx *Context, msg any) (any, error) { return f(ctx, msg) }

// Sink receives what comes out of the head of the chain on writes.
type Sink func(msg any) error

// Context binds a handler to its name and pipeline.
type Context struct {
	name     string
	handler  Handler
	pipeline *Pipeline
}

func (c *Context) Name() string        { return c.name }
func (c *Context) Handler() Handler    { return c.handler }
func (c *Context) Pipeline() *Pipeline { return c.pipeline }

// Channel is the channel the pipeline belongs to, or nil for a detached pipeline.
func (c *Context) Channel() *Channel { return c.pipeline.channel }

// Write sends msg towards the peer starting with the stage below this one.
func (c *Context) Write(msg any) error {
	return c.pipeline.WriteFrom(c.name, msg)
}

// Pipeline is safe for concurrent use. Stage changes made while a unit is in
// flight take effect for the next unit.
type Pipeline struct {
	mu      sync.RWMutex
	stages  []*Context
	sink    Sink
	channel *Channel
}

func New(sink Sink) *Pipeline {
	return &Pipeline{sink: sink}
}

func (p *Pipeline) AddLast(name string, h Handler) error {
	return p.insert(name, h, func() (int, error) { return len(p.stages), nil })
}

func (p *Pipeline) AddFirst(name string, h Handler) error {
	return p.insert(name, h, func() (int, error) { return 0, nil })
}

// AddAfter places h immediately after base.
func (p *Pipeline) AddAfter(base, name string, h Handler) error {
	return p.insert(name, h, func() (int, error) {
		i := p.index(base)
		if i < 0 {
			return 0, fmt.Errorf("%s: %w", base, ErrNoSuchStage)
		}
		return i + 1, nil
	})
}

// AddBefore places h immediately before base.
func (p *Pipeline) AddBefore(base, name string, h Handler) error {
	return p.insert(name, h, func() (int, error) {
		i := p.index(base)
		if i < 0 {
			return 0, fmt.Errorf("%s: %w", base, ErrNoSuchStage)
		}
		return i, nil
	})
}

func (p *Pipeline) insert(name string, h Handler, pos func() (int, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index(name) >= 0 {
		return fmt.Errorf("%s: %w", name, ErrDuplicateStage)
	}
	i, err := pos()
	if err != nil {
		return err
	}
	ctx := &Context{name: name, handler: h, pipeline: p}
	p.stages = append(p.stages, nil)
	copy(p.stages[i+1:], p.stages[i:])
	p.stages[i] = ctx
	return nil
}

// Remove detaches the named stage and returns its handler.
func (p *Pipeline) Remove(name string) (Handler, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoSuchStage)
	}
	h := p.stages[i].handler
	p.stages = append(p.stages[:i], p.stages[i+1:]...)
	return h, nil
}

// Get returns the named handler, or nil.
func (p *Pipeline) Get(name string) Handler {
	if ctx := p.Context(name); ctx != nil {
		return ctx.handler
	}
	return nil
}

// Context returns the named stage's context, or nil.
func (p *Pipeline) Context(name string) *Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i := p.index(name); i >= 0 {
		return p.stages[i]
	}
	return nil
}

// Names lists stage names head to tail.
func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, len(p.stages))
	for i, c := range p.stages {
		names[i] = c.name
	}
	return names
}

// Next returns the name of the stage right after name, or "" when name is
// the tail or absent.
func (p *Pipeline) Next(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i := p.index(name)
	if i < 0 || i+1 >= len(p.stages) {
		return ""
	}
	return p.stages[i+1].name
}

func (p *Pipeline) index(name string) int {
	for i, c := range p.stages {
		if c.name == name {
			return i
		}
	}
	return -1
}

func (p *Pipeline) snapshot() []*Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Context, len(p.stages))
	copy(out, p.stages)
	return out
}

// FireRead passes msg through every inbound stage, head to tail.
func (p *Pipeline) FireRead(msg any) error {
	for _, ctx := range p.snapshot() {
		h, ok := ctx.handler.(InboundHandler)
		if !ok {
			continue
		}
		var err error
		if msg, err = h.HandleRead(ctx, msg); err != nil {
			return fmt.Errorf("read %s: %w", ctx.name, err)
		}
		if msg == nil {
			return nil
		}
	}
	return nil
}

// Write passes msg through every outbound stage, tail to head, then to the sink.
func (p *Pipeline) Write(msg any) error {
	stages := p.snapshot()
	return p.write(stages, len(stages), msg)
}

// WriteFrom is Write starting with the stage below name.
func (p *Pipeline) WriteFrom(name string, msg any) error {
	stages := p.snapshot()
	for i, ctx := range stages {
		if ctx.name == name {
			return p.write(stages, i, msg)
		}
	}
	return fmt.Errorf("%s: %w", name, ErrNoSuchStage)
}

func (p *Pipeline) write(stages []*Context, from int, msg any) error {
	for i := from - 1; i >= 0; i-- {
		ctx := stages[i]
		h, ok := ctx.handler.(OutboundHandler)
		if !ok {
			continue
		}
		var err error
		if msg, err = h.HandleWrite(ctx, msg); err != nil {
			return fmt.Errorf("write %s: %w", ctx.name, err)
		}
		if msg == nil {
			return nil
		}
	}
	if p.sink == nil {
		return nil
	}
	return p.sink(msg)
}

// Package hook 定义拦截点：插件代码通过监听器观察、修改或丢弃经过会话的数据包
package hook

import (
	"sync"

	"github.com/Versifine/hamster/internal/message"
	"github.com/google/uuid"
)

type cancellable struct {
	cancelled bool
}

// Cancel drops the unit once every listener has seen it.
func (c *cancellable) Cancel()         { c.cancelled = true }
func (c *cancellable) Cancelled() bool { return c.cancelled }

// DecodeEvent carries one raw frame before it is decoded. Listeners may
// replace Data.
type DecodeEvent struct {
	cancellable
	Session uuid.UUID
	Player  string
	Data    []byte
}

// ReceiveEvent carries one decoded message arriving from the client.
type ReceiveEvent struct {
	cancellable
	Session uuid.UUID
	Player  string
	Message *message.Wrapper
}

// SendEvent carries one decoded message about to go to the client.
type SendEvent struct {
	cancellable
	Session uuid.UUID
	Player  string
	Message *message.Wrapper
}

type DecodeListener interface {
	OnDecode(e *DecodeEvent)
}

type ReceiveListener interface {
	OnReceive(e *ReceiveEvent)
}

type SendListener interface {
	OnSend(e *SendEvent)
}

type DecodeFunc func(e *DecodeEvent)

func (f DecodeFunc) OnDecode(e *DecodeEvent) { f(e) }

type ReceiveFunc func(e *ReceiveEvent)

func (f ReceiveFunc) OnReceive(e *ReceiveEvent) { f(e) }

type SendFunc func(e *SendEvent)

func (f SendFunc) OnSend(e *SendEvent) { f(e) }

// Registry holds listeners in registration order.
type Registry struct {
	mu      sync.RWMutex
	decode  []DecodeListener
	receive []ReceiveListener
	send    []SendListener
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds l under every listener interface it implements and reports
// whether it implemented any.
func (r *Registry) Register(l any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ok := false
	if d, is := l.(DecodeListener); is {
		r.decode = append(r.decode, d)
		ok = true
	}
	if rl, is := l.(ReceiveListener); is {
		r.receive = append(r.receive, rl)
		ok = true
	}
	if s, is := l.(SendListener); is {
		r.send = append(r.send, s)
		ok = true
	}
	return ok
}

func (r *Registry) HasDecode() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decode) > 0
}

func (r *Registry) HasReceive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.receive) > 0
}

func (r *Registry) HasSend() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.send) > 0
}

func (r *Registry) FireDecode(e *DecodeEvent) {
	r.mu.RLock()
	ls := r.decode
	r.mu.RUnlock()
	for _, l := range ls {
		l.OnDecode(e)
	}
}

func (r *Registry) FireReceive(e *ReceiveEvent) {
	r.mu.RLock()
	ls := r.receive
	r.mu.RUnlock()
	for _, l := range ls {
		l.OnReceive(e)
	}
}

func (r *Registry) FireSend(e *SendEvent) {
	r.mu.RLock()
	ls := r.send
	r.mu.RUnlock()
	for _, l := range ls {
		l.OnSend(e)
	}
}

package hook

import (
	"testing"

	"github.com/Versifine/hamster/internal/message"
)

type both struct {
	received, sent int
}

func (b *both) OnReceive(*ReceiveEvent) { b.received++ }
func (b *both) OnSend(*SendEvent)       { b.sent++ }

func TestRegisterByInterface(t *testing.T) {
	r := NewRegistry()
	b := &both{}
	if !r.Register(b) {
		t.Fatal("Register 应接受实现了监听接口的值")
	}
	if r.Register("not a listener") {
		t.Error("Register 不应接受非监听器")
	}
	if r.HasDecode() {
		t.Error("未注册 decode 监听器")
	}
	if !r.HasReceive() || !r.HasSend() {
		t.Error("HasReceive/HasSend 应为 true")
	}

	r.FireReceive(&ReceiveEvent{Message: message.Wrap(nil)})
	r.FireSend(&SendEvent{})
	r.FireSend(&SendEvent{})
	if b.received != 1 || b.sent != 2 {
		t.Errorf("received=%d sent=%d", b.received, b.sent)
	}
}

func TestDecodeOrderAndCancel(t *testing.T) {
	r := NewRegistry()
	var order []int
	r.Register(DecodeFunc(func(e *DecodeEvent) {
		order = append(order, 1)
		e.Data = append(e.Data, 0xFF)
	}))
	r.Register(DecodeFunc(func(e *DecodeEvent) {
		order = append(order, 2)
		e.Cancel()
	}))
	r.Register(DecodeFunc(func(e *DecodeEvent) {
		order = append(order, 3)
	}))
	if !r.HasDecode() {
		t.Fatal("HasDecode() 应为 true")
	}

	e := &DecodeEvent{Data: []byte{0x01}}
	r.FireDecode(e)
	if len(order) != 3 || order[0] != 1 || order[2] != 3 {
		t.Errorf("调用顺序 = %v", order)
	}
	if !e.Cancelled() {
		t.Error("事件应已取消")
	}
	if len(e.Data) != 2 {
		t.Errorf("Data = %v, 期望被替换", e.Data)
	}
}

func TestFuncAdapters(t *testing.T) {
	r := NewRegistry()
	var got string
	r.Register(ReceiveFunc(func(e *ReceiveEvent) { got += "r" }))
	r.Register(SendFunc(func(e *SendEvent) { got += "s" }))
	r.FireSend(&SendEvent{})
	r.FireReceive(&ReceiveEvent{})
	if got != "sr" {
		t.Errorf("got %q", got)
	}
}

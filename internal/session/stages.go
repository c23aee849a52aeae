package session

import (
	"github.com/Versifine/hamster/internal/hook"
	"github.com/Versifine/hamster/internal/message"
	"github.com/Versifine/hamster/internal/pipeline"
)

// decodeStage sees raw frames before the host decodes them.
type decodeStage struct {
	s *Session
}

func (d *decodeStage) HandleRead(_ *pipeline.Context, msg any) (out any, err error) {
	data, ok := msg.([]byte)
	if !ok || !d.s.hooks.HasDecode() {
		return msg, nil
	}
	defer d.s.recoverStage(DecoderStage, msg, &out, &err)

	e := &hook.DecodeEvent{Session: d.s.id, Player: d.s.name, Data: data}
	d.s.hooks.FireDecode(e)
	if e.Cancelled() {
		return nil, nil
	}
	return e.Data, nil
}

// channelStage sees decoded messages in both directions.
type channelStage struct {
	s *Session
}

func (c *channelStage) HandleRead(_ *pipeline.Context, msg any) (out any, err error) {
	if msg == nil || !c.s.hooks.HasReceive() {
		return msg, nil
	}
	defer c.s.recoverStage(ChannelStage, msg, &out, &err)

	e := &hook.ReceiveEvent{Session: c.s.id, Player: c.s.name, Message: c.s.wrap(msg)}
	c.s.hooks.FireReceive(e)
	if e.Cancelled() {
		return nil, nil
	}
	return msg, nil
}

func (c *channelStage) HandleWrite(_ *pipeline.Context, msg any) (out any, err error) {
	if msg == nil || !c.s.hooks.HasSend() {
		return msg, nil
	}
	defer c.s.recoverStage(ChannelStage, msg, &out, &err)

	e := &hook.SendEvent{Session: c.s.id, Player: c.s.name, Message: c.s.wrap(msg)}
	c.s.hooks.FireSend(e)
	if e.Cancelled() {
		return nil, nil
	}
	return msg, nil
}

func (s *Session) wrap(msg any) *message.Wrapper {
	return message.Wrap(msg, message.WithResolver(s.resolver), message.WithItemConverter(s.items))
}

// recoverStage lets the original unit through when a listener panics.
func (s *Session) recoverStage(stage string, msg any, out *any, err *error) {
	if r := recover(); r != nil {
		s.log.Error("Interceptor panicked, passing unit through", "stage", stage, "panic", r)
		*out, *err = msg, nil
	}
}

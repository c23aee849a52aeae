package session

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Versifine/hamster/internal/protocol"
	"github.com/Versifine/hamster/internal/symbol"
	"github.com/Versifine/hamster/internal/wire"
)

func typesOf(ps []wire.Packet) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = reflect.TypeOf(p).Elem().Name()
	}
	return out
}

// payload returns the encoded body of p without its packet id.
func payload(t *testing.T, p wire.Packet) []byte {
	t.Helper()
	body, err := wire.EncodeBody(p)
	if err != nil {
		t.Fatalf("EncodeBody 失败: %v", err)
	}
	pkt, err := protocol.DecodePacket(body)
	if err != nil {
		t.Fatalf("DecodePacket 失败: %v", err)
	}
	return pkt.Payload
}

func TestSendActionbarPerProfile(t *testing.T) {
	tests := []struct {
		prof wire.Profile
		typ  string
		id   int32
	}{
		{wire.ProfileModern, "SystemChat", wire.ProfileModern.IDs.SystemChat},
		{wire.ProfileNether, "LegacyChat", wire.ProfileNether.IDs.Chat},
		{wire.ProfileLegacy, "LegacyChat", wire.ProfileLegacy.IDs.Chat},
	}
	for _, tt := range tests {
		t.Run(tt.prof.Name, func(t *testing.T) {
			h := newHost(t, tt.prof, fullChain...)
			s := h.session()
			s.SendActionbar("&aready")
			if len(h.conn.sent) != 1 {
				t.Fatalf("sent = %v", typesOf(h.conn.sent))
			}
			p := h.conn.sent[0]
			if typesOf(h.conn.sent)[0] != tt.typ || p.PacketID() != tt.id {
				t.Errorf("sent %s id=%#x, 期望 %s id=%#x", typesOf(h.conn.sent)[0], p.PacketID(), tt.typ, tt.id)
			}
			if body := string(payload(t, p)); !strings.Contains(body, "ready") {
				t.Errorf("payload %q 应包含文本", body)
			}
		})
	}
}

func TestSendActionbarEmptyText(t *testing.T) {
	h := newHost(t, wire.ProfileModern, fullChain...)
	h.session().SendActionbar("")
	if len(h.conn.sent) != 0 {
		t.Errorf("sent = %v, 空文本不应发送", typesOf(h.conn.sent))
	}
}

func TestSendTitleModern(t *testing.T) {
	h := newHost(t, wire.ProfileModern, fullChain...)
	h.session().SendTitle("A", "B", 10, 70, 20)
	want := []string{"TitlesAnimation", "TitleText", "SubtitleText"}
	if got := typesOf(h.conn.sent); !reflect.DeepEqual(got, want) {
		t.Fatalf("sent = %v, 期望 %v", got, want)
	}
	if got := payload(t, h.conn.sent[0]); !reflect.DeepEqual(got, []byte{0, 0, 0, 10, 0, 0, 0, 70, 0, 0, 0, 20}) {
		t.Errorf("animation payload = % x", got)
	}
}

func TestSendTitleFallsBackToLegacy(t *testing.T) {
	h := newHost(t, wire.ProfileLegacy, fullChain...)
	h.session().SendTitle("A", "B", 10, 70, 20)
	want := []string{"LegacyTitle", "LegacyTitle", "LegacyTitle"}
	if got := typesOf(h.conn.sent); !reflect.DeepEqual(got, want) {
		t.Fatalf("sent = %v, 期望 %v", got, want)
	}
	actions := []byte{
		payload(t, h.conn.sent[0])[0],
		payload(t, h.conn.sent[1])[0],
		payload(t, h.conn.sent[2])[0],
	}
	if !reflect.DeepEqual(actions, []byte{byte(wire.TitleActionTimes), byte(wire.TitleActionTitle), byte(wire.TitleActionSubtitle)}) {
		t.Errorf("actions = %v", actions)
	}
}

func TestSendTitleNoStrategyApplies(t *testing.T) {
	prof := wire.ProfileModern
	reg := symbol.NewRegistry()
	registerHost(t, reg, prof)
	if _, err := reg.Register(prof.Qualify(SymPacket), reflect.TypeFor[wire.Packet](), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(prof.Qualify(SymComponent), reflect.TypeFor[*wire.Component](), wire.NewComponent); err != nil {
		t.Fatal(err)
	}
	h := newHostWith(t, symbol.NewMinecraft(reg, "", symbol.DefaultRenames), fullChain...)
	s := h.session()

	s.SendTitle("A", "B", 10, 70, 20)
	s.SendActionbar("x")
	if len(h.conn.sent) != 0 {
		t.Errorf("sent = %v", typesOf(h.conn.sent))
	}
	if ok := s.runStrategies("title", titleStrategies(nil, nil, 1, 1, 1)); ok {
		t.Error("runStrategies 应报告失败")
	}
}

func TestRunStrategiesRecoversPanics(t *testing.T) {
	h := newHost(t, wire.ProfileModern, fullChain...)
	s := h.session()
	if err := s.ResolveHandles(); err != nil {
		t.Fatal(err)
	}
	var order []string
	ok := s.runStrategies("test", []Strategy{
		{"panics", func(*Session) ([]any, error) {
			order = append(order, "panics")
			panic("boom")
		}},
		{"fails", func(*Session) ([]any, error) {
			order = append(order, "fails")
			return nil, errors.New("nope")
		}},
		{"works", func(*Session) ([]any, error) {
			order = append(order, "works")
			msg, err := s.construct(SymTitleText, wire.NewComponent(`{"text":"t"}`))
			return []any{msg}, err
		}},
	})
	if !ok || !reflect.DeepEqual(order, []string{"panics", "fails", "works"}) {
		t.Errorf("ok=%v order=%v", ok, order)
	}
	if len(h.conn.sent) != 1 {
		t.Errorf("sent = %v", typesOf(h.conn.sent))
	}
}

func TestRunStrategiesFallsThroughOnSendError(t *testing.T) {
	h := newHost(t, wire.ProfileModern, fullChain...)
	s := h.session()
	if err := s.ResolveHandles(); err != nil {
		t.Fatal(err)
	}
	title := func() any {
		msg, err := s.construct(SymTitleText, wire.NewComponent(`{"text":"t"}`))
		if err != nil {
			t.Fatal(err)
		}
		return msg
	}
	ok := s.runStrategies("test", []Strategy{
		{"unsendable", func(*Session) ([]any, error) {
			return []any{title(), "not a packet"}, nil
		}},
		{"works", func(*Session) ([]any, error) {
			return []any{title()}, nil
		}},
	})
	if !ok {
		t.Error("发送失败后应尝试下一个策略")
	}
	if got := typesOf(h.conn.sent); !reflect.DeepEqual(got, []string{"TitleText"}) {
		t.Errorf("sent = %v, 期望只有后一个策略的消息", got)
	}
}

func TestDisconnect(t *testing.T) {
	tests := []struct {
		name   string
		prof   wire.Profile
		reason string
		want   []string
	}{
		{"modern", wire.ProfileModern, "bye", []string{"Disconnect"}},
		{"legacy", wire.ProfileLegacy, "bye", []string{"LegacyKick"}},
		{"空原因", wire.ProfileModern, "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHost(t, tt.prof, fullChain...)
			h.session().Disconnect(tt.reason)
			if got := typesOf(h.conn.sent); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("sent = %v, 期望 %v", got, tt.want)
			}
			if h.channel.Active() {
				t.Error("Disconnect 后通道应关闭")
			}
		})
	}
}

func TestSendPacket(t *testing.T) {
	h := newHost(t, wire.ProfileModern, fullChain...)
	s := h.session()
	if err := s.SendPacket(&wire.Unknown{ID: 1}); !errors.Is(err, ErrSetup) {
		t.Errorf("未解析句柄时 err = %v, 期望 ErrSetup", err)
	}
	if err := s.ResolveHandles(); err != nil {
		t.Fatal(err)
	}
	if err := s.SendPacket("not a packet"); !errors.Is(err, ErrOutboundFailed) {
		t.Errorf("err = %v, 期望 ErrOutboundFailed", err)
	}
	if err := s.SendPacket(&wire.Unknown{ID: 1}); err != nil {
		t.Errorf("SendPacket 失败: %v", err)
	}
	s.CloseChannel()
	if err := s.SendPacket(&wire.Unknown{ID: 1}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("err = %v, 期望 ErrChannelClosed", err)
	}
	if len(h.conn.sent) != 1 {
		t.Errorf("sent = %v", typesOf(h.conn.sent))
	}
}

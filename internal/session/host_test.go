package session

import (
	"reflect"
	"testing"

	"github.com/Versifine/hamster/internal/pipeline"
	"github.com/Versifine/hamster/internal/symbol"
	"github.com/Versifine/hamster/internal/wire"
	"github.com/google/uuid"
)

type networkManager struct {
	address string
	channel *pipeline.Channel
}

type playerConnection struct {
	network *networkManager
	sent    []wire.Packet
	// relay also writes every sent packet into the channel, as the host does.
	relay bool
}

func (c *playerConnection) Send(p wire.Packet) {
	c.sent = append(c.sent, p)
	if c.relay {
		_ = c.network.channel.Write(p)
	}
}

type player struct {
	name       string
	connection *playerConnection
}

// anchor is a stand-in for a host stage that records what reaches it.
type anchor struct {
	seen []any
}

func (a *anchor) HandleRead(_ *pipeline.Context, msg any) (any, error) {
	a.seen = append(a.seen, msg)
	return msg, nil
}

type host struct {
	player   *player
	conn     *playerConnection
	channel  *pipeline.Channel
	pipeline *pipeline.Pipeline
	anchors  map[string]*anchor
	written  []any
	resolver *symbol.Resolver
}

func registerHost(t *testing.T, reg *symbol.Registry, prof wire.Profile) {
	t.Helper()
	if _, err := reg.Register(prof.Qualify(SymPlayerConnection), reflect.TypeFor[*playerConnection](), nil); err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
	if _, err := reg.Register(prof.Qualify(SymNetworkManager), reflect.TypeFor[*networkManager](), nil); err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
}

// newHost builds a connection whose chain holds the given anchors, with the
// host types of prof registered.
func newHost(t *testing.T, prof wire.Profile, chain ...string) *host {
	t.Helper()
	reg := symbol.NewRegistry()
	registerHost(t, reg, prof)
	if err := wire.Register(reg, prof); err != nil {
		t.Fatalf("wire.Register 失败: %v", err)
	}
	return newHostWith(t, symbol.NewMinecraft(reg, prof.Version, symbol.DefaultRenames), chain...)
}

func newHostWith(t *testing.T, r *symbol.Resolver, chain ...string) *host {
	t.Helper()
	h := &host{anchors: make(map[string]*anchor), resolver: r}
	h.pipeline = pipeline.New(func(msg any) error {
		h.written = append(h.written, msg)
		return nil
	})
	for _, name := range chain {
		a := &anchor{}
		h.anchors[name] = a
		if err := h.pipeline.AddLast(name, a); err != nil {
			t.Fatalf("AddLast(%s) 失败: %v", name, err)
		}
	}
	h.channel = pipeline.NewChannel(uuid.New(), h.pipeline, nil)
	h.conn = &playerConnection{network: &networkManager{address: "127.0.0.1", channel: h.channel}}
	h.player = &player{name: "Steve", connection: h.conn}
	return h
}

func (h *host) session(opts ...Option) *Session {
	return New(h.channel.ID(), h.player.name, h.player, h.resolver, opts...)
}

var fullChain = []string{pipeline.Splitter, pipeline.Decompress, pipeline.Decoder, pipeline.PacketHandler}

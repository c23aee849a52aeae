package proxy

import (
	"net"
	"reflect"

	"github.com/Versifine/hamster/internal/pipeline"
	"github.com/Versifine/hamster/internal/protocol"
	"github.com/Versifine/hamster/internal/symbol"
	"github.com/Versifine/hamster/internal/wire"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Player is the handle published with a connection's connect event.
type Player struct {
	id         uuid.UUID
	name       atomic.String
	connection *PlayerConnection
}

func (p *Player) ID() uuid.UUID { return p.id }
func (p *Player) Name() string  { return p.name.Load() }

// PlayerConnection is the play-state side of a connection.
type PlayerConnection struct {
	player  *Player
	network *NetworkManager
}

// Send writes p to the client through the connection's chain.
func (c *PlayerConnection) Send(p wire.Packet) error {
	return c.network.channel.Write(p)
}

// NetworkManager owns the transport of one connection.
type NetworkManager struct {
	address net.Addr
	state   *protocol.ConnState
	channel *pipeline.Channel
}

func newPlayer(id uuid.UUID, addr net.Addr, state *protocol.ConnState, ch *pipeline.Channel) *Player {
	p := &Player{id: id}
	p.connection = &PlayerConnection{
		player:  p,
		network: &NetworkManager{address: addr, state: state, channel: ch},
	}
	return p
}

// RegisterTypes records the proxy's host types and the wire types of prof.
func RegisterTypes(reg *symbol.Registry, prof wire.Profile) error {
	if _, err := reg.Register(prof.Qualify(wire.SymPlayerConnection), reflect.TypeFor[*PlayerConnection](), nil); err != nil {
		return err
	}
	if _, err := reg.Register(prof.Qualify(wire.SymNetworkManager), reflect.TypeFor[*NetworkManager](), nil); err != nil {
		return err
	}
	return wire.Register(reg, prof)
}

package proxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/Versifine/hamster/internal/event"
	"github.com/Versifine/hamster/internal/pipeline"
	"github.com/Versifine/hamster/internal/protocol"
	"github.com/Versifine/hamster/internal/wire"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// conn relays one client. Frames from the client are fed into the chain and
// leave it at packet_handler towards the backend; messages from the backend
// are written into the chain and leave it at the sink towards the client.
type conn struct {
	id      uuid.UUID
	client  net.Conn
	backend net.Conn
	state   *protocol.ConnState
	channel *pipeline.Channel
	player  *Player
	bus     *event.Bus

	backendMu sync.Mutex
	joined    atomic.Bool
	framesIn  atomic.Int64
	bytesIn   atomic.Int64
}

func newConn(id uuid.UUID, client, backend net.Conn, bus *event.Bus) (*conn, error) {
	c := &conn{
		id:      id,
		client:  client,
		backend: backend,
		state:   protocol.NewConnState(),
		bus:     bus,
	}
	p := pipeline.New(c.writeClient)
	stages := []struct {
		name string
		h    pipeline.Handler
	}{
		{pipeline.Prepender, pipeline.OutboundFunc(c.prepend)},
		{pipeline.Encoder, pipeline.OutboundFunc(c.encode)},
		{pipeline.Splitter, pipeline.InboundFunc(c.split)},
		{pipeline.Decoder, pipeline.InboundFunc(c.decode)},
		{pipeline.PacketHandler, pipeline.InboundFunc(c.handle)},
	}
	for _, st := range stages {
		if err := p.AddLast(st.name, st.h); err != nil {
			return nil, err
		}
	}
	c.channel = pipeline.NewChannel(id, p, c.closeSockets)
	c.player = newPlayer(id, client.RemoteAddr(), c.state, c.channel)
	return c, nil
}

func (c *conn) closeSockets() error {
	return errors.Join(c.client.Close(), c.backend.Close())
}

func (c *conn) serve() {
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	run := func(tag string, relay func() error) {
		defer wg.Done()
		err := relay()
		if err != nil && !isClosed(err) {
			slog.Error("Error relaying packets", "direction", tag, "session", c.id, "error", err)
			once.Do(func() { firstErr = err })
		}
		_ = c.channel.Close()
	}
	wg.Add(2)
	go run("C->S", c.relayClient)
	go run("S->C", c.relayBackend)
	wg.Wait()

	slog.Info("Connection closed", "client", c.client.RemoteAddr(), "session", c.id,
		"frames", c.framesIn.Load(), "bytes", c.bytesIn.Load())
	if c.joined.Load() {
		c.bus.Publish(event.EventDisconnected, event.DisconnectEvent{Session: c.id, Name: c.player.Name(), Err: firstErr})
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, pipeline.ErrChannelClosed)
}

func (c *conn) relayClient() error {
	for {
		frame, err := protocol.ReadFrame(c.client)
		if err != nil {
			return err
		}
		if err := c.channel.Read(frame); err != nil {
			return err
		}
	}
}

func (c *conn) relayBackend() error {
	for {
		body, err := protocol.ReadFrame(c.backend)
		if err != nil {
			return err
		}
		if c.state.GetThreshold() >= 0 {
			if body, err = protocol.Decompress(body); err != nil {
				return err
			}
		}
		state := c.state.Get()
		pkt, err := wire.Decode(state, false, body)
		if err != nil {
			return err
		}

		if sc, ok := pkt.(*wire.SetCompression); ok {
			if err := c.enableCompression(sc); err != nil {
				return err
			}
			continue
		}
		if state == protocol.Login && pkt.PacketID() == protocol.S2CLoginSuccess {
			c.state.Set(protocol.Play)
			slog.Info("Login success, switching to Play state", "session", c.id, "name", c.player.Name())
			if err := c.channel.Write(pkt); err != nil {
				return err
			}
			c.join()
			continue
		}
		if err := c.channel.Write(pkt); err != nil {
			return err
		}
	}
}

// enableCompression forwards sc uncompressed, then switches both directions
// to compressed frames. The client may answer compressed as soon as it has
// sc, so the inbound stage goes in first.
func (c *conn) enableCompression(sc *wire.SetCompression) error {
	p := c.channel.Pipeline()
	c.state.SetThreshold(int(sc.Threshold))
	if p.Get(pipeline.Decompress) == nil {
		if err := p.AddAfter(pipeline.Splitter, pipeline.Decompress, pipeline.InboundFunc(c.decompress)); err != nil {
			return err
		}
	}
	if err := c.channel.Write(sc); err != nil {
		return err
	}
	if p.Get(pipeline.Compress) == nil {
		if err := p.AddAfter(pipeline.Prepender, pipeline.Compress, pipeline.OutboundFunc(c.compress)); err != nil {
			return err
		}
	}
	slog.Debug("Compression enabled", "session", c.id, "threshold", sc.Threshold)
	return nil
}

func (c *conn) join() {
	if c.joined.Swap(true) {
		return
	}
	c.bus.Publish(event.EventConnected, event.ConnectEvent{
		Session: c.id,
		Name:    c.player.Name(),
		Handle:  c.player,
		Addr:    c.client.RemoteAddr(),
	})
}

func (c *conn) split(_ *pipeline.Context, msg any) (any, error) {
	if frame, ok := msg.([]byte); ok {
		c.framesIn.Inc()
		c.bytesIn.Add(int64(len(frame)))
	}
	return msg, nil
}

func (c *conn) decompress(_ *pipeline.Context, msg any) (any, error) {
	frame, ok := msg.([]byte)
	if !ok {
		return msg, nil
	}
	return protocol.Decompress(frame)
}

func (c *conn) decode(_ *pipeline.Context, msg any) (any, error) {
	body, ok := msg.([]byte)
	if !ok {
		return msg, nil
	}
	pkt, err := wire.Decode(c.state.Get(), true, body)
	if err != nil {
		return nil, err
	}
	switch p := pkt.(type) {
	case *wire.Handshake:
		slog.Info("Handshake", "session", c.id, "ProtocolVersion", p.ProtocolVersion,
			"ServerAddress", p.ServerAddress, "ServerPort", p.ServerPort, "NextState", p.NextState)
		switch p.NextState {
		case 1:
			c.state.Set(protocol.Status)
		case 2, 3:
			c.state.Set(protocol.Login)
		}
	case *wire.LoginStart:
		c.player.name.Store(p.Username)
		slog.Info("Login start", "session", c.id, "username", p.Username, "uuid", p.UUID.String())
	}
	return pkt, nil
}

// handle forwards a decoded client message to the backend.
func (c *conn) handle(_ *pipeline.Context, msg any) (any, error) {
	pkt, ok := msg.(wire.Packet)
	if !ok {
		return nil, fmt.Errorf("unexpected %T at %s", msg, pipeline.PacketHandler)
	}
	body, err := wire.EncodeBody(pkt)
	if err != nil {
		return nil, err
	}
	if t := c.state.GetThreshold(); t >= 0 {
		if body, err = protocol.Compress(body, t); err != nil {
			return nil, err
		}
	}
	c.backendMu.Lock()
	defer c.backendMu.Unlock()
	_, err = c.backend.Write(protocol.AppendFrame(nil, body))
	return nil, err
}

func (c *conn) encode(_ *pipeline.Context, msg any) (any, error) {
	if pkt, ok := msg.(wire.Packet); ok {
		return wire.EncodeBody(pkt)
	}
	return msg, nil
}

func (c *conn) compress(_ *pipeline.Context, msg any) (any, error) {
	body, ok := msg.([]byte)
	if !ok {
		return msg, nil
	}
	return protocol.Compress(body, c.state.GetThreshold())
}

func (c *conn) prepend(_ *pipeline.Context, msg any) (any, error) {
	body, ok := msg.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected %T at %s", msg, pipeline.Prepender)
	}
	return protocol.AppendFrame(nil, body), nil
}

func (c *conn) writeClient(msg any) error {
	frame, ok := msg.([]byte)
	if !ok {
		return fmt.Errorf("unexpected %T at sink", msg)
	}
	_, err := c.client.Write(frame)
	return err
}

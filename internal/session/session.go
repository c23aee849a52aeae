// Package session 负责每个连接的拦截状态：定位连接句柄、在处理链中放置并维护拦截 stage、按宿主版本构造出站消息
package session

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/Versifine/hamster/internal/chat"
	"github.com/Versifine/hamster/internal/hook"
	"github.com/Versifine/hamster/internal/item"
	"github.com/Versifine/hamster/internal/pipeline"
	"github.com/Versifine/hamster/internal/symbol"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Names of the stages a session owns.
const (
	DecoderStage = "hamster_decoder"
	ChannelStage = "hamster_channel"
)

// Logical names of the host types a session looks up.
const (
	SymPlayerConnection = "server.network.PlayerConnection"
	SymNetworkManager   = "network.NetworkManager"
	SymPacket           = "network.protocol.Packet"
	SymComponent        = "network.chat.IChatBaseComponent"
)

// SendMethods are the method names tried, in order, for the raw send
// primitive before falling back to a scan of every method.
var SendMethods = []string{"Send", "SendPacket", "A"}

type State int32

const (
	Uninitialized State = iota
	HandlesResolved
	Installed
	Removed
	InstallFailed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case HandlesResolved:
		return "handles_resolved"
	case Installed:
		return "installed"
	case Removed:
		return "removed"
	case InstallFailed:
		return "install_failed"
	default:
		return "unknown"
	}
}

type Option func(*Session)

// WithHooks sets the listeners the interceptor stages report to.
func WithHooks(h *hook.Registry) Option {
	return func(s *Session) { s.hooks = h }
}

// WithTextConverter sets the converter used for outbound text.
func WithTextConverter(c *chat.Converter) Option {
	return func(s *Session) { s.text = c }
}

// Session is the state of one connection. It is safe for concurrent use.
type Session struct {
	id       uuid.UUID
	name     string
	handle   any
	resolver *symbol.Resolver
	hooks    *hook.Registry
	text     *chat.Converter
	items    item.Converter
	log      *slog.Logger

	// mu serializes state transitions and pipeline changes.
	mu              sync.Mutex
	state           atomic.Int32
	handlesResolved atomic.Bool
	stagesInstalled atomic.Bool
	degraded        atomic.Bool

	// set once handlesResolved is true
	conn      any
	network   any
	channel   *pipeline.Channel
	send      reflect.Value
	component *symbol.Symbol

	decoder *decodeStage
	inbound *channelStage
}

// New creates a session for the connection identified by id. handle is the
// host's player object the connection hangs off.
func New(id uuid.UUID, name string, handle any, resolver *symbol.Resolver, opts ...Option) *Session {
	s := &Session{
		id:       id,
		name:     name,
		handle:   handle,
		resolver: resolver,
		items:    item.NewSymbolConverter(resolver),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hooks == nil {
		s.hooks = hook.NewRegistry()
	}
	if s.text == nil {
		s.text = chat.NewConverter()
	}
	s.log = slog.With("session", id, "name", name)
	s.decoder = &decodeStage{s: s}
	s.inbound = &channelStage{s: s}
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) Name() string  { return s.name }
func (s *Session) Handle() any   { return s.handle }
func (s *Session) State() State  { return State(s.state.Load()) }

// Degraded reports whether the session currently lacks interception coverage.
func (s *Session) Degraded() bool { return s.degraded.Load() }

// Connection is the host connection object, or nil before handles are resolved.
func (s *Session) Connection() any {
	if !s.handlesResolved.Load() {
		return nil
	}
	return s.conn
}

// Channel is the connection's transport channel, or nil before handles are resolved.
func (s *Session) Channel() *pipeline.Channel {
	if !s.handlesResolved.Load() {
		return nil
	}
	return s.channel
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

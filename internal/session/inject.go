package session

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Versifine/hamster/internal/pipeline"
)

type placement struct {
	anchor string
	after  bool
}

func (p placement) String() string {
	if p.after {
		return "after " + p.anchor
	}
	return "before " + p.anchor
}

// Positions tried, in order, for each owned stage.
var (
	decoderPlacements = []placement{{pipeline.Decompress, true}, {pipeline.Splitter, true}}
	channelPlacements = []placement{{pipeline.Decoder, true}, {pipeline.PacketHandler, false}}
)

// ResolveHandles locates the connection object, its network manager, the
// transport channel and the raw send method. It is a no-op once it has
// succeeded; on failure the session stays Uninitialized.
func (s *Session) ResolveHandles() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveHandles()
}

func (s *Session) resolveHandles() error {
	if s.handlesResolved.Load() {
		return nil
	}
	conn, err := s.resolver.FieldValueOf(s.handle, SymPlayerConnection, 0)
	if err != nil {
		return &SetupError{Step: "connection", Err: err}
	}
	network, err := s.resolver.FieldValueOf(conn, SymNetworkManager, 0)
	if err != nil {
		return &SetupError{Step: "network manager", Err: err}
	}
	v, err := s.resolver.FieldValue(network, reflect.TypeFor[*pipeline.Channel](), 0)
	if err != nil {
		return &SetupError{Step: "channel", Err: err}
	}
	ch, _ := v.(*pipeline.Channel)
	if ch == nil {
		return &SetupError{Step: "channel", Err: errNilChannel}
	}
	base, err := s.resolver.Type(SymPacket)
	if err != nil {
		return &SetupError{Step: "send method", Err: err}
	}
	send, err := findSendMethod(conn, base)
	if err != nil {
		return &SetupError{Step: "send method", Err: err}
	}
	component, err := s.resolver.Resolve(SymComponent)
	if err != nil {
		return &SetupError{Step: "text component", Err: err}
	}

	s.conn, s.network, s.channel, s.send, s.component = conn, network, ch, send, component
	s.handlesResolved.Store(true)
	s.setState(HandlesResolved)
	s.log.Debug("Session handles resolved", "connection", reflect.TypeOf(conn), "channel", ch.ID())
	return nil
}

// findSendMethod returns the first method of recv named in SendMethods that
// takes one parameter accepting base, else the first method of any name that
// does.
func findSendMethod(recv any, base reflect.Type) (reflect.Value, error) {
	v := reflect.ValueOf(recv)
	for _, name := range SendMethods {
		if m := v.MethodByName(name); m.IsValid() && acceptsOne(m.Type(), base) {
			return m, nil
		}
	}
	for i := 0; i < v.NumMethod(); i++ {
		if m := v.Method(i); acceptsOne(m.Type(), base) {
			return m, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w on %T accepting %s", errNoSendMethod, recv, base)
}

func acceptsOne(ft reflect.Type, base reflect.Type) bool {
	return ft.NumIn() == 1 && !ft.IsVariadic() && base.AssignableTo(ft.In(0))
}

// Install places the two interceptor stages. It requires resolved handles and
// an active channel. If the post-decode stage cannot be placed, the
// pre-decode stage is taken out again and the session stays HandlesResolved.
// Calling Install on an installed session does nothing.
func (s *Session) Install() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.install()
}

func (s *Session) install() error {
	switch st := s.State(); st {
	case Installed:
		return nil
	case HandlesResolved:
	case Uninitialized:
		return &SetupError{Step: "install", Err: errHandlesUnresolved}
	default:
		return &SetupError{Step: "install", Err: fmt.Errorf("session is %s", st)}
	}
	if !s.channel.Active() {
		return fmt.Errorf("install: %w", ErrChannelClosed)
	}
	p := s.channel.Pipeline()
	if err := place(p, DecoderStage, s.decoder, decoderPlacements); err != nil {
		return err
	}
	if err := place(p, ChannelStage, s.inbound, channelPlacements); err != nil {
		_, _ = p.Remove(DecoderStage)
		return err
	}
	s.stagesInstalled.Store(true)
	s.degraded.Store(false)
	s.setState(Installed)
	s.log.Info("Interceptors installed", "chain", p.Names())
	return nil
}

// place puts h under name at the first position whose anchor exists. A stage
// already registered under name is replaced.
func place(p *pipeline.Pipeline, name string, h pipeline.Handler, at []placement) error {
	if p.Get(name) != nil {
		_, _ = p.Remove(name)
	}
	for _, pl := range at {
		var err error
		if pl.after {
			err = p.AddAfter(pl.anchor, name, h)
		} else {
			err = p.AddBefore(pl.anchor, name, h)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, pipeline.ErrNoSuchStage) {
			return fmt.Errorf("place %s %s: %w", name, pl, err)
		}
	}
	return &AnchorMissingError{Stage: name, Available: p.Names()}
}

// TryInstall resolves handles and installs, reporting success instead of an
// error. Failures are logged.
func (s *Session) TryInstall() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.resolveHandles()
	if err == nil {
		err = s.install()
	}
	if err != nil {
		s.degraded.Store(true)
		s.log.Warn("Interceptor install failed", "state", s.State(), "error", err)
		return false
	}
	return true
}

// Reconcile moves each owned stage back to right after its anchor when
// something has been inserted in between, reusing the same stage instance.
// A missing stage or anchor is logged and left alone.
func (s *Session) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != Installed || !s.channel.Active() {
		return
	}
	p := s.channel.Pipeline()
	s.realign(p, DecoderStage, decoderPlacements)
	s.realign(p, ChannelStage, channelPlacements)
}

func (s *Session) realign(p *pipeline.Pipeline, name string, at []placement) {
	var want *placement
	for i := range at {
		if p.Get(at[i].anchor) != nil {
			want = &at[i]
			break
		}
	}
	if want == nil {
		s.log.Debug("Reconcile skipped, no anchor", "stage", name)
		return
	}
	if p.Get(name) == nil {
		s.log.Debug("Reconcile skipped, stage absent", "stage", name)
		return
	}
	if (want.after && p.Next(want.anchor) == name) || (!want.after && p.Next(name) == want.anchor) {
		return
	}

	h, err := p.Remove(name)
	if err != nil {
		s.log.Debug("Reconcile skipped, stage removed concurrently", "stage", name)
		return
	}
	if want.after {
		err = p.AddAfter(want.anchor, name, h)
	} else {
		err = p.AddBefore(want.anchor, name, h)
	}
	if err != nil {
		s.log.Warn("Reconcile could not re-add stage", "stage", name, "error", err)
		return
	}
	s.log.Info("Interceptor stage realigned", "stage", name, "position", want.String())
}

// Remove takes the owned stages out of an active channel's chain. It is safe
// to call in any state and more than once.
func (s *Session) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlesResolved.Load() && s.channel.Active() {
		p := s.channel.Pipeline()
		for _, name := range []string{DecoderStage, ChannelStage} {
			if _, err := p.Remove(name); err != nil && !errors.Is(err, pipeline.ErrNoSuchStage) {
				s.log.Warn("Failed to remove interceptor stage", "stage", name, "error", err)
			}
		}
	}
	s.stagesInstalled.Store(false)
	s.setState(Removed)
}

// MarkFailed records that installation was given up on. The session is
// flagged degraded; a session with resolved handles becomes InstallFailed.
func (s *Session) MarkFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded.Store(true)
	if s.State() == HandlesResolved {
		s.setState(InstallFailed)
	}
}

// TryInject is TryInstall.
func (s *Session) TryInject() bool { return s.TryInstall() }

// Uninject is Remove.
func (s *Session) Uninject() { s.Remove() }

// CheckAndReorder is Reconcile.
func (s *Session) CheckAndReorder() { s.Reconcile() }

package session

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// Logical names of the outbound message types, newest releases first.
const (
	SymSystemChat       = "network.protocol.game.ClientboundSystemChatPacket"
	SymTitlesAnimation  = "network.protocol.game.ClientboundSetTitlesAnimationPacket"
	SymTitleText        = "network.protocol.game.ClientboundSetTitleTextPacket"
	SymSubtitleText     = "network.protocol.game.ClientboundSetSubtitleTextPacket"
	SymCommonDisconnect = "network.protocol.common.ClientboundDisconnectPacket"
	SymChat             = "network.protocol.game.PacketPlayOutChat"
	SymChatType         = "network.chat.ChatMessageType"
	SymTitle            = "network.protocol.game.PacketPlayOutTitle"
	SymTitleAction      = "network.protocol.game.PacketPlayOutTitle$EnumTitleAction"
	SymKick             = "network.protocol.game.PacketPlayOutKickDisconnect"
)

// actionbarPosition is the chat position that renders above the hotbar.
const actionbarPosition = 2

// Strategy builds the messages for one outbound intent on one host
// generation.
type Strategy struct {
	Name  string
	Build func(s *Session) ([]any, error)
}

// SendActionbar shows text above the player's hotbar.
func (s *Session) SendActionbar(text string) {
	comp, ok := s.prepare("actionbar", text)
	if !ok || comp == nil {
		return
	}
	s.runStrategies("actionbar", actionbarStrategies(comp))
}

func actionbarStrategies(comp any) []Strategy {
	return []Strategy{
		{"system chat", func(s *Session) ([]any, error) {
			msg, err := s.construct(SymSystemChat, comp, true)
			return []any{msg}, err
		}},
		{"chat with sender", func(s *Session) ([]any, error) {
			types, err := s.resolver.Resolve(SymChatType)
			if err != nil {
				return nil, err
			}
			pos, err := types.Enum(actionbarPosition)
			if err != nil {
				return nil, err
			}
			msg, err := s.construct(SymChat, comp, pos, uuid.Nil)
			return []any{msg}, err
		}},
		{"chat", func(s *Session) ([]any, error) {
			msg, err := s.construct(SymChat, comp, byte(actionbarPosition))
			return []any{msg}, err
		}},
	}
}

// SendTitle shows a title and subtitle with the given timings in ticks.
// Empty texts are left out.
func (s *Session) SendTitle(title, subtitle string, fadeIn, show, fadeOut int) {
	t, ok := s.prepare("title", title)
	if !ok {
		return
	}
	sub, ok := s.prepare("title", subtitle)
	if !ok {
		return
	}
	s.runStrategies("title", titleStrategies(t, sub, int32(fadeIn), int32(show), int32(fadeOut)))
}

func titleStrategies(title, subtitle any, fadeIn, show, fadeOut int32) []Strategy {
	return []Strategy{
		{"split title", func(s *Session) ([]any, error) {
			anim, err := s.construct(SymTitlesAnimation, fadeIn, show, fadeOut)
			if err != nil {
				return nil, err
			}
			msgs := []any{anim}
			if title != nil {
				m, err := s.construct(SymTitleText, title)
				if err != nil {
					return nil, err
				}
				msgs = append(msgs, m)
			}
			if subtitle != nil {
				m, err := s.construct(SymSubtitleText, subtitle)
				if err != nil {
					return nil, err
				}
				msgs = append(msgs, m)
			}
			return msgs, nil
		}},
		{"title actions", func(s *Session) ([]any, error) {
			actions, err := s.resolver.Resolve(SymTitleAction)
			if err != nil {
				return nil, err
			}
			var msgs []any
			add := func(action string, comp any) error {
				a, err := actions.EnumByName(action)
				if err != nil {
					return err
				}
				m, err := s.construct(SymTitle, a, comp, fadeIn, show, fadeOut)
				if err != nil {
					return err
				}
				msgs = append(msgs, m)
				return nil
			}
			if err := add("TIMES", nil); err != nil {
				return nil, err
			}
			if title != nil {
				if err := add("TITLE", title); err != nil {
					return nil, err
				}
			}
			if subtitle != nil {
				if err := add("SUBTITLE", subtitle); err != nil {
					return nil, err
				}
			}
			return msgs, nil
		}},
	}
}

// Disconnect sends reason to the player and closes the channel. The channel
// is closed whether or not the message could be built.
func (s *Session) Disconnect(reason string) {
	defer s.CloseChannel()
	comp, ok := s.prepare("disconnect", reason)
	if !ok || comp == nil {
		return
	}
	s.runStrategies("disconnect", []Strategy{
		{"kick", func(s *Session) ([]any, error) {
			msg, err := s.construct(SymKick, comp)
			return []any{msg}, err
		}},
		{"disconnect", func(s *Session) ([]any, error) {
			msg, err := s.construct(SymCommonDisconnect, comp)
			return []any{msg}, err
		}},
	})
}

// CloseChannel closes the connection's channel.
func (s *Session) CloseChannel() {
	if err := s.ResolveHandles(); err != nil {
		s.log.Warn("Cannot close channel", "error", err)
		return
	}
	if err := s.channel.Close(); err != nil {
		s.log.Debug("Channel close reported an error", "error", err)
	}
}

// SendPacket hands msg to the host's send method. msg must be of a type the
// method accepts.
func (s *Session) SendPacket(msg any) error {
	if !s.handlesResolved.Load() {
		return &SetupError{Step: "send", Err: errHandlesUnresolved}
	}
	if !s.channel.Active() {
		return ErrChannelClosed
	}
	if err := s.accepts(msg); err != nil {
		return err
	}
	out := s.send.Call([]reflect.Value{reflect.ValueOf(msg)})
	if n := len(out); n > 0 {
		if err, ok := out[n-1].Interface().(error); ok && err != nil {
			return err
		}
	}
	return nil
}

// prepare makes sure handles are available and converts text to a host
// component. Empty text yields a nil component.
func (s *Session) prepare(intent, text string) (any, bool) {
	if err := s.ResolveHandles(); err != nil {
		s.log.Warn("Outbound message dropped", "intent", intent, "error", err)
		return nil, false
	}
	if text == "" {
		return nil, true
	}
	js, err := s.text.ToJSON(text)
	if err != nil {
		s.log.Warn("Outbound message dropped", "intent", intent, "error", err)
		return nil, false
	}
	comp, err := s.component.New(js)
	if err != nil {
		s.log.Warn("Outbound message dropped", "intent", intent, "error", err)
		return nil, false
	}
	return comp, true
}

func (s *Session) construct(logical string, args ...any) (any, error) {
	sym, err := s.resolver.Resolve(logical)
	if err != nil {
		return nil, err
	}
	return sym.New(args...)
}

// runStrategies sends the messages of the first strategy that builds and
// sends them. A strategy whose send fails gives way to the next one, except
// when the channel has closed. It reports whether a strategy succeeded.
func (s *Session) runStrategies(intent string, strategies []Strategy) bool {
	var errs []error
	for _, st := range strategies {
		msgs, err := s.build(st)
		if err == nil {
			err = s.sendAll(msgs)
		}
		if errors.Is(err, ErrChannelClosed) {
			return false
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.Name, err))
			continue
		}
		s.log.Debug("Outbound message sent", "intent", intent, "strategy", st.Name)
		return true
	}
	s.log.Warn("Outbound message dropped", "intent", intent,
		"error", fmt.Errorf("%w: %w", ErrOutboundFailed, errors.Join(errs...)))
	return false
}

func (s *Session) accepts(msg any) error {
	param := s.send.Type().In(0)
	if msg == nil || !reflect.TypeOf(msg).AssignableTo(param) {
		return fmt.Errorf("%w: %T is not a %s", ErrOutboundFailed, msg, param)
	}
	return nil
}

// sendAll sends msgs in order. Nothing is sent unless the send method takes
// every one of them.
func (s *Session) sendAll(msgs []any) error {
	if s.handlesResolved.Load() {
		for _, msg := range msgs {
			if err := s.accepts(msg); err != nil {
				return err
			}
		}
	}
	for _, msg := range msgs {
		if err := s.SendPacket(msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) build(st Strategy) (msgs []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.Build(s)
}

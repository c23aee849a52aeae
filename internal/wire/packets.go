// Package wire 是参考宿主的消息类型：各版本的出站包、解码后的握手/登录包及其编解码
package wire

import (
	"encoding/binary"
	"io"

	"github.com/Versifine/hamster/internal/protocol"
	"github.com/google/uuid"
)

// Packet is the base type of every message the host sends or receives.
type Packet interface {
	PacketID() int32
	Encode(w io.Writer) error
}

type SystemChat struct {
	id      int32
	content *Component
	overlay bool
}

func (p *SystemChat) PacketID() int32 { return p.id }

func (p *SystemChat) Encode(w io.Writer) error {
	if err := protocol.WriteString(w, p.content.JSON()); err != nil {
		return err
	}
	return writeBool(w, p.overlay)
}

type TitlesAnimation struct {
	id      int32
	fadeIn  int32
	stay    int32
	fadeOut int32
}

func (p *TitlesAnimation) PacketID() int32 { return p.id }

func (p *TitlesAnimation) Encode(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, [3]int32{p.fadeIn, p.stay, p.fadeOut})
}

type TitleText struct {
	id   int32
	text *Component
}

func (p *TitleText) PacketID() int32          { return p.id }
func (p *TitleText) Encode(w io.Writer) error { return protocol.WriteString(w, p.text.JSON()) }

type SubtitleText struct {
	id   int32
	text *Component
}

func (p *SubtitleText) PacketID() int32          { return p.id }
func (p *SubtitleText) Encode(w io.Writer) error { return protocol.WriteString(w, p.text.JSON()) }

type Disconnect struct {
	id     int32
	reason *Component
}

func (p *Disconnect) PacketID() int32          { return p.id }
func (p *Disconnect) Encode(w io.Writer) error { return protocol.WriteString(w, p.reason.JSON()) }

// LegacyChat is the pre-1.19 chat packet. Releases that attribute messages
// to a sender carry the sender's UUID.
type LegacyChat struct {
	id        int32
	message   *Component
	position  byte
	sender    uuid.UUID
	hasSender bool
}

func (p *LegacyChat) PacketID() int32 { return p.id }

func (p *LegacyChat) Encode(w io.Writer) error {
	if err := protocol.WriteString(w, p.message.JSON()); err != nil {
		return err
	}
	if _, err := w.Write([]byte{p.position}); err != nil {
		return err
	}
	if p.hasSender {
		return protocol.WriteUUID(w, p.sender)
	}
	return nil
}

type LegacyTitle struct {
	id      int32
	action  TitleAction
	text    *Component
	fadeIn  int32
	stay    int32
	fadeOut int32
}

func (p *LegacyTitle) PacketID() int32 { return p.id }

func (p *LegacyTitle) Encode(w io.Writer) error {
	if err := protocol.WriteVarint(w, int32(p.action)); err != nil {
		return err
	}
	switch p.action {
	case TitleActionTitle, TitleActionSubtitle:
		return protocol.WriteString(w, p.text.JSON())
	case TitleActionTimes:
		return binary.Write(w, binary.BigEndian, [3]int32{p.fadeIn, p.stay, p.fadeOut})
	}
	return nil
}

type LegacyKick struct {
	id     int32
	reason *Component
}

func (p *LegacyKick) PacketID() int32          { return p.id }
func (p *LegacyKick) Encode(w io.Writer) error { return protocol.WriteString(w, p.reason.JSON()) }

// Handshake is the first serverbound packet of every connection.
type Handshake struct {
	protocol.Handshake
}

func (p *Handshake) PacketID() int32 { return protocol.C2SHandshake }

func (p *Handshake) Encode(w io.Writer) error {
	_, err := w.Write(p.Handshake.Encode())
	return err
}

type LoginStart struct {
	protocol.LoginStart
}

func (p *LoginStart) PacketID() int32 { return protocol.C2SLoginStart }

func (p *LoginStart) Encode(w io.Writer) error {
	_, err := w.Write(p.LoginStart.Encode())
	return err
}

type SetCompression struct {
	Threshold int32
}

func (p *SetCompression) PacketID() int32          { return protocol.S2CSetCompression }
func (p *SetCompression) Encode(w io.Writer) error { return protocol.WriteVarint(w, p.Threshold) }

// Unknown is any packet the host does not decode; it is relayed verbatim.
type Unknown struct {
	ID      int32
	Payload []byte
}

func (p *Unknown) PacketID() int32 { return p.ID }

func (p *Unknown) Encode(w io.Writer) error {
	_, err := w.Write(p.Payload)
	return err
}

func writeBool(w io.Writer, b bool) error {
	var v byte
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

package wire

import (
	"bytes"
	"fmt"

	"github.com/Versifine/hamster/internal/protocol"
)

// Decode turns an uncompressed frame body into a message. Only the packets
// the host acts on are decoded; everything else comes back as *Unknown.
func Decode(state protocol.State, serverbound bool, body []byte) (Packet, error) {
	pkt, err := protocol.DecodePacket(body)
	if err != nil {
		return nil, err
	}
	switch {
	case state == protocol.Handshaking && serverbound && pkt.ID == protocol.C2SHandshake:
		hs, err := protocol.ParseHandshake(pkt.Payload)
		if err != nil {
			return nil, fmt.Errorf("handshake: %w", err)
		}
		return &Handshake{Handshake: *hs}, nil
	case state == protocol.Login && serverbound && pkt.ID == protocol.C2SLoginStart:
		ls, err := protocol.ParseLoginStart(pkt.Payload)
		if err != nil {
			return nil, fmt.Errorf("login start: %w", err)
		}
		return &LoginStart{LoginStart: *ls}, nil
	case state == protocol.Login && !serverbound && pkt.ID == protocol.S2CSetCompression:
		threshold, err := protocol.ParseSetCompression(pkt.Payload)
		if err != nil {
			return nil, fmt.Errorf("set compression: %w", err)
		}
		return &SetCompression{Threshold: int32(threshold)}, nil
	}
	return &Unknown{ID: pkt.ID, Payload: pkt.Payload}, nil
}

// EncodeBody serializes p as an uncompressed frame body.
func EncodeBody(p Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode %T: %w", p, err)
	}
	return protocol.EncodePacket(&protocol.Packet{ID: p.PacketID(), Payload: buf.Bytes()}), nil
}

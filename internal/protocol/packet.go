package protocol

import (
	"bytes"
)

type Packet struct {
	ID      int32
	Payload []byte
}

// DecodePacket splits an uncompressed frame body into id and payload.
func DecodePacket(body []byte) (*Packet, error) {
	rdr := bytes.NewReader(body)
	id, err := ReadVarint(rdr)
	if err != nil {
		return nil, err
	}
	return &Packet{
		ID:      id,
		Payload: body[len(body)-rdr.Len():],
	}, nil
}

// EncodePacket is the inverse of DecodePacket.
func EncodePacket(p *Packet) []byte {
	out := make([]byte, 0, VarIntLen(p.ID)+len(p.Payload))
	var hdr [5]byte
	n := PutVarint(hdr[:], p.ID)
	out = append(out, hdr[:n]...)
	return append(out, p.Payload...)
}

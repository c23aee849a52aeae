package protocol

import "bytes"

type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

func ParseHandshake(payload []byte) (*Handshake, error) {
	payloadReader := bytes.NewReader(payload)
	protocolVersion, err := ReadVarint(payloadReader)
	if err != nil {
		return nil, err
	}
	serverAddress, err := ReadString(payloadReader)
	if err != nil {
		return nil, err
	}
	serverPort, err := ReadUnsignedShort(payloadReader)
	if err != nil {
		return nil, err
	}
	nextState, err := ReadVarint(payloadReader)
	if err != nil {
		return nil, err
	}

	return &Handshake{
		ProtocolVersion: protocolVersion,
		ServerAddress:   serverAddress,
		ServerPort:      serverPort,
		NextState:       nextState,
	}, nil
}

func (h *Handshake) Encode() []byte {
	buf := &bytes.Buffer{}
	_ = WriteVarint(buf, h.ProtocolVersion)
	_ = WriteString(buf, h.ServerAddress)
	_ = WriteUint16(buf, h.ServerPort)
	_ = WriteVarint(buf, h.NextState)
	return buf.Bytes()
}

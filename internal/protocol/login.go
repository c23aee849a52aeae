package protocol

import (
	"bytes"

	"github.com/google/uuid"
)

type LoginStart struct {
	Username string
	UUID     uuid.UUID // zero for clients that do not send one
}

// ParseLoginStart reads the username and, when present, the client UUID.
// Older clients send only the username.
func ParseLoginStart(payload []byte) (*LoginStart, error) {
	r := bytes.NewReader(payload)
	username, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	ls := &LoginStart{Username: username}
	if r.Len() >= 16 {
		if ls.UUID, err = ReadUUID(r); err != nil {
			return nil, err
		}
	}
	return ls, nil
}

func (l *LoginStart) Encode() []byte {
	buf := &bytes.Buffer{}
	_ = WriteString(buf, l.Username)
	if l.UUID != uuid.Nil {
		_ = WriteUUID(buf, l.UUID)
	}
	return buf.Bytes()
}

// ParseSetCompression returns the threshold announced by the server.
func ParseSetCompression(payload []byte) (int, error) {
	threshold, err := ReadVarint(bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	return int(threshold), nil
}

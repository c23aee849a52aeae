// Package protocol 负责 Minecraft 协议的分帧、压缩与少量握手/登录包的解析
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/google/uuid"
)

const (
	SEGMENT_BITS = 0x7F
	CONTINUE_BIT = 0x80
)

// MaxStringLength bounds strings read off the wire, in bytes.
const MaxStringLength = 32767 * 4

func ReadVarint(r io.Reader) (value int32, err error) {
	position := 0
	var currentByte [1]byte
	for {
		if _, err = io.ReadFull(r, currentByte[:]); err != nil {
			return 0, err
		}
		b := currentByte[0]
		value |= int32(b&SEGMENT_BITS) << position
		if (b & CONTINUE_BIT) == 0 {
			return value, nil
		}
		position += 7
		if position >= 35 {
			return 0, ErrVarIntTooLong
		}
	}
}

func WriteVarint(w io.Writer, value int32) error {
	var buf [5]byte
	n := PutVarint(buf[:], value)
	_, err := w.Write(buf[:n])
	return err
}

// PutVarint encodes value into buf, which must hold at least five bytes, and
// returns the number of bytes written.
func PutVarint(buf []byte, value int32) int {
	uvalue := uint32(value)
	n := 0
	for {
		temp := byte(uvalue & SEGMENT_BITS)
		uvalue >>= 7
		if uvalue != 0 {
			temp |= CONTINUE_BIT
		}
		buf[n] = temp
		n++
		if uvalue == 0 {
			return n
		}
	}
}

// VarIntLen 返回 VarInt 编码后的字节长度
func VarIntLen(value int32) int {
	uvalue := uint32(value)
	count := 1
	for uvalue >= CONTINUE_BIT {
		uvalue >>= 7
		count++
	}
	return count
}

func ReadString(r io.Reader) (string, error) {
	length, err := ReadVarint(r)
	if err != nil {
		return "", err
	}
	if length < 0 || length > MaxStringLength {
		return "", ErrStringTooLong
	}
	strBytes := make([]byte, length)
	if _, err := io.ReadFull(r, strBytes); err != nil {
		return "", err
	}
	return string(strBytes), nil
}

func WriteString(w io.Writer, s string) error {
	if err := WriteVarint(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func ReadUnsignedShort(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func WriteUint16(w io.Writer, value uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], value)
	_, err := w.Write(buf[:])
	return err
}

func ReadUUID(r io.Reader) (uuid.UUID, error) {
	var id uuid.UUID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func WriteUUID(w io.Writer, id uuid.UUID) error {
	_, err := w.Write(id[:])
	return err
}

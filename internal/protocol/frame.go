package protocol

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

const MaxPacketSize = 2097152 // 2MB

// ReadFrame reads one length-prefixed frame and returns its body.
func ReadFrame(r io.Reader) ([]byte, error) {
	frameLen, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	if frameLen <= 0 {
		return nil, ErrInvalidPacket
	}
	if frameLen > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	data := make([]byte, frameLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Join(ErrInvalidPacket, err)
	}
	return data, nil
}

// AppendFrame prefixes body with its varint length.
func AppendFrame(dst, body []byte) []byte {
	var hdr [5]byte
	n := PutVarint(hdr[:], int32(len(body)))
	dst = append(dst, hdr[:n]...)
	return append(dst, body...)
}

// Decompress unwraps the body of a frame sent after compression was enabled:
// [data length][data], where a zero data length means data is not compressed.
func Decompress(body []byte) ([]byte, error) {
	rdr := bytes.NewReader(body)
	dataLen, err := ReadVarint(rdr)
	if err != nil {
		return nil, err
	}
	rest := body[len(body)-rdr.Len():]
	if dataLen == 0 {
		return rest, nil
	}
	if dataLen < 0 || dataLen > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	z, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer z.Close()
	out := make([]byte, dataLen)
	if _, err := io.ReadFull(z, out); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return out, nil
}

// Compress wraps data for a connection with the given compression threshold.
// Data shorter than threshold is sent with a zero data length.
func Compress(data []byte, threshold int) ([]byte, error) {
	var hdr [5]byte
	if len(data) < threshold {
		n := PutVarint(hdr[:], 0)
		return append(hdr[:n:n], data...), nil
	}
	var buf bytes.Buffer
	n := PutVarint(hdr[:], int32(len(data)))
	buf.Write(hdr[:n])
	z := zlib.NewWriter(&buf)
	if _, err := z.Write(data); err != nil {
		return nil, err
	}
	if err := z.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

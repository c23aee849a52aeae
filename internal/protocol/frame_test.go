package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// TestFrameRoundTrip 测试分帧读写
func TestFrameRoundTrip(t *testing.T) {
	var stream []byte
	bodies := [][]byte{{0x00}, bytes.Repeat([]byte{0xAB}, 300), {0x01, 0x02}}
	for _, b := range bodies {
		stream = AppendFrame(stream, b)
	}

	r := bytes.NewReader(stream)
	for i, want := range bodies {
		got, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("第 %d 帧读取失败: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("第 %d 帧 = %v, 期望 %v", i, got, want)
		}
	}
}

// TestReadFrameErrors 测试非法帧
func TestReadFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"长度为零", []byte{0x00}, ErrInvalidPacket},
		{"超过最大长度", []byte{0x81, 0x80, 0x80, 0x01}, ErrPacketTooLarge},
		{"数据不足", []byte{0x05, 0x01}, ErrInvalidPacket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadFrame(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, 期望 %v", err, tt.want)
			}
		})
	}
}

// TestCompressDecompress 测试压缩帧
func TestCompressDecompress(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		threshold int
		plain     bool
	}{
		{"低于阈值不压缩", []byte{0x0F, 0x01, 0x02}, 256, true},
		{"超过阈值压缩", bytes.Repeat([]byte("hamster"), 100), 256, false},
		{"阈值为零全部压缩", []byte{0x01}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Compress(tt.data, tt.threshold)
			if err != nil {
				t.Fatalf("Compress 失败: %v", err)
			}
			if tt.plain && body[0] != 0x00 {
				t.Errorf("未压缩数据的 data length 应为 0, 实际 %#x", body[0])
			}
			got, err := Decompress(body)
			if err != nil {
				t.Fatalf("Decompress 失败: %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("往返结果不一致: %d 字节 vs %d 字节", len(got), len(tt.data))
			}
		})
	}

	if _, err := Decompress([]byte{0x05, 0x01, 0x02}); err == nil {
		t.Error("损坏的 zlib 数据应返回错误")
	}
}

// TestPacketRoundTrip 测试包 ID 与载荷拆分
func TestPacketRoundTrip(t *testing.T) {
	p := &Packet{ID: 0x6B, Payload: []byte("payload")}
	body := EncodePacket(p)
	got, err := DecodePacket(body)
	if err != nil {
		t.Fatalf("DecodePacket 失败: %v", err)
	}
	if got.ID != p.ID || !bytes.Equal(got.Payload, p.Payload) {
		t.Errorf("DecodePacket = %+v, 期望 %+v", got, p)
	}
	if _, err := DecodePacket(nil); err == nil {
		t.Error("空数据应返回错误")
	}
}

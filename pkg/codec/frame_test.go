package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestFrameCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name    string
		payload []byte
	}{
		{
			name:    "simple payload",
			payload: []byte("john@example.com"),
		},
		{
			name:    "empty payload",
			payload: []byte(""),
		},
		{
			name:    "binary data",
			payload: []byte{0x00, 0x01, 0xFF, 0xFE},
		},
		{
			name:    "large payload",
			payload: bytes.Repeat([]byte("v"), 10240),
		},
		{
			name:    "unicode data",
			payload: []byte("🎯 unicode value with émojis"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.payload)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			if len(encoded) != FrameHeaderSize+len(tc.payload) {
				t.Errorf("Encoded size mismatch: got %d, want %d", len(encoded), FrameHeaderSize+len(tc.payload))
			}

			frame, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if err := frame.Validate(); err != nil {
				t.Fatalf("Frame validation failed: %v", err)
			}

			if !bytes.Equal(frame.Payload, tc.payload) {
				t.Errorf("Payload mismatch: got %v, want %v", frame.Payload, tc.payload)
			}

			if frame.Size != uint32(len(tc.payload)) {
				t.Errorf("Size mismatch: got %d, want %d", frame.Size, len(tc.payload))
			}
		})
	}
}

func TestFrameCodec_CRCValidation(t *testing.T) {
	codec := NewFrameCodec()

	t.Run("corrupted CRC fails validation", func(t *testing.T) {
		encoded, err := codec.Encode([]byte("test value"))
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		encoded[0] ^= 0xFF

		frame, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if err := frame.Validate(); err == nil {
			t.Error("Expected validation to fail for corrupted CRC, but it passed")
		}
	})

	t.Run("corrupted payload fails validation", func(t *testing.T) {
		encoded, err := codec.Encode([]byte("test value"))
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		encoded[FrameHeaderSize] ^= 0xFF

		frame, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if err := frame.Validate(); err == nil {
			t.Error("Expected validation to fail for corrupted payload, but it passed")
		}
	})
}

func TestFrameCodec_MalformedData(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "empty data",
			data: []byte{},
		},
		{
			name: "too short for header",
			data: []byte{0x01, 0x02, 0x03},
		},
		{
			name: "insufficient data for declared size",
			data: func() []byte {
				buf := make([]byte, FrameHeaderSize+5)
				binary.LittleEndian.PutUint32(buf[4:8], 100)
				return buf
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Decode(tc.data); err == nil {
				t.Errorf("Expected decode to fail for malformed data (%s)", tc.name)
			}
		})
	}
}

func TestFrameCodec_DecodeFirstOfMany(t *testing.T) {
	codec := NewFrameCodec()

	first, _ := NewFrame([]byte("first"))
	second, _ := NewFrame([]byte("second"))
	data := codec.Append(codec.Append(nil, first), second)

	got, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(got.Payload) != "first" {
		t.Errorf("Payload mismatch: got %q", got.Payload)
	}

	next, err := codec.Decode(data[got.Len():])
	if err != nil {
		t.Fatalf("Decode of second frame failed: %v", err)
	}
	if string(next.Payload) != "second" {
		t.Errorf("Payload mismatch: got %q", next.Payload)
	}
}

func TestFrame_CalculateCRC32(t *testing.T) {
	frame, err := NewFrame([]byte("test value"))
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	crc := frame.calculateCRC32()
	if crc == 0 {
		t.Error("Expected non-zero CRC32 for non-empty frame")
	}
	if crc != frame.calculateCRC32() {
		t.Error("CRC32 calculation is not deterministic")
	}

	other, _ := NewFrame([]byte("different value"))
	if crc == other.calculateCRC32() {
		t.Error("Different frames produced same CRC32 (highly unlikely)")
	}
}

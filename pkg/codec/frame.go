package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// FrameHeaderSize is CRC32(4) + Size(4).
const FrameHeaderSize = 8

// Frame is one length-prefixed, checksummed payload in the binary format.
type Frame struct {
	CRC32   uint32 // CRC32 over Size and Payload
	Size    uint32 // Payload length in bytes
	Payload []byte
}

// FrameCodec reads and writes frames. It holds no state.
type FrameCodec struct{}

// NewFrameCodec creates a new frame codec instance
func NewFrameCodec() *FrameCodec {
	return &FrameCodec{}
}

// NewFrame wraps payload in a frame with its checksum already computed.
func NewFrame(payload []byte) (*Frame, error) {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("payload too large: %d bytes", len(payload))
	}
	f := &Frame{
		Size:    uint32(len(payload)),
		Payload: payload,
	}
	f.CRC32 = f.calculateCRC32()
	return f, nil
}

// Encode serializes payload into a frame.
// Format: [CRC32(4)][Size(4)][Payload]
func (c *FrameCodec) Encode(payload []byte) ([]byte, error) {
	f, err := NewFrame(payload)
	if err != nil {
		return nil, err
	}
	return c.Append(nil, f), nil
}

// Append writes f to the end of dst and returns the extended slice.
func (c *FrameCodec) Append(dst []byte, f *Frame) []byte {
	var header [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:], f.CRC32)
	binary.LittleEndian.PutUint32(header[4:], f.Size)
	dst = append(dst, header[:]...)
	return append(dst, f.Payload...)
}

// Decode reads the first frame in data. The payload aliases data.
// Use Frame.Len to find where the next frame starts.
func (c *FrameCodec) Decode(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, fmt.Errorf("data too short for frame header: %d bytes", len(data))
	}

	f := &Frame{}
	f.CRC32 = binary.LittleEndian.Uint32(data[0:4])
	f.Size = binary.LittleEndian.Uint32(data[4:8])

	end := uint64(FrameHeaderSize) + uint64(f.Size)
	if uint64(len(data)) < end {
		return nil, fmt.Errorf("data too short for payload size: %d < %d", len(data), end)
	}
	f.Payload = data[FrameHeaderSize:end]

	return f, nil
}

// Validate checks the frame's checksum.
func (f *Frame) Validate() error {
	if sum := f.calculateCRC32(); f.CRC32 != sum {
		return fmt.Errorf("CRC32 mismatch: %d != %d", f.CRC32, sum)
	}
	return nil
}

// Len returns the encoded size of the frame.
func (f *Frame) Len() int {
	return FrameHeaderSize + len(f.Payload)
}

func (f *Frame) calculateCRC32() uint32 {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], f.Size)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(size[:])
	_, _ = crc.Write(f.Payload)
	return crc.Sum32()
}

package codec

import (
	"fmt"

	"github.com/ssargent/docport/pkg/collection"
)

// BinaryCodec writes one CBOR document per frame.
type BinaryCodec struct {
	frames *FrameCodec
}

// NewBinaryCodec creates the codec registered under FormatBSON.
func NewBinaryCodec() *BinaryCodec {
	return &BinaryCodec{frames: NewFrameCodec()}
}

// Format returns FormatBSON.
func (c *BinaryCodec) Format() Format {
	return FormatBSON
}

// Encode frames every document in order.
func (c *BinaryCodec) Encode(docs collection.Collection) ([]byte, error) {
	var out []byte
	for i, doc := range docs {
		payload, err := MarshalDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("bson: document %d: %w", i, err)
		}
		f, err := NewFrame(payload)
		if err != nil {
			return nil, fmt.Errorf("bson: document %d: %w", i, err)
		}
		out = c.frames.Append(out, f)
	}
	return out, nil
}

// Decode reads frames until data is exhausted. Any damaged frame fails the
// whole decode.
func (c *BinaryCodec) Decode(data []byte) (collection.Collection, error) {
	docs := collection.Collection{}
	for offset := 0; offset < len(data); {
		f, err := c.frames.Decode(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("bson: frame at offset %d: %w", offset, err)
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("bson: frame at offset %d: %w", offset, err)
		}
		doc, err := UnmarshalDocument(f.Payload)
		if err != nil {
			return nil, fmt.Errorf("bson: frame at offset %d: %w", offset, err)
		}
		docs = append(docs, doc)
		offset += f.Len()
	}
	return docs, nil
}

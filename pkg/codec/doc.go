// Package codec converts collections to and from the formats docport can
// bundle: JSON, CSV and a compact binary record format tagged "bson".
//
// # Registry
//
// Codecs are looked up through an explicit [Registry] built once at startup:
//
//	reg := codec.DefaultRegistry()
//
//	encode, err := reg.SerializerFor(codec.FormatJSON)
//	if err != nil {
//	    return err // codec.ErrUnknownFormat
//	}
//	data, err := encode(docs)
//
// A Registry is immutable after construction and safe for concurrent use.
// There is no package-level mutable registry.
//
// # Binary Format
//
// The "bson" format is a sequence of self-checking frames, one per document.
// It is not MongoDB BSON; mongodump files are rejected with a decode error.
//
//	[CRC32(4)][Size(4)][Payload]
//
// Fields:
//   - CRC32: IEEE checksum over Size and Payload (little-endian)
//   - Size: payload length in bytes (little-endian)
//   - Payload: the document encoded as deterministic CBOR (RFC 8949 §4.2)
//
// The total frame size is 8 bytes (header) + len(payload). A CRC mismatch,
// a truncated frame or an undecodable payload fails the whole decode.
//
// # CSV Cells
//
// The CSV header is the sorted union of top-level keys. An empty cell means
// the field is absent. Strings are written verbatim unless they would read
// back as something else, in which case they are JSON-quoted. Numbers,
// booleans, null and nested values are written as JSON text.
//
// # Thread Safety
//
// All codecs are stateless and safe for concurrent use.
package codec

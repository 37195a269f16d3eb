package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/ssargent/docport/pkg/collection"
)

// encMode uses Core Deterministic Encoding: sorted map keys, smallest
// integer and float encodings, no indefinite-length items. The same
// document always produces identical bytes.
var encMode cbor.EncMode

// decMode decodes untyped maps as map[string]any and integers as int64 so
// documents read back with the same shape the JSON codec produces.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSignedOrBigInt,
		BigIntDec:      cbor.BigIntDecodePointer,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalDocument encodes a single document as deterministic CBOR.
func MarshalDocument(doc collection.Document) ([]byte, error) {
	return encMode.Marshal(map[string]any(doc))
}

// UnmarshalDocument decodes a CBOR document produced by MarshalDocument.
func UnmarshalDocument(data []byte) (collection.Document, error) {
	var m map[string]any
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return collection.Document(m), nil
}

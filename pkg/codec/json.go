package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"

	"github.com/ssargent/docport/pkg/collection"
)

// JSONCodec writes a collection as a JSON array of objects.
type JSONCodec struct {
	// Indent is used for each nesting level. Empty means compact output.
	Indent string
}

// NewJSONCodec creates the codec registered under FormatJSON.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: "  "}
}

// Format returns FormatJSON.
func (c *JSONCodec) Format() Format {
	return FormatJSON
}

// Encode writes docs as a JSON array. A nil collection encodes as [].
func (c *JSONCodec) Encode(docs collection.Collection) ([]byte, error) {
	if docs == nil {
		docs = collection.Collection{}
	}
	var (
		out []byte
		err error
	)
	if c.Indent != "" {
		out, err = json.MarshalIndent(docs, "", c.Indent)
	} else {
		out, err = json.Marshal(docs)
	}
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return out, nil
}

// Decode accepts a JSON array of objects, a single object, or a stream of
// objects separated by whitespace. Comments and trailing commas are
// tolerated. Numbers decode as float64, except integers beyond 2^53 which
// decode as int64 so they keep every digit.
func (c *JSONCodec) Decode(data []byte) (collection.Collection, error) {
	clean := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(clean) == 0 {
		return collection.Collection{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.UseNumber()

	if clean[0] == '[' {
		var docs collection.Collection
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("json: unexpected data after array")
		}
		for i, doc := range docs {
			if doc == nil {
				return nil, fmt.Errorf("json: document %d: null is not a document", i)
			}
			if err := normalizeNumbers(doc); err != nil {
				return nil, fmt.Errorf("json: document %d: %w", i, err)
			}
		}
		if docs == nil {
			docs = collection.Collection{}
		}
		return docs, nil
	}

	docs := collection.Collection{}
	for {
		var doc collection.Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("json: document %d: %w", len(docs), err)
		}
		if doc == nil {
			return nil, fmt.Errorf("json: document %d: null is not a document", len(docs))
		}
		if err := normalizeNumbers(doc); err != nil {
			return nil, fmt.Errorf("json: document %d: %w", len(docs), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// maxExactInt is the largest magnitude below which every integer has an
// exact float64.
const maxExactInt = 1 << 53

// numberValue converts a json.Number to int64 when float64 would round it,
// and to float64 otherwise.
func numberValue(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil && (i > maxExactInt || i < -maxExactInt) {
		return i, nil
	}
	return n.Float64()
}

// normalizeNumbers replaces every json.Number inside doc in place.
func normalizeNumbers(doc collection.Document) error {
	for k, v := range doc {
		out, err := convertNumbers(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		doc[k] = out
	}
	return nil
}

func convertNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		return numberValue(t)
	case map[string]any:
		for k, e := range t {
			out, err := convertNumbers(e)
			if err != nil {
				return nil, err
			}
			t[k] = out
		}
	case []any:
		for i, e := range t {
			out, err := convertNumbers(e)
			if err != nil {
				return nil, err
			}
			t[i] = out
		}
	}
	return v, nil
}

// decodeValue parses one JSON value with the same number rules as Decode.
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after value")
	}
	return convertNumbers(v)
}

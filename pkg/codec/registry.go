package codec

import (
	"fmt"
	"sort"

	"github.com/ssargent/docport/pkg/collection"
)

// Codec serializes and deserializes whole collections for one format.
type Codec interface {
	Format() Format
	Encode(docs collection.Collection) ([]byte, error)
	Decode(data []byte) (collection.Collection, error)
}

// Serializer turns a collection into bytes.
type Serializer func(docs collection.Collection) ([]byte, error)

// Deserializer turns bytes back into a collection.
type Deserializer func(data []byte) (collection.Collection, error)

// Registry maps formats to codecs. It is read-only once built.
type Registry struct {
	codecs map[Format]Codec
}

// NewRegistry builds a registry from the given codecs.
// It fails on a nil codec, an invalid format or a format registered twice.
func NewRegistry(codecs ...Codec) (*Registry, error) {
	r := &Registry{codecs: make(map[Format]Codec, len(codecs))}
	for _, c := range codecs {
		if c == nil {
			return nil, fmt.Errorf("codec: nil codec")
		}
		f := c.Format()
		if !f.Valid() {
			return nil, fmt.Errorf("codec: %w: %q", ErrUnknownFormat, f)
		}
		if _, exists := r.codecs[f]; exists {
			return nil, fmt.Errorf("codec: format %q registered twice", f)
		}
		r.codecs[f] = c
	}
	return r, nil
}

// DefaultRegistry returns a registry holding the JSON, CSV and binary codecs.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(NewJSONCodec(), NewCSVCodec(), NewBinaryCodec())
	if err != nil {
		panic("codec: default registry: " + err.Error())
	}
	return r
}

// Lookup returns the codec registered for f.
func (r *Registry) Lookup(f Format) (Codec, error) {
	c, ok := r.codecs[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return c, nil
}

// Has reports whether a codec is registered for f.
func (r *Registry) Has(f Format) bool {
	_, ok := r.codecs[f]
	return ok
}

// SerializerFor returns the encode function for f.
func (r *Registry) SerializerFor(f Format) (Serializer, error) {
	c, err := r.Lookup(f)
	if err != nil {
		return nil, err
	}
	return c.Encode, nil
}

// DeserializerFor returns the decode function for f.
func (r *Registry) DeserializerFor(f Format) (Deserializer, error) {
	c, err := r.Lookup(f)
	if err != nil {
		return nil, err
	}
	return c.Decode, nil
}

// Formats returns the registered formats, sorted.
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.codecs))
	for f := range r.codecs {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

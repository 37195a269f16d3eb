package codec

import (
	"errors"
	"fmt"
)

// Format identifies a serialization format. The set is closed: only the
// constants below are valid.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatBSON Format = "bson"
)

// ErrUnknownFormat is returned for format identifiers outside the closed set
// or without a registered codec.
var ErrUnknownFormat = errors.New("unknown format")

// String returns the format identifier, which doubles as the file extension.
func (f Format) String() string {
	return string(f)
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatBSON:
		return true
	default:
		return false
	}
}

// Describe returns a one-line description for help text.
func (f Format) Describe() string {
	switch f {
	case FormatJSON:
		return "json: array of objects"
	case FormatCSV:
		return "csv: header row plus one row per document"
	case FormatBSON:
		return "bson: CRC32-framed CBOR documents, not MongoDB BSON"
	default:
		return string(f) + ": unknown"
	}
}

// FormatHelp describes every known format, one per line.
func FormatHelp() string {
	return FormatJSON.Describe() + "\n" + FormatCSV.Describe() + "\n" + FormatBSON.Describe()
}

// ParseFormat converts an identifier such as "json" into a Format.
// Matching is exact; "JSON" is rejected.
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

package archive

import "errors"

// Every failure returned by this package wraps exactly one of these.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyInput        = errors.New("no collections supplied")
	ErrEmptyArchive      = errors.New("no zip entries found")
	ErrCorruptArchive    = errors.New("error reading zip file")
	ErrDisallowedName    = errors.New("not importing, disallowed collection name")
	ErrEncode            = errors.New("encode failed")
	ErrDecode            = errors.New("decode failed")
	ErrRead              = errors.New("error reading file")
	ErrNoExtension       = errors.New("your file has no extension")
)

// Kind returns a short label for the sentinel err wraps. It is used as a
// metrics label and in log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrEmptyArchive):
		return "empty_archive"
	case errors.Is(err, ErrCorruptArchive):
		return "corrupt_archive"
	case errors.Is(err, ErrDisallowedName):
		return "disallowed_name"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrRead):
		return "read"
	case errors.Is(err, ErrNoExtension):
		return "no_extension"
	default:
		return "other"
	}
}

package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/collection"
)

const zipExtension = "zip"

// FileImporter imports a single uploaded file, which is either a zip archive
// or one collection in a registered format.
type FileImporter struct {
	archives *Importer
	registry *codec.Registry
	logger   *slog.Logger
}

// NewFileImporter returns a FileImporter that hands zip files to imp.
func NewFileImporter(imp *Importer) *FileImporter {
	return &FileImporter{
		archives: imp,
		registry: imp.registry,
		logger:   imp.logger,
	}
}

// ImportFile reads the file at path. The format comes from filename, which
// is the name the file was uploaded under, not the path it was stored at.
func (fi *FileImporter) ImportFile(ctx context.Context, path, filename string) (collection.Set, error) {
	if _, _, err := fi.classify(filename); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return fi.ImportBytes(ctx, data, filename)
}

// ImportBytes is ImportFile for callers that already hold the contents.
func (fi *FileImporter) ImportBytes(ctx context.Context, data []byte, filename string) (collection.Set, error) {
	base, ext, err := fi.classify(filename)
	if err != nil {
		return nil, err
	}
	if ext == zipExtension {
		return fi.archives.Import(ctx, data)
	}

	decode, err := fi.registry.DeserializerFor(codec.Format(ext))
	if err != nil {
		fi.logger.InfoContext(ctx, "unsupported file type", "file", filename, "type", "."+ext)
		return nil, fmt.Errorf("%w: unsupported file type: .%s: %w", ErrUnsupportedFormat, ext, err)
	}
	docs, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, filename, err)
	}
	return collection.Set{base: docs}, nil
}

func (fi *FileImporter) classify(filename string) (base, ext string, err error) {
	base, ext, ok := splitName(filename)
	if ext == zipExtension {
		return base, ext, nil
	}
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrNoExtension, filename)
	}
	return base, ext, nil
}

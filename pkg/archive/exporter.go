package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/collection"
)

// Exporter serializes collection sets into zip archives.
type Exporter struct {
	registry *codec.Registry
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

// NewExporter returns an exporter backed by reg. A nil logger discards output.
func NewExporter(reg *codec.Registry, logger *slog.Logger, cfg Config) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{
		registry: reg,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Export encodes every collection in set with format and returns the bytes of
// a deflate zip holding one entry per collection, named "<name>.<format>".
func (e *Exporter) Export(ctx context.Context, set collection.Set, format codec.Format) ([]byte, error) {
	encode, err := e.registry.SerializerFor(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	if len(set) == 0 {
		return nil, ErrEmptyInput
	}

	names := set.Names()
	payloads := make([][]byte, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.MaxConcurrency > 0 {
		g.SetLimit(e.cfg.MaxConcurrency)
	}
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := encode(set[name])
			if err != nil {
				return fmt.Errorf("%w: %s.%s: %w", ErrEncode, name, format, err)
			}
			payloads[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.ErrorContext(ctx, "export failed", "format", format, "error", err)
		return nil, err
	}

	out, err := e.writeZip(names, payloads, format)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "export complete",
		"format", format,
		"collections", len(names),
		"documents", set.Count(),
		"bytes", len(out))
	return out, nil
}

func (e *Exporter) writeZip(names []string, payloads [][]byte, format codec.Format) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	level := e.cfg.CompressionLevel
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	modified := e.now()
	for i, name := range names {
		entry := name + "." + string(format)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEncode, entry, err)
		}
		if _, err := w.Write(payloads[i]); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEncode, entry, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize archive: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/collection"
	"github.com/ssargent/docport/pkg/guard"
)

// Importer reconstructs collection sets from zip archives.
type Importer struct {
	registry *codec.Registry
	guard    *guard.Guard
	logger   *slog.Logger
	cfg      Config
}

// NewImporter returns an importer. A nil guard falls back to guard.Default
// and a nil logger discards output.
func NewImporter(reg *codec.Registry, g *guard.Guard, logger *slog.Logger, cfg Config) *Importer {
	if g == nil {
		g = guard.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{
		registry: reg,
		guard:    g,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

type entryJob struct {
	file   *zip.File
	base   string
	decode codec.Deserializer
}

// Import opens data as a zip archive and decodes every entry into a
// collection keyed by the entry name without its extension. Entries without
// a recognizable extension are skipped. A disallowed or unsupported entry
// fails the whole import before anything is decoded.
func (i *Importer) Import(ctx context.Context, data []byte) (collection.Set, error) {
	zr, err := i.open(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, ErrEmptyArchive
	}

	jobs := make([]entryJob, 0, len(zr.File))
	for _, f := range zr.File {
		base, ext, ok := splitName(f.Name)
		if !ok {
			i.logger.DebugContext(ctx, "skipping entry without extension", "entry", f.Name)
			continue
		}
		if err := i.guard.Check(f.Name); err != nil {
			i.logger.InfoContext(ctx, "not importing, disallowed collection name", "entry", f.Name)
			return nil, fmt.Errorf("%w %s: %w", ErrDisallowedName, f.Name, err)
		}
		decode, err := i.registry.DeserializerFor(codec.Format(ext))
		if err != nil {
			i.logger.InfoContext(ctx, "not importing, unsupported file type", "entry", f.Name, "type", "."+ext)
			return nil, fmt.Errorf("%w: not importing, unsupported file type: .%s: %w", ErrUnsupportedFormat, ext, err)
		}
		jobs = append(jobs, entryJob{file: f, base: base, decode: decode})
	}

	results := make([]collection.Collection, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if i.cfg.MaxConcurrency > 0 {
		g.SetLimit(i.cfg.MaxConcurrency)
	}
	for n, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := readEntry(job.file)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrCorruptArchive, job.file.Name, err)
			}
			docs, err := job.decode(raw)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrDecode, job.file.Name, err)
			}
			results[n] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.logger.ErrorContext(ctx, "import failed", "error", err)
		return nil, err
	}

	// Later entries with the same base name replace earlier ones.
	set := make(collection.Set, len(jobs))
	for n, job := range jobs {
		set[job.base] = results[n]
	}

	i.logger.DebugContext(ctx, "import complete",
		"entries", len(zr.File),
		"collections", len(set),
		"documents", set.Count())
	return set, nil
}

// open tries cfg.Open up to Retries+1 times, waiting RetryDelay between
// attempts.
func (i *Importer) open(ctx context.Context, data []byte) (*zip.Reader, error) {
	var lastErr error
	for attempt := 0; attempt <= i.cfg.Retries; attempt++ {
		if attempt > 0 {
			i.logger.WarnContext(ctx, "retrying archive open",
				"attempt", attempt+1,
				"max_attempts", i.cfg.Retries+1,
				"error", lastErr)
			if err := sleep(ctx, i.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
		zr, err := i.cfg.Open(data)
		if err == nil {
			return zr, nil
		}
		lastErr = err
	}
	i.logger.ErrorContext(ctx, "error reading zip file", "attempts", i.cfg.Retries+1, "error", lastErr)
	return nil, fmt.Errorf("%w: %w", ErrCorruptArchive, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

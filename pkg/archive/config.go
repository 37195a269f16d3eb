package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// OpenFunc opens raw archive bytes. Tests swap it to simulate flaky reads.
type OpenFunc func(data []byte) (*zip.Reader, error)

// Config tunes the exporter and importers.
type Config struct {
	// Retries is the number of extra attempts made to open an archive.
	Retries int
	// RetryDelay is the fixed wait between open attempts.
	RetryDelay time.Duration
	// MaxConcurrency bounds each encode or decode fan-out. Zero or less
	// means unbounded.
	MaxConcurrency int
	// CompressionLevel is a flate level, -2 through 9.
	CompressionLevel int
	Open             OpenFunc
}

// DefaultConfig returns two retries one second apart, unbounded fan-out and
// the default deflate level.
func DefaultConfig() Config {
	return Config{
		Retries:          2,
		RetryDelay:       time.Second,
		CompressionLevel: flate.DefaultCompression,
		Open:             OpenZip,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []string
	if c.Retries < 0 {
		errs = append(errs, "retries must not be negative")
	}
	if c.RetryDelay < 0 {
		errs = append(errs, "retry delay must not be negative")
	}
	if c.CompressionLevel < flate.HuffmanOnly || c.CompressionLevel > flate.BestCompression {
		errs = append(errs, fmt.Sprintf("compression level %d out of range", c.CompressionLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("archive config: %v", errs)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Open == nil {
		c.Open = OpenZip
	}
	return c
}

// OpenZip reads data as a zip archive held in memory.
func OpenZip(data []byte) (*zip.Reader, error) {
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

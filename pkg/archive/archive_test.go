package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/collection"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func newTestImporter(cfg Config) *Importer {
	return NewImporter(codec.DefaultRegistry(), nil, nil, cfg)
}

// buildZip writes the given entries, in order, into an in-memory archive.
func buildZip(t *testing.T, entries ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sampleSet() collection.Set {
	return collection.Set{
		"users": {
			{"name": "ada", "age": float64(36)},
			{"name": "grace", "admin": true},
		},
		"orders": {
			{"sku": "A-1", "qty": float64(2), "lines": []any{"x", "y"}},
		},
		"empty": {},
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	reg := codec.DefaultRegistry()
	exp := NewExporter(reg, nil, testConfig())
	imp := newTestImporter(testConfig())

	for _, format := range reg.Formats() {
		t.Run(format.String(), func(t *testing.T) {
			data, err := exp.Export(context.Background(), sampleSet(), format)
			require.NoError(t, err)

			zr, err := OpenZip(data)
			require.NoError(t, err)
			var names []string
			for _, f := range zr.File {
				names = append(names, f.Name)
				assert.Equal(t, zip.Deflate, f.Method)
			}
			assert.ElementsMatch(t, []string{
				"users." + string(format),
				"orders." + string(format),
				"empty." + string(format),
			}, names)

			got, err := imp.Import(context.Background(), data)
			require.NoError(t, err)
			assert.Equal(t, sampleSet(), got)
		})
	}
}

func TestExport_Errors(t *testing.T) {
	exp := NewExporter(codec.DefaultRegistry(), nil, testConfig())

	t.Run("unsupported format", func(t *testing.T) {
		_, err := exp.Export(context.Background(), sampleSet(), codec.Format("xml"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("unsupported format wins over empty input", func(t *testing.T) {
		_, err := exp.Export(context.Background(), collection.Set{}, codec.Format("xml"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := exp.Export(context.Background(), collection.Set{}, codec.FormatJSON)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("encode failure names the entry", func(t *testing.T) {
		set := collection.Set{
			"good": {{"a": "b"}},
			"bad":  {{"c": make(chan int)}},
		}
		out, err := exp.Export(context.Background(), set, codec.FormatJSON)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrEncode)
		assert.Contains(t, err.Error(), "bad.json")
	})

	t.Run("bounded fan-out", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxConcurrency = 1
		out, err := NewExporter(codec.DefaultRegistry(), nil, cfg).
			Export(context.Background(), sampleSet(), codec.FormatCSV)
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	})

	t.Run("invalid compression level", func(t *testing.T) {
		cfg := testConfig()
		cfg.CompressionLevel = 42
		_, err := NewExporter(codec.DefaultRegistry(), nil, cfg).
			Export(context.Background(), sampleSet(), codec.FormatJSON)
		assert.ErrorIs(t, err, ErrEncode)
	})
}

func TestImport_Filtering(t *testing.T) {
	imp := newTestImporter(testConfig())
	ctx := context.Background()

	t.Run("empty archive", func(t *testing.T) {
		_, err := imp.Import(ctx, buildZip(t))
		assert.ErrorIs(t, err, ErrEmptyArchive)
	})

	t.Run("disallowed name rejects the whole archive", func(t *testing.T) {
		data := buildZip(t,
			[2]string{"users.json", `[{"a":1}]`},
			[2]string{"system.indexes.json", `[]`},
		)
		set, err := imp.Import(ctx, data)
		assert.Nil(t, set)
		assert.ErrorIs(t, err, ErrDisallowedName)
		assert.Contains(t, err.Error(), "system.indexes.json")
	})

	t.Run("metadata sidecar is disallowed", func(t *testing.T) {
		_, err := imp.Import(ctx, buildZip(t, [2]string{"users.metadata.json", `{}`}))
		assert.ErrorIs(t, err, ErrDisallowedName)
	})

	t.Run("unsupported entry type", func(t *testing.T) {
		data := buildZip(t,
			[2]string{"users.json", `[]`},
			[2]string{"notes.xml", `<a/>`},
		)
		_, err := imp.Import(ctx, data)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Contains(t, err.Error(), ".xml")
	})

	t.Run("suffix lookup is case sensitive", func(t *testing.T) {
		_, err := imp.Import(ctx, buildZip(t, [2]string{"USERS.JSON", `[]`}))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("entries without extension are skipped", func(t *testing.T) {
		data := buildZip(t,
			[2]string{".DS_Store", "junk"},
			[2]string{"README", "junk"},
			[2]string{"nested/", ""},
			[2]string{"users.json", `[{"a":1}]`},
		)
		set, err := imp.Import(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, collection.Set{"users": {{"a": float64(1)}}}, set)
	})

	t.Run("decode failure", func(t *testing.T) {
		data := buildZip(t,
			[2]string{"users.json", `[{"a":1}]`},
			[2]string{"broken.bson", "not frames"},
		)
		set, err := imp.Import(ctx, data)
		assert.Nil(t, set)
		assert.ErrorIs(t, err, ErrDecode)
		assert.Contains(t, err.Error(), "broken.bson")
	})

	t.Run("later duplicate wins", func(t *testing.T) {
		data := buildZip(t,
			[2]string{"users.json", `[{"from":"json"}]`},
			[2]string{"users.csv", "from\ncsv\n"},
		)
		set, err := imp.Import(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, collection.Set{"users": {{"from": "csv"}}}, set)
	})
}

func TestImport_RetriesOpen(t *testing.T) {
	var calls atomic.Int32
	cfg := DefaultConfig()
	cfg.RetryDelay = 20 * time.Millisecond
	cfg.Open = func([]byte) (*zip.Reader, error) {
		calls.Add(1)
		return nil, errors.New("disk hiccup")
	}

	start := time.Now()
	_, err := newTestImporter(cfg).Import(context.Background(), []byte("whatever"))
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrCorruptArchive)
	assert.Contains(t, err.Error(), "disk hiccup")
	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestImport_RetrySucceeds(t *testing.T) {
	data := buildZip(t, [2]string{"users.json", `[]`})
	var calls atomic.Int32
	cfg := testConfig()
	cfg.Open = func(b []byte) (*zip.Reader, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return OpenZip(b)
	}

	set, err := newTestImporter(cfg).Import(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, collection.Set{"users": {}}, set)
	assert.Equal(t, int32(2), calls.Load())
}

func TestImport_RetryHonoursContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newTestImporter(cfg).Import(ctx, []byte("not a zip"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestImport_GarbageIsCorrupt(t *testing.T) {
	_, err := newTestImporter(testConfig()).Import(context.Background(), []byte("not a zip"))
	assert.ErrorIs(t, err, ErrCorruptArchive)
}

func TestFileImporter(t *testing.T) {
	reg := codec.DefaultRegistry()
	fi := NewFileImporter(newTestImporter(testConfig()))
	ctx := context.Background()
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o600))
		return p
	}

	archive, err := NewExporter(reg, nil, testConfig()).Export(ctx, sampleSet(), codec.FormatBSON)
	require.NoError(t, err)
	// Stored paths carry no extension, the way multipart uploads land on disk.
	zipPath := write("upload-1", archive)
	jsonPath := write("upload-2", []byte(`[{"sku":"A-1"}]`))

	t.Run("zip delegates to the archive importer", func(t *testing.T) {
		set, err := fi.ImportFile(ctx, zipPath, "orders.zip")
		require.NoError(t, err)
		assert.Equal(t, sampleSet(), set)
	})

	t.Run("single json file", func(t *testing.T) {
		set, err := fi.ImportFile(ctx, jsonPath, "orders.json")
		require.NoError(t, err)
		assert.Equal(t, collection.Set{"orders": {{"sku": "A-1"}}}, set)
	})

	t.Run("no extension", func(t *testing.T) {
		_, err := fi.ImportFile(ctx, jsonPath, "orders")
		assert.ErrorIs(t, err, ErrNoExtension)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := fi.ImportFile(ctx, jsonPath, "orders.xml")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := fi.ImportFile(ctx, filepath.Join(dir, "nope"), "orders.json")
		assert.ErrorIs(t, err, ErrRead)
	})

	t.Run("undecodable file", func(t *testing.T) {
		_, err := fi.ImportBytes(ctx, []byte("[{"), "orders.json")
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Zero(t, cfg.MaxConcurrency)
	assert.NotNil(t, cfg.Open)
	assert.NoError(t, cfg.Validate())

	bad := Config{Retries: -1, RetryDelay: -time.Second, CompressionLevel: 12}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
	assert.Contains(t, err.Error(), "compression level")
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, base, ext string
		ok            bool
	}{
		{"users.json", "users", "json", true},
		{"a.b.csv", "a.b", "csv", true},
		{"dir/users.bson", "dir/users", "bson", true},
		{"USERS.JSON", "USERS", "JSON", true},
		{".DS_Store", "", "DS_Store", false},
		{".gitignore", "", "gitignore", false},
		{"README", "", "", false},
		{"dir/", "", "", false},
		{"users.", "", "", false},
		{"users.tar-gz", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, ext, ok := splitName(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.base, base)
				assert.Equal(t, tt.ext, ext)
			}
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "none", Kind(nil))
	assert.Equal(t, "decode", Kind(errors.Join(errors.New("x"), ErrDecode)))
	assert.Equal(t, "other", Kind(errors.New("x")))
}

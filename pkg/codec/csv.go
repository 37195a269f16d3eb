package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ssargent/docport/pkg/collection"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// blankRow stands for a row with no values. encoding/csv skips empty lines.
const blankRow = "\"\"\n"

// CSVCodec writes a collection as a header row plus one row per document.
type CSVCodec struct{}

// NewCSVCodec creates the codec registered under FormatCSV.
func NewCSVCodec() *CSVCodec {
	return &CSVCodec{}
}

// Format returns FormatCSV.
func (c *CSVCodec) Format() Format {
	return FormatCSV
}

// Encode writes a header of every top-level key, sorted, then one row per
// document. An empty collection encodes to no bytes.
//
// A row that would otherwise be a blank line is written as a single quoted
// empty field so it survives a read. When no document has any field the
// header is written the same way.
func (c *CSVCodec) Encode(docs collection.Collection) ([]byte, error) {
	if len(docs) == 0 {
		return []byte{}, nil
	}

	columns := csvColumns(docs)
	for _, col := range columns {
		if col == "" {
			return nil, fmt.Errorf("csv: empty field name")
		}
	}

	var buf bytes.Buffer
	if len(columns) == 0 {
		for range len(docs) + 1 {
			buf.WriteString(blankRow)
		}
		return buf.Bytes(), nil
	}

	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("csv: header: %w", err)
	}

	row := make([]string, len(columns))
	for i, doc := range docs {
		for j, col := range columns {
			v, ok := doc[col]
			if !ok {
				row[j] = ""
				continue
			}
			cell, err := encodeCell(v)
			if err != nil {
				return nil, fmt.Errorf("csv: document %d field %q: %w", i, col, err)
			}
			row[j] = cell
		}
		if len(row) == 1 && row[0] == "" {
			w.Flush()
			if err := w.Error(); err != nil {
				return nil, fmt.Errorf("csv: document %d: %w", i, err)
			}
			buf.WriteString(blankRow)
			continue
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv: document %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a header row and turns each following row into a document.
// A leading UTF-8 BOM is dropped and invalid UTF-8 is replaced.
func (c *CSVCodec) Decode(data []byte) (collection.Collection, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.ToValidUTF8(data, []byte("\uFFFD"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	docs := collection.Collection{}
	if len(records) == 0 {
		return docs, nil
	}

	header := records[0]
	if len(header) == 1 && header[0] == "" {
		return decodeFieldless(records[1:])
	}

	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if name == "" {
			return nil, fmt.Errorf("csv: empty column name in header")
		}
		if seen[name] {
			return nil, fmt.Errorf("csv: duplicate column %q in header", name)
		}
		seen[name] = true
	}

	for i, record := range records[1:] {
		line := i + 2
		if len(record) > len(header) {
			return nil, fmt.Errorf("csv: line %d: expected at most %d fields, got %d", line, len(header), len(record))
		}
		doc := make(collection.Document, len(record))
		for j, cell := range record {
			if cell == "" {
				continue
			}
			doc[header[j]] = decodeCell(cell)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// decodeFieldless reads the rows under a blank header. Each must be blank
// and becomes an empty document.
func decodeFieldless(records [][]string) (collection.Collection, error) {
	docs := make(collection.Collection, 0, len(records))
	for i, record := range records {
		for _, cell := range record {
			if cell != "" {
				return nil, fmt.Errorf("csv: line %d: value under a header with no columns", i+2)
			}
		}
		docs = append(docs, collection.Document{})
	}
	return docs, nil
}

// csvColumns returns the sorted union of top-level keys.
func csvColumns(docs collection.Collection) []string {
	set := make(map[string]struct{})
	for _, doc := range docs {
		for k := range doc {
			set[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(set))
	for k := range set {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

// encodeCell writes strings verbatim unless they would read back as JSON or
// as an absent field. Everything else becomes JSON text.
func encodeCell(v any) (string, error) {
	if s, ok := v.(string); ok {
		if s != "" && !json.Valid([]byte(s)) {
			return s, nil
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeCell(cell string) any {
	if !json.Valid([]byte(cell)) {
		return cell
	}
	v, err := decodeValue([]byte(cell))
	if err != nil {
		return cell
	}
	return v
}

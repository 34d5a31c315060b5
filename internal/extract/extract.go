// Package extract turns uploaded files into text chunks, dispatching on the
// file extension.
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"crerag/internal/domain"
	"crerag/internal/listing"
)

// Extractor converts file bytes to chunks. Prose formats go through the
// configured chunker; structured formats yield one chunk per record.
type Extractor struct {
	chunker domain.Chunker
	pdf     *PDFReader
}

// New creates an extractor. pdf may be nil to disable PDF support.
func New(chunker domain.Chunker, pdf *PDFReader) *Extractor {
	return &Extractor{chunker: chunker, pdf: pdf}
}

// SupportedExtensions lists the extensions Extract understands.
func SupportedExtensions() []string {
	return []string{".csv", ".docx", ".json", ".md", ".pdf", ".txt"}
}

// Supported reports whether filename has an extension Extract understands.
func Supported(filename string) bool {
	return slices.Contains(SupportedExtensions(), strings.ToLower(filepath.Ext(filename)))
}

// Extract returns the chunks for one file. Every failure is an
// *domain.ExtractionError naming the file. ctx bounds the PDF converter.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) ([]string, error) {
	chunks, err := e.extract(ctx, filename, data)
	if err == nil && len(chunks) == 0 {
		err = domain.ErrNoContent
	}
	if err != nil {
		return nil, &domain.ExtractionError{Filename: filename, Err: err}
	}
	return chunks, nil
}

func (e *Extractor) extract(ctx context.Context, filename string, data []byte) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt", ".md":
		return e.chunker.Chunk(decodeText(data)), nil
	case ".csv":
		return csvChunks(decodeText(data))
	case ".json":
		return jsonChunks(data)
	case ".docx":
		text, err := docxText(data)
		if err != nil {
			return nil, err
		}
		return e.chunker.Chunk(text), nil
	case ".pdf":
		if e.pdf == nil {
			return nil, fmt.Errorf("%w: pdf support disabled", domain.ErrUnsupportedFormat)
		}
		text, err := e.pdf.Text(ctx, data)
		if err != nil {
			return nil, err
		}
		return e.chunker.Chunk(text), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}
}

// decodeText returns UTF-8 text, falling back to Windows-1252 for legacy
// exports that are not valid UTF-8.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

// csvChunks renders listing exports with the listing template and any other
// CSV as one JSON object per row.
func csvChunks(text string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}
	header, rows := records[0], records[1:]

	if listing.IsListingHeader(header) {
		listings := listing.FromRecords(header, rows)
		out := make([]string, len(listings))
		for i, l := range listings {
			out[i] = listing.Format(l)
		}
		return out, nil
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(header))
		empty := true
		for i, h := range header {
			if i < len(row) {
				obj[h] = row[i]
				if strings.TrimSpace(row[i]) != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}

var errJSONShape = errors.New("json must be an object or an array")

// jsonChunks yields one compact JSON string per array entry, or the whole
// document for an object.
func jsonChunks(data []byte) ([]string, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) == 0 {
		return nil, nil
	}
	switch data[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
		out := make([]string, 0, len(entries))
		for _, entry := range entries {
			var buf bytes.Buffer
			if err := json.Compact(&buf, entry); err != nil {
				return nil, err
			}
			out = append(out, buf.String())
		}
		return out, nil
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
		return []string{buf.String()}, nil
	default:
		return nil, errJSONShape
	}
}

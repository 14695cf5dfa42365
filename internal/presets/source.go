package presets

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/goccy/go-json"
)

// Entry is one undecoded preset of a document
type Entry struct {
	ID  string
	Raw json.RawMessage
}

// Document is the decoded root of a presets file: preset ids mapped to raw
// preset objects, in the order the ids appear in the file
type Document struct {
	entries []Entry
	index   map[string]int
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{index: make(map[string]int)}
}

// Add appends an entry. A repeated id replaces the earlier value but keeps
// its position.
func (d *Document) Add(id string, raw json.RawMessage) {
	if i, ok := d.index[id]; ok {
		d.entries[i].Raw = raw
		return
	}
	d.index[id] = len(d.entries)
	d.entries = append(d.entries, Entry{ID: id, Raw: raw})
}

// Len returns the number of distinct ids. A nil document is empty.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns the entries in document order. The slice must not be
// modified.
func (d *Document) Entries() []Entry {
	if d == nil {
		return nil
	}
	return d.entries
}

// DecodeDocument reads a presets document from r. The top level must be a
// single JSON object; anything else is an error wrapping
// ErrMalformedDocument.
func DecodeDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets document: %w", err)
	}
	return decodeBytes(data)
}

// decodeBytes validates data as a whole before walking it; the token stream
// alone does not check the separators between keys and values.
func decodeBytes(data []byte) (*Document, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedDocument)
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedDocument)
	}

	doc := NewDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrMalformedDocument, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: preset %q: %w", ErrMalformedDocument, id, err)
		}
		doc.Add(id, bytes.Clone(raw))
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after top level object", ErrMalformedDocument)
	}
	return doc, nil
}

// ReadDocument loads a presets document from disk. Plain files are memory
// mapped; files ending in .gz are streamed through gzip.
func ReadDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presets file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		return DecodeDocument(gz)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat presets file: %w", err)
	}
	// mmap refuses zero-length mappings
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedDocument)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap presets file: %w", err)
	}
	defer m.Unmap()

	return decodeBytes(m)
}

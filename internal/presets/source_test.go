package presets

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocumentKeepsKeyOrder(t *testing.T) {
	doc := mustDecode(t, `{"z":{"a":1},"a":{},"m":[1,2]}`)
	require.Equal(t, 3, doc.Len())

	var got []string
	for _, e := range doc.Entries() {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, got)
	assert.JSONEq(t, `{"a":1}`, string(doc.Entries()[0].Raw))
}

func TestDecodeDocumentDuplicateIDs(t *testing.T) {
	doc := mustDecode(t, `{"a":{"v":1},"b":{},"a":{"v":2}}`)
	require.Equal(t, 2, doc.Len())
	assert.Equal(t, "a", doc.Entries()[0].ID)
	assert.JSONEq(t, `{"v":2}`, string(doc.Entries()[0].Raw))
}

func TestDecodeDocumentMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ``},
		{"array root", `[{"tags":{}}]`},
		{"string root", `"presets"`},
		{"truncated", `{"a":{"tags":`},
		{"unterminated object", `{"a":{}`},
		{"trailing data", `{} {}`},
		{"missing colon", `{"a" {"tags":{}}}`},
		{"missing comma", `{"a":{"tags":{}} "b":{"tags":{}}}`},
		{"comma instead of colon", `{"a",{"tags":{}}}`},
		{"colon instead of comma", `{"a":{"tags":{}}:"b":{"tags":{}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDocument(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrMalformedDocument)
		})
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	content := `{"shop/bakery":{"tags":{"shop":"bakery"},"geometry":["point"],"name":"Bakery"}}`

	plain := filepath.Join(dir, "presets.json")
	require.NoError(t, os.WriteFile(plain, []byte(content), 0644))

	compressed := filepath.Join(dir, "presets.json.gz")
	f, err := os.Create(compressed)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, compressed} {
		doc, err := ReadDocument(path)
		require.NoError(t, err, path)
		features := Parse(doc)
		require.Len(t, features, 1, path)
		assert.Equal(t, "shop/bakery", features[0].ID())
	}
}

func TestReadDocumentBadSeparators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	content := `{"shop/bakery" {"tags":{"shop":"bakery"},"geometry":["point"],"name":"Bakery"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := ReadDocument(path)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestReadDocumentEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := ReadDocument(path)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestReadDocumentMissingFile(t *testing.T) {
	_, err := ReadDocument(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedDocument)
}

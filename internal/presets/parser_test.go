package presets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, doc string) *Document {
	t.Helper()
	d, err := DecodeDocument(strings.NewReader(doc))
	require.NoError(t, err)
	return d
}

func ids(features []*Feature) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = f.ID()
	}
	return out
}

func parseOne(t *testing.T, raw string) Outcome {
	t.Helper()
	return ParseEntry("test", json.RawMessage(raw))
}

func TestParseEntryMinimal(t *testing.T) {
	o := parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point","area"],"name":"Bakery"}`)
	require.False(t, o.Rejected(), "unexpected rejection: %v", o.Reason)
	f := o.Feature

	assert.Equal(t, "test", f.ID())
	assert.Equal(t, "Bakery", f.Name())
	assert.Equal(t, map[string]string{"shop": "bakery"}, f.Tags())
	assert.Equal(t, []Geometry{GeometryPoint, GeometryArea}, f.Geometries())
	assert.Equal(t, "", f.Icon())
	assert.Equal(t, "", f.ImageURL())
	assert.Empty(t, f.Terms())
	assert.Empty(t, f.IncludeCountryCodes())
	assert.Empty(t, f.ExcludeCountryCodes())
	assert.True(t, f.Searchable())
	assert.Equal(t, 1.0, f.MatchScore())
	assert.False(t, f.Suggestion())
}

func TestParseEntryAllFields(t *testing.T) {
	o := parseOne(t, `{
		"tags": {"amenity": "bench"},
		"geometry": ["Vertex", "LINE", "relation"],
		"name": "Bench",
		"icon": "temaki-bench",
		"imageURL": "https://example.org/bench.jpg",
		"terms": ["seat", "chair"],
		"suggestion": true,
		"searchable": false,
		"matchScore": 0.5,
		"locationSet": {"include": ["de", "AT"], "exclude": ["ch"]},
		"addTags": {"amenity": "bench", "backrest": "yes"},
		"removeTags": {"amenity": "bench"}
	}`)
	require.False(t, o.Rejected(), "unexpected rejection: %v", o.Reason)
	f := o.Feature

	assert.Equal(t, []Geometry{GeometryVertex, GeometryLine, GeometryRelation}, f.Geometries())
	assert.Equal(t, "temaki-bench", f.Icon())
	assert.Equal(t, "https://example.org/bench.jpg", f.ImageURL())
	assert.Equal(t, []string{"seat", "chair"}, f.Terms())
	assert.True(t, f.Suggestion())
	assert.False(t, f.Searchable())
	assert.Equal(t, 0.5, f.MatchScore())
	assert.Equal(t, []string{"DE", "AT"}, f.IncludeCountryCodes())
	assert.Equal(t, []string{"CH"}, f.ExcludeCountryCodes())
	assert.Equal(t, map[string]string{"amenity": "bench", "backrest": "yes"}, f.AddTags())
	assert.Equal(t, map[string]string{"amenity": "bench"}, f.RemoveTags())
}

func TestParseEntryRejections(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason error
	}{
		{"wildcard value", `{"tags":{"shop":"*"},"geometry":["point"],"name":"Shop"}`, ErrWildcardTag},
		{"wildcard key", `{"tags":{"addr:*":"x"},"geometry":["point"],"name":"Address"}`, ErrWildcardTag},
		{"empty tags", `{"tags":{},"geometry":["point"],"name":"Point"}`, ErrEmptyTags},
		{"missing tags", `{"geometry":["point"],"name":"Point"}`, ErrMissingField},
		{"tags not an object", `{"tags":["shop"],"geometry":["point"],"name":"Shop"}`, ErrWrongType},
		{"tag value not a string", `{"tags":{"level":1},"geometry":["point"],"name":"Level"}`, ErrWrongType},
		{"missing geometry", `{"tags":{"shop":"bakery"},"name":"Bakery"}`, ErrMissingField},
		{"unknown geometry", `{"tags":{"shop":"bakery"},"geometry":["point","polygon"],"name":"Bakery"}`, ErrUnknownGeometry},
		{"missing name", `{"tags":{"shop":"bakery"},"geometry":["point"]}`, ErrMissingField},
		{"null name", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":null}`, ErrMissingField},
		{"name not a string", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":42}`, ErrWrongType},
		{"region include", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"include":["150"]}}`, ErrUnsupportedLocation},
		{"geojson include", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"include":["de","bank_fl.geojson"]}}`, ErrUnsupportedLocation},
		{"single letter include", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"include":["d"]}}`, ErrUnsupportedLocation},
		{"empty code exclude", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"exclude":[""]}}`, ErrUnsupportedLocation},
		{"region exclude", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"exclude":["001"]}}`, ErrUnsupportedLocation},
		{"point include", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"include":[[8.5,47.3]]}}`, ErrWrongType},
		{"matchScore not a number", `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","matchScore":"high"}`, ErrWrongType},
		{"entry not an object", `["shop"]`, ErrWrongType},
		{"entry null", `null`, ErrWrongType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := parseOne(t, tt.raw)
			require.True(t, o.Rejected())
			assert.Nil(t, o.Feature)
			assert.True(t, errors.Is(o.Reason, tt.reason), "reason %v, want %v", o.Reason, tt.reason)
		})
	}
}

func TestParseEntryWorldwideIncludeIsDropped(t *testing.T) {
	o := parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"include":["001","de"]}}`)
	require.False(t, o.Rejected(), "unexpected rejection: %v", o.Reason)
	assert.Equal(t, []string{"DE"}, o.Feature.IncludeCountryCodes())

	o = parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"include":["001","at","001"]}}`)
	require.False(t, o.Rejected(), "unexpected rejection: %v", o.Reason)
	assert.Equal(t, []string{"AT"}, o.Feature.IncludeCountryCodes())

	o = parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"B","locationSet":{"include":["001"]}}`)
	require.False(t, o.Rejected(), "unexpected rejection: %v", o.Reason)
	assert.Empty(t, o.Feature.IncludeCountryCodes())
}

func TestParseEntryTagFallbacks(t *testing.T) {
	t.Run("both absent", func(t *testing.T) {
		o := parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"Bakery"}`)
		require.False(t, o.Rejected())
		tags := map[string]string{"shop": "bakery"}
		assert.Equal(t, tags, o.Feature.AddTags())
		assert.Equal(t, tags, o.Feature.RemoveTags())
	})

	t.Run("removeTags falls back to addTags", func(t *testing.T) {
		o := parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"Bakery","addTags":{"shop":"bakery","bakery":"yes"}}`)
		require.False(t, o.Rejected())
		added := map[string]string{"shop": "bakery", "bakery": "yes"}
		assert.Equal(t, added, o.Feature.AddTags())
		assert.Equal(t, added, o.Feature.RemoveTags())
	})

	t.Run("explicitly empty addTags counts as present", func(t *testing.T) {
		o := parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"Bakery","addTags":{}}`)
		require.False(t, o.Rejected())
		assert.Empty(t, o.Feature.AddTags())
		assert.Empty(t, o.Feature.RemoveTags())
	})

	t.Run("removeTags only", func(t *testing.T) {
		o := parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"Bakery","removeTags":{"shop":"bakery","bakery":"yes"}}`)
		require.False(t, o.Rejected())
		assert.Equal(t, map[string]string{"shop": "bakery"}, o.Feature.AddTags())
		assert.Equal(t, map[string]string{"shop": "bakery", "bakery": "yes"}, o.Feature.RemoveTags())
	})
}

func TestFeatureIsImmutable(t *testing.T) {
	o := parseOne(t, `{"tags":{"shop":"bakery"},"geometry":["point"],"name":"Bakery","terms":["bread"],"locationSet":{"include":["de"]}}`)
	require.False(t, o.Rejected())
	f := o.Feature

	f.Tags()["shop"] = "butcher"
	f.AddTags()["extra"] = "yes"
	f.Terms()[0] = "cake"
	f.Geometries()[0] = GeometryArea
	f.IncludeCountryCodes()[0] = "FR"

	assert.Equal(t, map[string]string{"shop": "bakery"}, f.Tags())
	assert.Equal(t, map[string]string{"shop": "bakery"}, f.AddTags())
	assert.Equal(t, map[string]string{"shop": "bakery"}, f.RemoveTags())
	assert.Equal(t, []string{"bread"}, f.Terms())
	assert.Equal(t, []Geometry{GeometryPoint}, f.Geometries())
	assert.Equal(t, []string{"DE"}, f.IncludeCountryCodes())
}

const mixedDocument = `{
	"shop/bakery": {"tags":{"shop":"bakery"},"geometry":["point","area"],"name":"Bakery"},
	"shop": {"tags":{"shop":"*"},"geometry":["point","area"],"name":"Shop"},
	"point": {"tags":{},"geometry":["point"],"name":"Point"},
	"shop/nameless": {"tags":{"shop":"nameless"},"geometry":["point"]},
	"amenity/bench": {"tags":{"amenity":"bench"},"geometry":["point","line"],"name":"Bench"},
	"shop/regional": {"tags":{"shop":"regional"},"geometry":["point"],"name":"R","locationSet":{"include":["150"]}},
	"highway/bus_stop": {"tags":{"highway":"bus_stop"},"geometry":["point","vertex"],"name":"Bus Stop"}
}`

func TestParseKeepsValidEntriesInOrder(t *testing.T) {
	features := Parse(mustDecode(t, mixedDocument))
	assert.Equal(t, []string{"shop/bakery", "amenity/bench", "highway/bus_stop"}, ids(features))
}

func TestParseEmptyDocument(t *testing.T) {
	features := Parse(mustDecode(t, `{}`))
	assert.NotNil(t, features)
	assert.Empty(t, features)
}

func TestParseNilDocument(t *testing.T) {
	assert.Empty(t, Parse(nil))
	assert.Empty(t, ParseOutcomes(nil))

	outcomes, err := ParseParallel(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestCollectStats(t *testing.T) {
	features, stats := Collect(ParseOutcomes(mustDecode(t, mixedDocument)))
	assert.Len(t, features, 3)
	assert.Equal(t, Stats{Entries: 7, Parsed: 3, Structural: 1, Policy: 3}, stats)
	assert.Equal(t, int64(4), stats.Rejected())
}

func TestParseParallelMatchesParse(t *testing.T) {
	doc := mustDecode(t, mixedDocument)
	for _, workers := range []int{0, 1, 3, 16} {
		outcomes, err := ParseParallel(context.Background(), doc, workers)
		require.NoError(t, err)
		features, _ := Collect(outcomes)
		assert.Equal(t, ids(Parse(doc)), ids(features), "workers=%d", workers)
	}
}

func TestParseParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParseParallel(ctx, mustDecode(t, mixedDocument), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseGeometry(t *testing.T) {
	for _, s := range []string{"point", "POINT", "Point"} {
		g, err := ParseGeometry(s)
		require.NoError(t, err)
		assert.Equal(t, GeometryPoint, g)
	}
	_, err := ParseGeometry("multipolygon")
	assert.ErrorIs(t, err, ErrUnknownGeometry)
	assert.Equal(t, "RELATION", GeometryRelation.String())
}

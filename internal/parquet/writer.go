package parquet

import (
	"errors"
	"os"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/goccy/go-json"
	"github.com/paulmach/osm"

	"github.com/wegman-software/osmpresets-go/internal/presets"
)

// Column indexes of the feature schema
const (
	colID = iota
	colName
	colTags
	colGeometry
	colIcon
	colImageURL
	colTerms
	colIncludeCountries
	colExcludeCountries
	colSearchable
	colMatchScore
	colSuggestion
	colAddTags
	colRemoveTags
)

// FeatureSchema is the Arrow schema of a preset catalog file
var FeatureSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "tags", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "geometry", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
	{Name: "icon", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "image_url", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "terms", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
	{Name: "include_countries", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
	{Name: "exclude_countries", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
	{Name: "searchable", Type: arrow.FixedWidthTypes.Boolean, Nullable: false},
	{Name: "match_score", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
	{Name: "suggestion", Type: arrow.FixedWidthTypes.Boolean, Nullable: false},
	{Name: "add_tags", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "remove_tags", Type: arrow.BinaryTypes.String, Nullable: false},
}, nil)

// TagsToJSON converts OSM tags to a JSON object string
func TagsToJSON(tags osm.Tags) string {
	if len(tags) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(tags.Map())
	return string(b)
}

// GeometryNames returns the lower-case geometry names of a feature
func GeometryNames(f *presets.Feature) []string {
	geoms := f.Geometries()
	names := make([]string, len(geoms))
	for i, g := range geoms {
		names[i] = strings.ToLower(g.String())
	}
	return names
}

// FeatureWriter writes preset features to a Parquet file
type FeatureWriter struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	batchSize int
	count     int
	total     int64
}

// NewFeatureWriter creates a new feature Parquet writer
func NewFeatureWriter(path string, batchSize int) (*FeatureWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(true),
	)

	writer, err := pqarrow.NewFileWriter(FeatureSchema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, err
	}

	if batchSize < 1 {
		batchSize = 10000
	}

	return &FeatureWriter{
		file:      f,
		writer:    writer,
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, FeatureSchema),
		batchSize: batchSize,
	}, nil
}

// Write appends one feature
func (w *FeatureWriter) Write(f *presets.Feature) error {
	b := w.builder
	b.Field(colID).(*array.StringBuilder).Append(f.ID())
	b.Field(colName).(*array.StringBuilder).Append(f.Name())
	b.Field(colTags).(*array.StringBuilder).Append(TagsToJSON(f.TagsOSM()))
	appendList(b.Field(colGeometry), GeometryNames(f))
	b.Field(colIcon).(*array.StringBuilder).Append(f.Icon())
	b.Field(colImageURL).(*array.StringBuilder).Append(f.ImageURL())
	appendList(b.Field(colTerms), f.Terms())
	appendList(b.Field(colIncludeCountries), f.IncludeCountryCodes())
	appendList(b.Field(colExcludeCountries), f.ExcludeCountryCodes())
	b.Field(colSearchable).(*array.BooleanBuilder).Append(f.Searchable())
	b.Field(colMatchScore).(*array.Float64Builder).Append(f.MatchScore())
	b.Field(colSuggestion).(*array.BooleanBuilder).Append(f.Suggestion())
	b.Field(colAddTags).(*array.StringBuilder).Append(TagsToJSON(f.AddTagsOSM()))
	b.Field(colRemoveTags).(*array.StringBuilder).Append(TagsToJSON(f.RemoveTagsOSM()))

	w.count++
	w.total++
	if w.count >= w.batchSize {
		return w.flush()
	}
	return nil
}

func appendList(b array.Builder, values []string) {
	lb := b.(*array.ListBuilder)
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.StringBuilder)
	for _, v := range values {
		vb.Append(v)
	}
}

func (w *FeatureWriter) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return err
}

// Count returns the number of features written so far
func (w *FeatureWriter) Count() int64 {
	return w.total
}

// Close flushes pending rows and closes the file. Every failure along the
// way is reported, not only the first.
func (w *FeatureWriter) Close() error {
	defer w.builder.Release()
	flushErr := w.flush()
	writerErr := w.writer.Close()
	// The parquet writer may already have closed the file
	fileErr := w.file.Close()
	if errors.Is(fileErr, os.ErrClosed) {
		fileErr = nil
	}
	return errors.Join(flushErr, writerErr, fileErr)
}

// WriteCatalog writes every feature of c to path
func WriteCatalog(path string, c *presets.Catalog, batchSize int) (int64, error) {
	w, err := NewFeatureWriter(path, batchSize)
	if err != nil {
		return 0, err
	}
	return writeFeatures(w, c.Features())
}

// writeFeatures writes features and closes w
func writeFeatures(w *FeatureWriter, features []*presets.Feature) (int64, error) {
	for _, f := range features {
		if err := w.Write(f); err != nil {
			return 0, errors.Join(err, w.Close())
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Count(), nil
}

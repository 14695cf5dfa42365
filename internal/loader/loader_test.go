package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/osmpresets-go/internal/presets"
)

func TestFeatureSource(t *testing.T) {
	doc, err := presets.DecodeDocument(strings.NewReader(`{
		"shop/bakery": {"tags":{"shop":"bakery"},"geometry":["point","area"],"name":"Bakery","locationSet":{"include":["de"]}},
		"amenity/bench": {"tags":{"amenity":"bench"},"geometry":["point"],"name":"Bench","removeTags":{"amenity":"bench","backrest":"yes"}}
	}`))
	require.NoError(t, err)

	src := newFeatureSource(presets.Parse(doc))
	var rows [][]interface{}
	for src.Next() {
		row, err := src.Values()
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.NoError(t, src.Err())

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Len(t, row, len(copyColumns))
	}

	assert.Equal(t, "shop/bakery", rows[0][0])
	assert.Equal(t, []string{"point", "area"}, rows[0][3])
	assert.Equal(t, []string{"DE"}, rows[0][7])
	assert.Equal(t, `{"amenity":"bench"}`, rows[1][12])
	assert.Equal(t, `{"amenity":"bench","backrest":"yes"}`, rows[1][13])
}

func TestSQLUsesQualifiedTable(t *testing.T) {
	assert.Contains(t, createTableSQL("osm.presets"), "CREATE TABLE IF NOT EXISTS osm.presets")

	sql := insertSQL("osm.presets")
	assert.Contains(t, sql, "INSERT INTO osm.presets")
	assert.Contains(t, sql, "FROM "+tempTable)
}

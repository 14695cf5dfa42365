package presets

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/paulmach/osm"
)

// Geometry is a spatial representation a preset may be applied to
type Geometry int

const (
	GeometryPoint Geometry = iota
	GeometryVertex
	GeometryLine
	GeometryArea
	GeometryRelation
)

var geometryNames = [...]string{
	GeometryPoint:    "POINT",
	GeometryVertex:   "VERTEX",
	GeometryLine:     "LINE",
	GeometryArea:     "AREA",
	GeometryRelation: "RELATION",
}

// String returns the upper-case geometry name as used in the enum
func (g Geometry) String() string {
	if g < 0 || int(g) >= len(geometryNames) {
		return fmt.Sprintf("Geometry(%d)", int(g))
	}
	return geometryNames[g]
}

// ParseGeometry matches a geometry name case-insensitively
func ParseGeometry(s string) (Geometry, error) {
	upper := strings.ToUpper(s)
	for i, name := range geometryNames {
		if name == upper {
			return Geometry(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGeometry, s)
}

// Feature is a validated preset. It cannot be modified after the parser
// builds it: every accessor returns a copy.
type Feature struct {
	id                  string
	tags                map[string]string
	geometries          []Geometry
	name                string
	icon                string
	imageURL            string
	terms               []string
	includeCountryCodes []string
	excludeCountryCodes []string
	searchable          bool
	matchScore          float64
	suggestion          bool
	addTags             map[string]string
	removeTags          map[string]string
}

func (f *Feature) ID() string                    { return f.id }
func (f *Feature) Name() string                  { return f.name }
func (f *Feature) Icon() string                  { return f.icon }
func (f *Feature) ImageURL() string              { return f.imageURL }
func (f *Feature) Searchable() bool              { return f.searchable }
func (f *Feature) MatchScore() float64           { return f.matchScore }
func (f *Feature) Suggestion() bool              { return f.suggestion }
func (f *Feature) Tags() map[string]string       { return maps.Clone(f.tags) }
func (f *Feature) AddTags() map[string]string    { return maps.Clone(f.addTags) }
func (f *Feature) RemoveTags() map[string]string { return maps.Clone(f.removeTags) }
func (f *Feature) Geometries() []Geometry        { return slices.Clone(f.geometries) }
func (f *Feature) Terms() []string               { return slices.Clone(f.terms) }
func (f *Feature) IncludeCountryCodes() []string { return slices.Clone(f.includeCountryCodes) }
func (f *Feature) ExcludeCountryCodes() []string { return slices.Clone(f.excludeCountryCodes) }

// Tag returns the value of a matching tag
func (f *Feature) Tag(key string) (string, bool) {
	v, ok := f.tags[key]
	return v, ok
}

// HasGeometry reports whether the preset applies to the given geometry
func (f *Feature) HasGeometry(g Geometry) bool {
	return slices.Contains(f.geometries, g)
}

// IsAvailableIn reports whether the preset applies in the given country.
// An empty include list means everywhere not explicitly excluded.
func (f *Feature) IsAvailableIn(countryCode string) bool {
	cc := strings.ToUpper(countryCode)
	if slices.Contains(f.excludeCountryCodes, cc) {
		return false
	}
	return len(f.includeCountryCodes) == 0 || slices.Contains(f.includeCountryCodes, cc)
}

// TagsOSM returns the matching tags as key-sorted osm.Tags
func (f *Feature) TagsOSM() osm.Tags { return toOSMTags(f.tags) }

// AddTagsOSM returns the tags applied on selection as key-sorted osm.Tags
func (f *Feature) AddTagsOSM() osm.Tags { return toOSMTags(f.addTags) }

// RemoveTagsOSM returns the tags removed on deselection as key-sorted osm.Tags
func (f *Feature) RemoveTagsOSM() osm.Tags { return toOSMTags(f.removeTags) }

func toOSMTags(m map[string]string) osm.Tags {
	tags := make(osm.Tags, 0, len(m))
	for k, v := range m {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	return tags
}

// featureJSON is the serialised form of a Feature
type featureJSON struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Tags                map[string]string `json:"tags"`
	Geometry            []string          `json:"geometry"`
	Icon                string            `json:"icon,omitempty"`
	ImageURL            string            `json:"imageURL,omitempty"`
	Terms               []string          `json:"terms,omitempty"`
	IncludeCountryCodes []string          `json:"includeCountryCodes,omitempty"`
	ExcludeCountryCodes []string          `json:"excludeCountryCodes,omitempty"`
	Searchable          bool              `json:"searchable"`
	MatchScore          float64           `json:"matchScore"`
	Suggestion          bool              `json:"suggestion"`
	AddTags             map[string]string `json:"addTags"`
	RemoveTags          map[string]string `json:"removeTags"`
}

// MarshalJSON encodes the resolved record, including defaulted fields
func (f *Feature) MarshalJSON() ([]byte, error) {
	geoms := make([]string, len(f.geometries))
	for i, g := range f.geometries {
		geoms[i] = strings.ToLower(g.String())
	}
	return json.Marshal(featureJSON{
		ID:                  f.id,
		Name:                f.name,
		Tags:                f.tags,
		Geometry:            geoms,
		Icon:                f.icon,
		ImageURL:            f.imageURL,
		Terms:               f.terms,
		IncludeCountryCodes: f.includeCountryCodes,
		ExcludeCountryCodes: f.excludeCountryCodes,
		Searchable:          f.searchable,
		MatchScore:          f.matchScore,
		Suggestion:          f.suggestion,
		AddTags:             f.addTags,
		RemoveTags:          f.removeTags,
	})
}

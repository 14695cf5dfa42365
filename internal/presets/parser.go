package presets

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// worldwide is the location code meaning "everywhere"; it restricts nothing
const worldwide = "001"

// Outcome is the result of parsing a single preset entry: either a parsed
// Feature or a rejection with its reason. Callers of Parse only ever see
// parsed features; the reason exists for diagnostics.
type Outcome struct {
	ID      string
	Feature *Feature
	Reason  error
}

// Rejected reports whether the entry was dropped
func (o Outcome) Rejected() bool {
	return o.Feature == nil
}

// Stats counts parse outcomes
type Stats struct {
	Entries    int64
	Parsed     int64
	Structural int64 // missing fields, wrong types, unknown geometries
	Policy     int64 // wildcard tags, empty tags, unsupported location codes
}

// Rejected returns the total number of dropped entries
func (s Stats) Rejected() int64 {
	return s.Structural + s.Policy
}

func (s *Stats) add(o Outcome) {
	s.Entries++
	switch {
	case !o.Rejected():
		s.Parsed++
	case IsPolicyRejection(o.Reason):
		s.Policy++
	default:
		s.Structural++
	}
}

// Parse parses every entry of doc in document order and returns the
// features that passed validation. Bad entries are omitted.
func Parse(doc *Document) []*Feature {
	features, _ := Collect(ParseOutcomes(doc))
	return features
}

// ParseOutcomes parses every entry of doc in document order
func ParseOutcomes(doc *Document) []Outcome {
	outcomes := make([]Outcome, doc.Len())
	for i, e := range doc.Entries() {
		outcomes[i] = ParseEntry(e.ID, e.Raw)
	}
	return outcomes
}

// ParseParallel is ParseOutcomes with the entries spread over a pool of
// workers. The returned order is document order regardless of scheduling.
// The only error is cancellation of ctx.
func ParseParallel(ctx context.Context, doc *Document, workers int) ([]Outcome, error) {
	if workers < 1 {
		workers = 1
	}
	entries := doc.Entries()
	outcomes := make([]Outcome, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		if ctx.Err() != nil {
			break
		}
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = ParseEntry(e.ID, e.Raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Collect folds outcomes into the parsed features, in order, and the stats
func Collect(outcomes []Outcome) ([]*Feature, Stats) {
	var stats Stats
	features := make([]*Feature, 0, len(outcomes))
	for _, o := range outcomes {
		stats.add(o)
		if !o.Rejected() {
			features = append(features, o.Feature)
		}
	}
	return features, stats
}

// ParseEntry converts one raw preset object into a Feature. It never
// panics and never returns an error; a failure is reported as a rejected
// Outcome.
func ParseEntry(id string, raw json.RawMessage) Outcome {
	f, err := parseFeature(id, raw)
	if err != nil {
		return Outcome{ID: id, Reason: err}
	}
	return Outcome{ID: id, Feature: f}
}

func parseFeature(id string, raw json.RawMessage) (*Feature, error) {
	p, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	tags, err := p.requiredStringMap("tags")
	if err != nil {
		return nil, err
	}
	// Wildcard presets describe a category of things, not a concrete thing
	if anyKeyOrValueContainsWildcard(tags) {
		return nil, ErrWildcardTag
	}
	// Empty tags would be the generic point/line/relation presets
	if len(tags) == 0 {
		return nil, ErrEmptyTags
	}

	geometries, err := requiredList(p, "geometry", func(item json.RawMessage) (Geometry, error) {
		s, err := decodeString(item)
		if err != nil {
			return 0, err
		}
		return ParseGeometry(s)
	})
	if err != nil {
		return nil, err
	}

	suggestion, err := p.optBool("suggestion", false)
	if err != nil {
		return nil, err
	}
	name, err := p.requiredString("name")
	if err != nil {
		return nil, err
	}
	icon, err := p.optString("icon", "")
	if err != nil {
		return nil, err
	}
	imageURL, err := p.optString("imageURL", "")
	if err != nil {
		return nil, err
	}
	terms, err := optList(p, "terms", decodeString)
	if err != nil {
		return nil, err
	}

	include, exclude, err := parseLocationSet(p)
	if err != nil {
		return nil, err
	}

	searchable, err := p.optBool("searchable", true)
	if err != nil {
		return nil, err
	}
	matchScore, err := p.optFloat("matchScore", 1.0)
	if err != nil {
		return nil, err
	}

	// Presence alone selects the explicit value, even when it is {}
	addTags, ok, err := p.optStringMap("addTags")
	if err != nil {
		return nil, err
	}
	if !ok {
		addTags = tags
	}
	removeTags, ok, err := p.optStringMap("removeTags")
	if err != nil {
		return nil, err
	}
	if !ok {
		removeTags = addTags
	}

	return &Feature{
		id:                  id,
		tags:                tags,
		geometries:          geometries,
		name:                name,
		icon:                icon,
		imageURL:            imageURL,
		terms:               terms,
		includeCountryCodes: include,
		excludeCountryCodes: exclude,
		searchable:          searchable,
		matchScore:          matchScore,
		suggestion:          suggestion,
		addTags:             addTags,
		removeTags:          removeTags,
	}, nil
}

// parseLocationSet returns the include and exclude country codes. A code
// that is not a two letter country (a region like "150" or a custom
// geojson id) rejects the whole entry, since dropping only that code would
// misstate where the preset applies.
func parseLocationSet(p object) (include, exclude []string, err error) {
	ls, ok, err := p.optObject("locationSet")
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return []string{}, []string{}, nil
	}

	include, err = optList(ls, "include", decodeCountryCode)
	if err != nil {
		return nil, nil, fmt.Errorf("locationSet: %w", err)
	}
	// Every occurrence is dropped, not just the first
	include = slices.DeleteFunc(include, func(cc string) bool { return cc == worldwide })
	if err := checkCountryCodes(include); err != nil {
		return nil, nil, err
	}

	exclude, err = optList(ls, "exclude", decodeCountryCode)
	if err != nil {
		return nil, nil, fmt.Errorf("locationSet: %w", err)
	}
	if err := checkCountryCodes(exclude); err != nil {
		return nil, nil, err
	}
	return include, exclude, nil
}

func decodeCountryCode(item json.RawMessage) (string, error) {
	s, err := decodeString(item)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// checkCountryCodes also rejects codes shorter than two letters, which a
// plain length limit would let through.
func checkCountryCodes(codes []string) error {
	for _, cc := range codes {
		if utf8.RuneCountInString(cc) != 2 {
			return fmt.Errorf("%w: %q", ErrUnsupportedLocation, cc)
		}
	}
	return nil
}

func anyKeyOrValueContainsWildcard(tags map[string]string) bool {
	for k, v := range tags {
		if strings.Contains(k, "*") || strings.Contains(v, "*") {
			return true
		}
	}
	return false
}

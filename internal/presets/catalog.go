package presets

import "slices"

// Catalog holds parsed features keyed by id, remembering parse order
type Catalog struct {
	features []*Feature
	byID     map[string]*Feature
}

// NewCatalog builds a catalog. Features with an id already present are
// ignored, so the first occurrence wins.
func NewCatalog(features []*Feature) *Catalog {
	c := &Catalog{
		features: make([]*Feature, 0, len(features)),
		byID:     make(map[string]*Feature, len(features)),
	}
	for _, f := range features {
		if _, ok := c.byID[f.id]; ok {
			continue
		}
		c.byID[f.id] = f
		c.features = append(c.features, f)
	}
	return c
}

// Get returns the feature with the given id
func (c *Catalog) Get(id string) (*Feature, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// Features returns all features in parse order
func (c *Catalog) Features() []*Feature {
	return slices.Clone(c.features)
}

// Len returns the number of features
func (c *Catalog) Len() int {
	return len(c.features)
}

// Filter returns a new catalog with the features keep accepts
func (c *Catalog) Filter(keep func(*Feature) bool) *Catalog {
	var kept []*Feature
	for _, f := range c.features {
		if keep(f) {
			kept = append(kept, f)
		}
	}
	return NewCatalog(kept)
}

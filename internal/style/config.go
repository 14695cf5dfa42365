package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osmpresets-go/internal/presets"
)

// Config holds the rules selecting which presets end up in a catalog
type Config struct {
	// Include specifies which tag keys/values a preset must match.
	// If empty, all presets are included.
	Include map[string][]string `yaml:"include,omitempty"`
	// Exclude specifies tag keys/values that drop a preset.
	// Applied after include rules.
	Exclude map[string][]string `yaml:"exclude,omitempty"`
	// RequireAny specifies that at least one of these tag keys must be present
	RequireAny []string `yaml:"require_any,omitempty"`
	// Geometries keeps presets applicable to any of these geometries
	Geometries []string `yaml:"geometries,omitempty"`
	// Country keeps presets available in this country
	Country string `yaml:"country,omitempty"`
	// Suggestions controls whether name-suggestion presets are kept (default true)
	Suggestions *bool `yaml:"suggestions,omitempty"`
	// SearchableOnly drops presets not offered in search
	SearchableOnly bool `yaml:"searchable_only,omitempty"`
}

// LoadConfig loads filter rules from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses filter rules from YAML
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse filter YAML: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns a configuration that keeps everything
func DefaultConfig() *Config {
	return &Config{}
}

// Filter decides whether a preset belongs in the catalog
type Filter struct {
	cfg        *Config
	geometries []presets.Geometry
}

// NewFilter creates a filter from configuration
func NewFilter(cfg *Config) (*Filter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	f := &Filter{cfg: cfg}
	for _, name := range cfg.Geometries {
		g, err := presets.ParseGeometry(name)
		if err != nil {
			return nil, fmt.Errorf("filter geometries: %w", err)
		}
		f.geometries = append(f.geometries, g)
	}
	return f, nil
}

// Match returns true if the preset should be kept
func (f *Filter) Match(p *presets.Feature) bool {
	if f.cfg.Suggestions != nil && !*f.cfg.Suggestions && p.Suggestion() {
		return false
	}
	if f.cfg.SearchableOnly && !p.Searchable() {
		return false
	}
	if f.cfg.Country != "" && !p.IsAvailableIn(f.cfg.Country) {
		return false
	}

	if len(f.geometries) > 0 {
		found := false
		for _, g := range f.geometries {
			if p.HasGeometry(g) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return f.MatchTags(p.Tags())
}

// MatchTags applies the require_any, include and exclude rules to tags
func (f *Filter) MatchTags(tags map[string]string) bool {
	// Check require_any - at least one key must be present
	if len(f.cfg.RequireAny) > 0 {
		found := false
		for _, key := range f.cfg.RequireAny {
			if _, ok := tags[key]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.cfg.Include) > 0 && !matchesAny(f.cfg.Include, tags) {
		return false
	}
	if len(f.cfg.Exclude) > 0 && matchesAny(f.cfg.Exclude, tags) {
		return false
	}
	return true
}

// matchesAny reports whether any rule matches. A rule with no values
// matches any value of its key.
func matchesAny(rules map[string][]string, tags map[string]string) bool {
	for key, values := range rules {
		tagValue, ok := tags[key]
		if !ok {
			continue
		}
		if len(values) == 0 {
			return true
		}
		for _, v := range values {
			if v == tagValue || v == "*" {
				return true
			}
		}
	}
	return false
}

// HasFilter returns true if any rule is configured
func (f *Filter) HasFilter() bool {
	c := f.cfg
	return len(c.Include) > 0 || len(c.Exclude) > 0 || len(c.RequireAny) > 0 ||
		len(c.Geometries) > 0 || c.Country != "" || c.Suggestions != nil || c.SearchableOnly
}

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/ofertas/internal/deals"
)

// DefaultEmoji is used for categories that do not set one.
const DefaultEmoji = "🛍️"

// Catalog is the YAML category configuration:
//
//	categories:
//	  - name: Panales
//	    emoji: "🧷"
//	    query: "/s?k=..."
//	priority_brands: [dodot]
//	always_allowed: [Panales]
type Catalog struct {
	Categories     []deals.Category `yaml:"categories"`
	PriorityBrands []string         `yaml:"priority_brands"`
	AlwaysAllowed  []string         `yaml:"always_allowed"`
}

// LoadCatalog reads and validates the catalog file at path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cat Catalog
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Validate checks that category names are present and unique, and fills in
// missing emojis.
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("no categories configured")
	}

	seen := make(map[string]struct{}, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" {
			return fmt.Errorf("category %d has no name", i+1)
		}
		if _, dup := seen[cat.Name]; dup {
			return fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = struct{}{}
		if strings.TrimSpace(cat.Query) == "" {
			return fmt.Errorf("category %q has no query", cat.Name)
		}
		if cat.Emoji == "" {
			cat.Emoji = DefaultEmoji
		}
	}

	for _, name := range c.AlwaysAllowed {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("always_allowed names unknown category %q", name)
		}
	}
	return nil
}

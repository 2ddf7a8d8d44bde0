// Package corpus holds the curated reference corpus of learning
// resources. It is loaded once at startup from embedded data and is
// read-only for the life of the process; model output is repaired
// against it because corpus data is trusted and model-declared links
// are not.
package corpus

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed resources.json
var resourcesJSON []byte

// ResourceLink is one known-good resource.
type ResourceLink struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Corpus maps category names to ordered resource lists.
type Corpus struct {
	categories map[string][]ResourceLink
	flat       []ResourceLink
}

// Load parses the embedded resource database.
func Load() (*Corpus, error) {
	var categories map[string][]ResourceLink
	if err := json.Unmarshal(resourcesJSON, &categories); err != nil {
		return nil, fmt.Errorf("parse embedded resource corpus: %w", err)
	}

	c := &Corpus{categories: categories}
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.flat = append(c.flat, categories[name]...)
	}
	return c, nil
}

// Categories returns the category names in sorted order.
func (c *Corpus) Categories() []string {
	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Category returns the ordered links for a category, nil if unknown.
func (c *Corpus) Category(name string) []ResourceLink {
	return c.categories[name]
}

// All returns every link across categories in stable order.
func (c *Corpus) All() []ResourceLink {
	return c.flat
}

// Match finds a corpus entry whose name matches the candidate by
// bidirectional case-insensitive containment: either name may be a
// substring of the other. The first match in stable category order
// wins.
func (c *Corpus) Match(name string) (ResourceLink, bool) {
	candidate := strings.ToLower(strings.TrimSpace(name))
	if candidate == "" {
		return ResourceLink{}, false
	}
	for _, link := range c.flat {
		known := strings.ToLower(link.Name)
		if strings.Contains(known, candidate) || strings.Contains(candidate, known) {
			return link, true
		}
	}
	return ResourceLink{}, false
}

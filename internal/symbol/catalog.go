package symbol

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// UnknownDescription is returned for CoT types that have no catalog entry.
const UnknownDescription = "Unknown CoT type"

//go:embed types.yaml
var catalogYAML []byte

// catalogFile mirrors the layout of types.yaml.
type catalogFile struct {
	Types []catalogEntry `yaml:"types"`
}

type catalogEntry struct {
	CoT  string `yaml:"cot"`
	Desc string `yaml:"desc"`
}

// Catalog maps wildcarded CoT types to human-readable descriptions.
//
// Lookups are exact matches only. A Catalog is immutable once built and is
// safe for concurrent use.
type Catalog struct {
	entries map[string]string
}

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the catalog compiled into the binary.
//
// The embedded document is decoded once per process. A decode failure is a
// build defect, so DefaultCatalog panics rather than returning an error.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(catalogYAML)
	})
	if defaultCatalogErr != nil {
		panic(fmt.Sprintf("symbol: embedded catalog: %v", defaultCatalogErr))
	}
	return defaultCatalog
}

// ParseCatalog decodes a YAML catalog document.
//
// Entries with an empty type or description and duplicate types are
// rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	entries := make(map[string]string, len(file.Types))
	for i, e := range file.Types {
		if e.CoT == "" || e.Desc == "" {
			return nil, fmt.Errorf("%w: entry %d: cot and desc are required", ErrInvalidCatalog, i)
		}
		if _, exists := entries[e.CoT]; exists {
			return nil, fmt.Errorf("%w: duplicate type %q", ErrInvalidCatalog, e.CoT)
		}
		entries[e.CoT] = e.Desc
	}

	return &Catalog{entries: entries}, nil
}

// Lookup returns the description for an exact wildcarded type.
func (c *Catalog) Lookup(key string) (string, bool) {
	desc, ok := c.entries[key]
	return desc, ok
}

// Description returns the description for key, or UnknownDescription.
func (c *Catalog) Description(key string) string {
	if desc, ok := c.entries[key]; ok {
		return desc
	}
	return UnknownDescription
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

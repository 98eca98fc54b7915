package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"labelscan/pkg/models"
)

// ErrInvalidCatalog is returned when catalog data cannot be used for matching
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is an immutable, ordered list of reference substances. Entry order
// decides ties during matching.
type Catalog struct {
	entries []models.CatalogEntry
}

// New validates entries and returns a catalog holding its own copy of them
func New(entries []models.CatalogEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidCatalog)
	}

	own := make([]models.CatalogEntry, len(entries))
	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidCatalog, i)
		}
		own[i] = e
	}

	return &Catalog{entries: own}, nil
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entry returns the i-th entry
func (c *Catalog) Entry(i int) models.CatalogEntry {
	return c.entries[i]
}

// Entries returns a copy of all entries in declaration order
func (c *Catalog) Entries() []models.CatalogEntry {
	out := make([]models.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the entry names in declaration order, the text that gets
// embedded for every entry.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Hash creates a hash of the entry's content to detect changes
func (c *Catalog) Hash(i int) string {
	e := c.entries[i]
	content := fmt.Sprintf("%v-%v-%v-%v", e.Name, e.RiskLevel, e.Notes, e.Alternative)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

type catalogFile struct {
	Entries []models.CatalogEntry `yaml:"entries"`
}

// LoadFile reads a YAML catalog of the form
//
//	entries:
//	  - name: Talc
//	    risk_level: High
//	    notes: Asbestos contamination risk
//	    alternative: Arrowroot powder
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML catalog data
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(f.Entries)
}

package media

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Catalog is the on-disk media list.
type Catalog struct {
	Gifs []CatalogEntry `json:"gifs" validate:"dive"`
}

// CatalogEntry is one tagged media URL.
type CatalogEntry struct {
	Tags []string `json:"tags" validate:"min=1,dive,required"`
	URL  string   `json:"url" validate:"required,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// TagIndex maps lowercased tags to media URLs. It is read-only after
// construction and safe for concurrent use.
type TagIndex struct {
	name string
	tags []string
	urls map[string][]string
	pick func(n int) int
}

// NewTagIndex builds an index from catalog entries. Tags keep first-seen order.
func NewTagIndex(name string, entries []CatalogEntry) *TagIndex {
	idx := &TagIndex{
		name: name,
		urls: make(map[string][]string),
		pick: rand.IntN,
	}
	for _, e := range entries {
		for _, tag := range e.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, ok := idx.urls[tag]; !ok {
				idx.tags = append(idx.tags, tag)
			}
			idx.urls[tag] = append(idx.urls[tag], e.URL)
		}
	}
	return idx
}

// LoadTagIndex reads and validates the catalogs at paths and merges them
// into one index.
func LoadTagIndex(name string, paths ...string) (*TagIndex, error) {
	var entries []CatalogEntry
	for _, p := range paths {
		cat, err := LoadCatalog(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, cat.Gifs...)
	}
	return NewTagIndex(name, entries), nil
}

// LoadCatalog reads one JSON catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read media catalog: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse media catalog %s: %w", path, err)
	}
	if err := validate.Struct(&cat); err != nil {
		return nil, fmt.Errorf("invalid media catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Name identifies the index in logs.
func (t *TagIndex) Name() string { return t.name }

// Tags returns the indexed tags.
func (t *TagIndex) Tags() []string {
	return append([]string(nil), t.tags...)
}

// Len returns the number of distinct tags.
func (t *TagIndex) Len() int { return len(t.tags) }

// Lookup returns every URL tagged keyword (case-insensitive).
func (t *TagIndex) Lookup(keyword string) []string {
	return t.urls[strings.ToLower(strings.TrimSpace(keyword))]
}

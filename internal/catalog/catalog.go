// Package catalog holds the category and image-column configuration.
//
// The category set and the header keywords that mark image columns are
// data, not code: they ship with built-in defaults matching the current
// facility sheets and can be overridden by a JSON file, optionally hot
// reloaded, so new categories or locales need no code change.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Category describes one defect classification backed by a sheet.
type Category struct {
	// Name is the sheet name in the backing document.
	Name string `json:"name"`
	// ShortName is the compact label used on dashboard charts.
	ShortName string `json:"short_name"`
}

// Catalog is the live category/keyword configuration. All methods are
// safe for concurrent use; Reload swaps the whole snapshot atomically.
type Catalog struct {
	mu            sync.RWMutex
	categories    []Category
	imageKeywords []string
}

// fileFormat is the JSON shape of a catalog override file.
type fileFormat struct {
	Categories    []Category `json:"categories"`
	ImageKeywords []string   `json:"image_keywords"`
}

// Default returns the built-in catalog for the current facility sheets.
func Default() *Catalog {
	return &Catalog{
		categories: []Category{
			{Name: "Quản lý hành chính", ShortName: "QLHC"},
			{Name: "Thiết bị công trình", ShortName: "TBCT"},
			{Name: "An toàn vệ sinh lao động", ShortName: "ATVSLĐ"},
			{Name: "TPM, Kaizen", ShortName: "TPM"},
		},
		imageKeywords: []string{"hình", "minh chứng", "ảnh"},
	}
}

// Load returns the default catalog overridden by the JSON file at path.
// An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if err := c.Reload(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file and swaps the configuration in place.
func (c *Catalog) Reload(path string) error {
	data, err := os.ReadFile(path) //#nosec G304 -- Catalog path comes from configuration
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return fmt.Errorf("parse catalog file: %w", err)
	}
	if len(ff.Categories) == 0 {
		return fmt.Errorf("catalog file %s defines no categories", path)
	}
	for i, cat := range ff.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("catalog category %d has an empty name", i)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = ff.Categories
	if len(ff.ImageKeywords) > 0 {
		c.imageKeywords = ff.ImageKeywords
	}
	return nil
}

// Categories returns the configured categories in fixed display order.
func (c *Catalog) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Names returns the category sheet names in display order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.Name
	}
	return names
}

// Has reports whether name is a configured category.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.Name == name {
			return true
		}
	}
	return false
}

// ShortName returns the chart label for a category, falling back to the
// full name when the category is unknown.
func (c *Catalog) ShortName(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.Name == name && cat.ShortName != "" {
			return cat.ShortName
		}
	}
	return name
}

// IsImageHeader reports whether a column header marks an image column:
// the lower-cased header contains any configured keyword.
func (c *Catalog) IsImageHeader(header string) bool {
	lower := strings.ToLower(header)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, kw := range c.imageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

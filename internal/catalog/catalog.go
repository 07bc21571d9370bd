package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// Module is a previewable module and the UI files it ships
type Module struct {
	Name    string   `yaml:"name" json:"name"`
	Screens []string `yaml:"screens" json:"screens"`
}

// Catalog lists what the upstream can display
type Catalog struct {
	Modules []Module `yaml:"modules" json:"modules"`
	Locales []string `yaml:"locales" json:"locales"`
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and fills the locale list when it is empty
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Modules) == 0 {
		return nil, fmt.Errorf("catalog declares no module")
	}
	seen := make(map[string]bool, len(c.Modules))
	for _, m := range c.Modules {
		if m.Name == "" {
			return nil, fmt.Errorf("catalog module without a name")
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("catalog module %q declared twice", m.Name)
		}
		seen[m.Name] = true
	}
	if len(c.Locales) == 0 {
		c.Locales = allLocales()
	}
	return &c, nil
}

// Module looks a module up by name
func (c *Catalog) Module(name string) (Module, bool) {
	for _, m := range c.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleNames returns module names in catalog order
func (c *Catalog) ModuleNames() []string {
	names := make([]string, 0, len(c.Modules))
	for _, m := range c.Modules {
		names = append(names, m.Name)
	}
	return names
}

// BaseLocales returns the built-in selector entries in catalog order
func (c *Catalog) BaseLocales() []models.LocaleEntry {
	entries := make([]models.LocaleEntry, 0, len(c.Locales))
	for _, code := range c.Locales {
		entries = append(entries, BaseEntry(code))
	}
	return entries
}

// allLocales is POSIX first, then every named locale sorted by code
func allLocales() []string {
	codes := make([]string, 0, len(languageNames))
	for code := range languageNames {
		if code != "POSIX" {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return append([]string{"POSIX"}, codes...)
}

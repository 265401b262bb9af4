package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed platforms.yaml
var defaultCatalog []byte

// Platform describes one scraping source
type Platform struct {
	DisplayName string            `yaml:"display_name"`
	BaseURL     string            `yaml:"base_url"`
	Cities      map[string]string `yaml:"cities"`
}

// Catalog maps platform keys to their definition
type Catalog struct {
	Platforms map[string]Platform `yaml:"platforms"`
}

// LoadCatalog parses the catalog at path, or the embedded default when path
// is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading platform catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog. Platform keys are lowercased and city
// names normalized.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw Catalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing platform catalog: %w", err)
	}

	cat := &Catalog{Platforms: make(map[string]Platform, len(raw.Platforms))}
	for key, p := range raw.Platforms {
		cities := make(map[string]string, len(p.Cities))
		for city, url := range p.Cities {
			cities[NormalizeCity(city)] = strings.TrimSpace(url)
		}
		p.Cities = cities
		cat.Platforms[strings.ToLower(strings.TrimSpace(key))] = p
	}
	return cat, nil
}

// CityURL returns the listing URL of platform for city
func (c *Catalog) CityURL(platform, city string) (string, bool) {
	p, ok := c.Platforms[strings.ToLower(platform)]
	if !ok {
		return "", false
	}
	url, ok := p.Cities[NormalizeCity(city)]
	return url, ok && url != ""
}

// Names returns the platform keys in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Platforms))
	for name := range c.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

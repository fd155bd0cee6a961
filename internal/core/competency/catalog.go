package competency

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Tag is one classification result
type Tag struct {
	ID      string `json:"id"`
	NameKey string `json:"nameKey"`
}

// Rule maps a keyword set to an area
type Rule struct {
	Area     string   `yaml:"area"`
	NameKey  string   `yaml:"nameKey"`
	Keywords []string `yaml:"keywords"`
}

type rawCatalog struct {
	Rules    []Rule `yaml:"rules"`
	Fallback Rule   `yaml:"fallback"`
}

// Catalog classifies free text into competency areas
type Catalog struct {
	rules    []Rule
	fallback Tag
}

// LoadCatalog parses classification rules from r
func LoadCatalog(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("competency: read catalog: %w", err)
	}
	var rc rawCatalog
	if err := yaml.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("competency: parse catalog: %w", err)
	}
	if len(rc.Rules) == 0 {
		return nil, fmt.Errorf("competency: catalog has no rules")
	}

	c := &Catalog{fallback: Tag{ID: rc.Fallback.Area, NameKey: rc.Fallback.NameKey}}
	if c.fallback.ID == "" {
		c.fallback = Tag{ID: "general", NameKey: "competency.name.general"}
	}
	for _, rule := range rc.Rules {
		if rule.Area == "" || len(rule.Keywords) == 0 {
			continue
		}
		kw := make([]string, 0, len(rule.Keywords))
		for _, k := range rule.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kw = append(kw, k)
			}
		}
		c.rules = append(c.rules, Rule{Area: rule.Area, NameKey: rule.NameKey, Keywords: kw})
	}
	return c, nil
}

// LoadEmbeddedCatalog returns the catalog compiled into the binary
func LoadEmbeddedCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(embeddedCatalog))
}

// LoadCatalogFile loads an override file, falling back to the embedded catalog
// when path is empty
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return LoadEmbeddedCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("competency: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Rules reports how many classification rules are loaded
func (c *Catalog) Rules() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Classify tags free text (typically badge name plus description) with every
// matching area, or the fallback when nothing matches
func (c *Catalog) Classify(text string) []Tag {
	if c == nil {
		return nil
	}
	t := strings.ToLower(text)

	var out []Tag
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(t, kw) {
				out = append(out, Tag{ID: rule.Area, NameKey: rule.NameKey})
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, c.fallback)
	}
	return out
}

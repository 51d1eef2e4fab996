package llm

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverOpenAI    = "openai"
	DriverAnthropic = "anthropic"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type BackendSpec struct {
	Name       string   `yaml:"name"`
	Driver     string   `yaml:"driver"`
	Prefixes   []string `yaml:"prefixes"`
	Fallback   bool     `yaml:"fallback"`
	BaseURL    string   `yaml:"base_url"`
	BillingURL string   `yaml:"billing_url"`
}

type Catalog struct {
	Backends []BackendSpec `yaml:"backends"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalogYAML
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read llm catalog: %w", err)
		}
		raw = b
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse llm catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("llm catalog: no backends")
	}
	fallbacks := 0
	for i, b := range c.Backends {
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("llm catalog: backend %d has no name", i)
		}
		switch b.Driver {
		case DriverOpenAI, DriverAnthropic:
		default:
			return fmt.Errorf("llm catalog: backend %q has unknown driver %q", b.Name, b.Driver)
		}
		if b.Fallback {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		return fmt.Errorf("llm catalog: want exactly one fallback backend, got %d", fallbacks)
	}
	return nil
}

// Match returns the backend serving model.
func (c *Catalog) Match(model string) BackendSpec {
	m := strings.ToLower(strings.TrimSpace(model))
	var fallback BackendSpec
	for _, b := range c.Backends {
		for _, p := range b.Prefixes {
			if p != "" && strings.HasPrefix(m, strings.ToLower(p)) {
				return b
			}
		}
		if b.Fallback {
			fallback = b
		}
	}
	return fallback
}

// ByDriver returns the first backend using driver.
func (c *Catalog) ByDriver(driver string) (BackendSpec, bool) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	for _, b := range c.Backends {
		if b.Driver == driver {
			return b, true
		}
	}
	return BackendSpec{}, false
}

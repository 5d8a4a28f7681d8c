package economy

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultProfile []byte

// Load reads an economy profile from path. An empty path selects the embedded default profile.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read economy profile: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Default returns a fresh copy of the embedded economy profile.
func Default() (*Catalog, error) {
	return Parse(defaultProfile)
}

// Parse decodes and validates a YAML economy profile.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("economy profile: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid economy profile: %w", err)
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	if c.StartingCash < 0 {
		return fmt.Errorf("starting_cash must not be negative")
	}
	if len(c.Countries) == 0 {
		return fmt.Errorf("at least one country is required")
	}
	if len(c.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	seenCountries := make(map[Country]bool, len(c.Countries))
	for _, spec := range c.Countries {
		if spec.Name == "" {
			return fmt.Errorf("country name is required")
		}
		if seenCountries[spec.Name] {
			return fmt.Errorf("duplicate country %q", spec.Name)
		}
		seenCountries[spec.Name] = true

		if spec.Capacity <= 0 {
			return fmt.Errorf("country %s: max_capacity must be positive", spec.Name)
		}
		if spec.Efficiency <= 0 {
			return fmt.Errorf("country %s: efficiency_multiplier must be positive", spec.Name)
		}
		if spec.BaseLineCost < 0 || spec.MaintenancePerLine < 0 || spec.FactoryCost < 0 {
			return fmt.Errorf("country %s: costs must not be negative", spec.Name)
		}
	}

	seenProducts := make(map[Product]bool, len(c.Products))
	for _, spec := range c.Products {
		if spec.Key == "" {
			return fmt.Errorf("product key is required")
		}
		if seenProducts[spec.Key] {
			return fmt.Errorf("duplicate product %q", spec.Key)
		}
		seenProducts[spec.Key] = true

		if spec.BasePrice <= 0 {
			return fmt.Errorf("product %s: base_price must be positive", spec.Key)
		}
		if spec.PriceSpread < 0 {
			return fmt.Errorf("product %s: price_spread must not be negative", spec.Key)
		}
		for country, demand := range spec.BaseDemand {
			if !seenCountries[country] {
				return fmt.Errorf("product %s: demand for unknown country %q", spec.Key, country)
			}
			if demand < 0 {
				return fmt.Errorf("product %s: negative demand in %s", spec.Key, country)
			}
		}
	}

	if len(c.PremiumMarkets) == 0 {
		return fmt.Errorf("at least one premium market is required")
	}
	for _, country := range c.PremiumMarkets {
		if !seenCountries[country] {
			return fmt.Errorf("premium market %q is not a known country", country)
		}
	}

	if len(c.Personalities) == 0 {
		return fmt.Errorf("at least one personality is required")
	}
	for _, p := range c.Personalities {
		if p.Name == "" {
			return fmt.Errorf("personality name is required")
		}
		if p.ExpandRate < 0 || p.ExpandRate > 1 {
			return fmt.Errorf("personality %s: expand_rate must be within [0,1]", p.Name)
		}
		if !p.PricePosition.IsValid() {
			return fmt.Errorf("personality %s: unknown price_position %q", p.Name, p.PricePosition)
		}
		if len(p.PreferredCountries) == 0 {
			return fmt.Errorf("personality %s: preferred_countries is empty", p.Name)
		}
		for _, country := range p.PreferredCountries {
			if !seenCountries[country] {
				return fmt.Errorf("personality %s: unknown country %q", p.Name, country)
			}
		}
		for product, weight := range p.ProductFocus {
			if !seenProducts[product] {
				return fmt.Errorf("personality %s: unknown product %q", p.Name, product)
			}
			if weight < 0 {
				return fmt.Errorf("personality %s: negative focus for %s", p.Name, product)
			}
		}
	}

	return nil
}

// Country returns the profile of a known country.
func (c *Catalog) Country(name Country) (CountryProfile, bool) {
	for _, spec := range c.Countries {
		if spec.Name == name {
			return spec.CountryProfile, true
		}
	}
	return CountryProfile{}, false
}

func (c *Catalog) Product(key Product) (ProductSpec, bool) {
	for _, spec := range c.Products {
		if spec.Key == key {
			return spec, true
		}
	}
	return ProductSpec{}, false
}

func (c *Catalog) Personality(name string) (PersonalitySpec, bool) {
	for _, spec := range c.Personalities {
		if spec.Name == name {
			return spec, true
		}
	}
	return PersonalitySpec{}, false
}

// CountryNames returns the countries in profile order.
func (c *Catalog) CountryNames() []Country {
	names := make([]Country, len(c.Countries))
	for i, spec := range c.Countries {
		names[i] = spec.Name
	}
	return names
}

// ProductKeys returns the products in profile order.
func (c *Catalog) ProductKeys() []Product {
	keys := make([]Product, len(c.Products))
	for i, spec := range c.Products {
		keys[i] = spec.Key
	}
	return keys
}

func (c *Catalog) HasCountry(name Country) bool {
	_, ok := c.Country(name)
	return ok
}

func (c *Catalog) HasProduct(key Product) bool {
	_, ok := c.Product(key)
	return ok
}

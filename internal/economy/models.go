package economy

// Country identifies a market where factories can be built and products sold.
type Country string

// Product identifies a tradeable good.
type Product string

// PricePosition is where in the sorted list of price options a personality prices its goods.
type PricePosition string

const (
	PriceVeryLow PricePosition = "very_low"
	PriceLow     PricePosition = "low"
	PriceMiddle  PricePosition = "middle"
	PriceHigh    PricePosition = "high"
	PricePremium PricePosition = "premium"
)

func (p PricePosition) IsValid() bool {
	switch p {
	case PriceVeryLow, PriceLow, PriceMiddle, PriceHigh, PricePremium:
		return true
	}
	return false
}

// CountryProfile is the fixed economic profile of a country.
type CountryProfile struct {
	BaseLineCost       int64   `yaml:"base_line_cost" json:"base_line_cost"`               // Cost to open (or refund to close) one line
	Efficiency         float64 `yaml:"efficiency_multiplier" json:"efficiency_multiplier"` // Output multiplier applied to 100 units per line
	Capacity           int     `yaml:"max_capacity" json:"max_capacity"`                   // Max lines per factory
	MaintenancePerLine int64   `yaml:"maintenance_cost" json:"maintenance_cost"`           // Charged every turn per used line
	FactoryCost        int64   `yaml:"factory_cost" json:"factory_cost"`                   // Setup cost of a new factory
	IntegrationBonus   float64 `yaml:"integration_bonus" json:"integration_bonus"`
}

type CountrySpec struct {
	Name           Country `yaml:"name" json:"name"`
	CountryProfile `yaml:",inline"`
}

// ProductSpec describes a product's base price and demand before the turn's climate is applied.
type ProductSpec struct {
	Key         Product         `yaml:"key" json:"key"`
	Description string          `yaml:"description" json:"description"`
	BasePrice   int             `yaml:"base_price" json:"base_price"`
	PriceSpread int             `yaml:"price_spread" json:"price_spread"`
	BaseDemand  map[Country]int `yaml:"base_demand" json:"base_demand"`

	// Reserved for product-specific production; not used by the turn formulas.
	BaseCost      int `yaml:"base_cost" json:"base_cost"`
	OutputPerLine int `yaml:"output_per_line" json:"output_per_line"`
}

// PersonalitySpec parameterises one computer-player personality.
type PersonalitySpec struct {
	Name               string              `yaml:"name" json:"name"`
	ExpandRate         float64             `yaml:"expand_rate" json:"expand_rate"`
	PricePosition      PricePosition       `yaml:"price_position" json:"price_position"`
	ProductFocus       map[Product]float64 `yaml:"product_focus" json:"product_focus"`
	PreferredCountries []Country           `yaml:"preferred_countries" json:"preferred_countries"`
}

// Catalog is the root of the economy profile file.
type Catalog struct {
	StartingCash     int64                           `yaml:"starting_cash" json:"starting_cash"`
	Countries        []CountrySpec                   `yaml:"countries" json:"countries"`
	Products         []ProductSpec                   `yaml:"products" json:"products"`
	PremiumMarkets   []Country                       `yaml:"premium_markets" json:"premium_markets"`
	TransportMatrix  map[Country]map[Country]float64 `yaml:"transport_matrix" json:"transport_matrix"`
	TaxMatrix        map[Country]map[Country]float64 `yaml:"tax_matrix" json:"tax_matrix"`
	MarketingBudgets []int64                         `yaml:"marketing_budgets" json:"marketing_budgets"`
	Personalities    []PersonalitySpec               `yaml:"personalities" json:"personalities"`
}

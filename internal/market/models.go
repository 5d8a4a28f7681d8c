package market

import "marketsim-server/internal/economy"

// Climate labels produced by the generator.
const (
	EventStability = "Stability"
	EventBoom      = "Boom"
	EventDip       = "Dip"
	EventGrowth    = "Growth"
	EventRecession = "Recession"
	EventRecovery  = "Recovery"
)

type Climate struct {
	Event      string  `json:"event"`
	Multiplier float64 `json:"economic_index"`
}

type ProductMeta struct {
	Description  string `json:"description"`
	PriceOptions []int `json:"price_options"` // ascending
}

// TurnSnapshot holds every market parameter of one turn.
// Snapshots are shared between callers and must be treated as read-only.
type TurnSnapshot struct {
	Turn             int                                             `json:"turn"`
	Climate          Climate                                         `json:"global"`
	Products         map[economy.Product]ProductMeta                 `json:"products_meta"`
	Demand           map[economy.Country]map[economy.Product]int     `json:"demand"`
	IntegrationBonus map[economy.Country]float64                     `json:"integration_bonus"`
	TransportMatrix  map[economy.Country]map[economy.Country]float64 `json:"transport_matrix"`
	TaxMatrix        map[economy.Country]map[economy.Country]float64 `json:"tax_matrix"`
	MarketingBudgets []int64                                         `json:"marketing_budgets"`
}

// BaseDemand returns the units of product the country absorbs this turn; 0 for unknown pairs.
func (s *TurnSnapshot) BaseDemand(country economy.Country, product economy.Product) int {
	return s.Demand[country][product]
}

func (s *TurnSnapshot) PriceOptions(product economy.Product) []int {
	return s.Products[product].PriceOptions
}

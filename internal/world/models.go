package world

import (
	"marketsim-server/internal/ai"
	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
)

// Sale is the quantity one company sold at one price tier of a (country, product) market.
type Sale struct {
	Turn      int             `json:"turn"`
	Country   economy.Country `json:"country"`
	Product   economy.Product `json:"product"`
	Company   string          `json:"company"`
	IsPlayer  bool            `json:"is_player"`
	UnitPrice int             `json:"price"`
	Quantity  int64           `json:"quantity"`
}

func (s Sale) Amount() int64 {
	return s.Quantity * int64(s.UnitPrice)
}

// CompanyResult is a company's end-of-turn position, taken before the per-turn
// accumulators are reset.
type CompanyResult struct {
	Name      string                    `json:"name"`
	IsPlayer  bool                      `json:"is_player"`
	Cash      int64                     `json:"cash"`
	Revenue   int64                     `json:"revenue"`
	Costs     company.Costs             `json:"costs"`
	Profit    int64                     `json:"profit"`
	Stock     map[economy.Product]int64 `json:"stock"`
	Produced  map[economy.Product]int64 `json:"produced"`
	Sold      map[economy.Product]int64 `json:"sold"`
	Factories int                       `json:"factories"`
}

type RankEntry struct {
	Rank     int    `json:"rank"`
	Name     string `json:"name"`
	IsPlayer bool   `json:"is_player"`
	Cash     int64  `json:"cash"`
}

// TurnReport is the immutable record of one resolved turn.
type TurnReport struct {
	Turn            int             `json:"turn"`
	Climate         market.Climate  `json:"climate"`
	Sales           []Sale          `json:"sales"`
	Companies       []CompanyResult `json:"companies"`
	Ranking         []RankEntry     `json:"ranking"`
	ComputerActions []ai.Actions    `json:"computer_actions"`
	Digest          string          `json:"digest"` // blake3 of the company results
}

// SalesFor returns the sales of one company.
func (r *TurnReport) SalesFor(name string) []Sale {
	var out []Sale
	for _, s := range r.Sales {
		if s.Company == name {
			out = append(out, s)
		}
	}
	return out
}

// UnitsSold sums the quantity sold of product in country.
func (r *TurnReport) UnitsSold(country economy.Country, product economy.Product) int64 {
	var total int64
	for _, s := range r.Sales {
		if s.Country == country && s.Product == product {
			total += s.Quantity
		}
	}
	return total
}

package ai

import (
	"log/slog"
	"math"
	"slices"

	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
)

// RNG is the randomness a policy draws from. *rand.Rand from math/rand/v2 satisfies it.
type RNG = market.RNG

// Policy drives one computer-controlled company.
type Policy struct {
	Company     string
	Personality economy.PersonalitySpec

	rng    RNG
	logger *slog.Logger
}

func NewPolicy(companyName string, personality economy.PersonalitySpec, rng RNG, logger *slog.Logger) *Policy {
	return &Policy{
		Company:     companyName,
		Personality: personality,
		rng:         rng,
		logger:      logger,
	}
}

// ExpansionOutcome reports what happened to a factory purchase attempt.
type ExpansionOutcome string

const (
	ExpansionSkipped           ExpansionOutcome = "skipped"
	ExpansionBought            ExpansionOutcome = "bought"
	ExpansionInsufficientFunds ExpansionOutcome = "insufficient_funds"
	ExpansionUnknownCountry    ExpansionOutcome = "unknown_country"
)

type Expansion struct {
	Country economy.Country  `json:"country,omitempty"`
	Outcome ExpansionOutcome `json:"outcome"`
	Cost    int64            `json:"cost,omitempty"`
}

// Actions is everything a policy did to its company in one turn.
type Actions struct {
	Company     string                                `json:"company"`
	Personality string                                `json:"personality"`
	Expansion   Expansion                             `json:"expansion"`
	Allocations []company.AllocationResult            `json:"allocations"`
	Decisions   map[economy.Product]company.Decision `json:"decisions"`
}

// LineTarget is the wanted line total for one product in a country.
type LineTarget struct {
	Product economy.Product
	Lines   int
}

// ShouldExpand is always true on turn 1, then a Bernoulli draw against the expansion rate.
func (p *Policy) ShouldExpand(turn int) bool {
	if turn == 1 {
		return true
	}
	return p.rng.Float64() < p.Personality.ExpandRate
}

func (p *Policy) ChooseExpansionCountry() economy.Country {
	return p.pick(p.Personality.PreferredCountries)
}

// Allocation splits one factory's capacity between products by focus weight, in
// product order, never handing out more than capacity in total.
func (p *Policy) Allocation(capacity int, products []economy.Product) []LineTarget {
	remaining := capacity
	var targets []LineTarget
	for _, product := range products {
		lines := int(math.Floor(float64(capacity) * p.Personality.ProductFocus[product]))
		lines = min(lines, remaining)
		if lines <= 0 {
			continue
		}
		targets = append(targets, LineTarget{Product: product, Lines: lines})
		remaining -= lines
	}
	return targets
}

// ChoosePrice picks an option by the personality's price position. ok is false when
// there are no options to choose from.
func (p *Policy) ChoosePrice(options []int) (int, bool) {
	if len(options) == 0 {
		return 0, false
	}
	sorted := slices.Clone(options)
	slices.Sort(sorted)
	return sorted[QuantileIndex(p.Personality.PricePosition, len(sorted))], true
}

// QuantileIndex maps a price position onto an index into n ascending options.
func QuantileIndex(position economy.PricePosition, n int) int {
	switch position {
	case economy.PriceVeryLow:
		return 0
	case economy.PriceLow:
		return max(0, n/4)
	case economy.PriceMiddle:
		return n / 2
	case economy.PriceHigh:
		return min(n-1, 3*n/4)
	default:
		return n - 1
	}
}

// ChooseSalesCountry sends premium products to the premium markets and everything
// else to one of the personality's preferred countries.
func (p *Policy) ChooseSalesCountry(product economy.Product, catalog *economy.Catalog) economy.Country {
	if product == PremiumProduct {
		return p.pick(catalog.PremiumMarkets)
	}
	return p.pick(p.Personality.PreferredCountries)
}

// PremiumProduct is the luxury good sold only in the premium markets.
const PremiumProduct economy.Product = "C"

// Act runs expansion, allocation, then pricing and destination for c. Failed
// purchases and short allocations are reported in Actions; they never stop the policy.
func (p *Policy) Act(c *company.Company, turn int, snap *market.TurnSnapshot, catalog *economy.Catalog) Actions {
	logger := p.logger.With("component", "ai_policy", "operation", "act", "company", c.Name, "turn", turn)

	actions := Actions{
		Company:     c.Name,
		Personality: p.Personality.Name,
		Expansion:   Expansion{Outcome: ExpansionSkipped},
		Decisions:   make(map[economy.Product]company.Decision),
	}

	if p.ShouldExpand(turn) {
		actions.Expansion = p.expand(c, catalog)
		logger.Debug("Expansion attempted",
			"country", actions.Expansion.Country,
			"outcome", actions.Expansion.Outcome)
	}

	products := catalog.ProductKeys()
	for _, country := range c.FactoryCountries() {
		profile, ok := catalog.Country(country)
		if !ok {
			continue
		}
		for _, target := range p.Allocation(profile.Capacity, products) {
			result := c.SetProductionLines(country, target.Product, target.Lines)
			if result.Status != company.AllocationUnchanged {
				actions.Allocations = append(actions.Allocations, result)
			}
			if result.Status == company.AllocationInsufficientFunds || result.Status == company.AllocationCapacityReached {
				logger.Debug("Allocation fell short",
					"country", country,
					"product", target.Product,
					"target", target.Lines,
					"lines", result.After,
					"status", result.Status)
			}
		}
	}

	for _, product := range products {
		price, ok := p.ChoosePrice(snap.PriceOptions(product))
		if !ok {
			continue
		}
		d := company.Decision{
			Country: p.ChooseSalesCountry(product, catalog),
			Price:   price,
		}
		c.SetDecision(product, d)
		actions.Decisions[product] = d
	}

	return actions
}

func (p *Policy) expand(c *company.Company, catalog *economy.Catalog) Expansion {
	country := p.ChooseExpansionCountry()
	profile, ok := catalog.Country(country)
	if !ok {
		return Expansion{Country: country, Outcome: ExpansionUnknownCountry}
	}
	if _, err := c.BuyFactory(country, profile); err != nil {
		return Expansion{Country: country, Outcome: ExpansionInsufficientFunds}
	}
	return Expansion{Country: country, Outcome: ExpansionBought, Cost: profile.FactoryCost}
}

func (p *Policy) pick(options []economy.Country) economy.Country {
	if len(options) == 0 {
		return ""
	}
	return options[p.rng.IntN(len(options))]
}

/*
Package market generates the per-turn market parameters: the macroeconomic climate,
the permitted price options of each product and the base demand of every
(country, product) pair.

Each turn draws from its own stream derived from the game seed and the turn
number, so a snapshot depends only on (seed, turn) and never on the order in
which turns are looked up. Parameters caches each turn so repeated look-ups
return the identical snapshot.
*/
package market

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"marketsim-server/internal/economy"
)

// RNG is the randomness the generator draws from. *rand.Rand from math/rand/v2 satisfies it.
type RNG interface {
	Float64() float64
	IntN(n int) int
}

// streamBase keeps the per-turn market streams clear of the low stream ids
// other consumers of the game seed use.
const streamBase uint64 = 1 << 32

type Generator struct {
	catalog    *economy.Catalog
	totalTurns int
	seed       uint64
}

func NewGenerator(catalog *economy.Catalog, totalTurns int, seed uint64) *Generator {
	return &Generator{
		catalog:    catalog,
		totalTurns: totalTurns,
		seed:       seed,
	}
}

// turnRNG returns the stream turn draws from.
func (g *Generator) turnRNG(turn int) RNG {
	return rand.New(rand.NewPCG(g.seed, streamBase+uint64(turn)))
}

// Generate builds the snapshot for turn. Callers normally go through Parameters.Turn.
func (g *Generator) Generate(turn int) *TurnSnapshot {
	rng := g.turnRNG(turn)
	climate := g.climate(turn, rng)

	snap := &TurnSnapshot{
		Turn:             turn,
		Climate:          climate,
		Products:         make(map[economy.Product]ProductMeta, len(g.catalog.Products)),
		Demand:           make(map[economy.Country]map[economy.Product]int, len(g.catalog.Countries)),
		IntegrationBonus: make(map[economy.Country]float64, len(g.catalog.Countries)),
		TransportMatrix:  copyMatrix(g.catalog.TransportMatrix),
		TaxMatrix:        copyMatrix(g.catalog.TaxMatrix),
		MarketingBudgets: append([]int64(nil), g.catalog.MarketingBudgets...),
	}

	for _, country := range g.catalog.Countries {
		snap.Demand[country.Name] = make(map[economy.Product]int, len(g.catalog.Products))
		snap.IntegrationBonus[country.Name] = country.IntegrationBonus
	}

	for _, product := range g.catalog.Products {
		snap.Products[product.Key] = ProductMeta{
			Description:  product.Description,
			PriceOptions: priceOptions(product, climate.Multiplier),
		}

		// Countries are walked in profile order so a turn's stream yields the same demand table.
		for _, country := range g.catalog.Countries {
			base := product.BaseDemand[country.Name]
			demand := int(float64(base) * climate.Multiplier * uniform(rng, 0.95, 1.05))
			snap.Demand[country.Name][product.Key] = demand
		}
	}

	return snap
}

// priceOptions spreads integer prices around the climate-adjusted base price.
func priceOptions(product economy.ProductSpec, multiplier float64) []int {
	center := int(float64(product.BasePrice) * multiplier)
	options := make([]int, 0, product.PriceSpread*2+1)
	for i := 0; i <= product.PriceSpread*2; i++ {
		price := center - product.PriceSpread + i
		if price > 0 {
			options = append(options, price)
		}
	}
	return options
}

// climate follows the game's four phases: early stability, growth with random
// booms and dips, a recession, then recovery.
func (g *Generator) climate(turn int, rng RNG) Climate {
	total := g.totalTurns
	growthEnd := int(float64(total) * 0.6)
	crisisEnd := int(float64(total) * 0.8)

	var multiplier float64
	var event string

	switch {
	case turn <= 2:
		multiplier = 1.0 + float64(turn)*0.02
		event = EventStability

	case turn <= growthEnd:
		progress := float64(turn-2) / float64(growthEnd-2)
		multiplier = 1.0 + progress*0.15

		roll := rng.Float64()
		switch {
		case roll < 0.3:
			multiplier *= uniform(rng, 1.05, 1.15)
			event = EventBoom
		case roll < 0.5:
			multiplier *= uniform(rng, 0.92, 0.98)
			event = EventDip
		default:
			event = EventGrowth
		}

	case turn <= crisisEnd:
		multiplier = uniform(rng, 0.65, 0.85)
		event = EventRecession

	default:
		progress := float64(turn-crisisEnd) / float64(total-crisisEnd)
		multiplier = 0.7 + progress*0.35
		multiplier *= uniform(rng, 0.98, 1.05)
		event = EventRecovery
	}

	return Climate{
		Event:      event,
		Multiplier: math.Round(multiplier*100) / 100,
	}
}

func uniform(rng RNG, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

func copyMatrix(m map[economy.Country]map[economy.Country]float64) map[economy.Country]map[economy.Country]float64 {
	out := make(map[economy.Country]map[economy.Country]float64, len(m))
	for from, row := range m {
		out[from] = make(map[economy.Country]float64, len(row))
		for to, v := range row {
			out[from][to] = v
		}
	}
	return out
}

// Parameters caches generated snapshots by turn number.
type Parameters struct {
	generator *Generator
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[int]*TurnSnapshot
}

func NewParameters(generator *Generator, logger *slog.Logger) *Parameters {
	return &Parameters{
		generator: generator,
		logger:    logger,
		cache:     make(map[int]*TurnSnapshot),
	}
}

// Turn returns the snapshot for turn, generating it on first use.
func (p *Parameters) Turn(turn int) *TurnSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap, ok := p.cache[turn]; ok {
		return snap
	}

	snap := p.generator.Generate(turn)
	p.cache[turn] = snap

	p.logger.Debug("Generated market parameters",
		"component", "market",
		"turn", turn,
		"event", snap.Climate.Event,
		"economic_index", snap.Climate.Multiplier,
	)
	return snap
}

func (p *Parameters) TotalTurns() int {
	return p.generator.totalTurns
}

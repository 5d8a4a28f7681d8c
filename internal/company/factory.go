package company

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"marketsim-server/internal/economy"
)

// UnitsPerLine is the base output of one production line per turn, before the country's efficiency.
const UnitsPerLine = 100

// Factory is a capacity-bounded set of production lines in one country.
// Line counts only change through ModifyLines.
type Factory struct {
	id      string
	country economy.Country
	profile economy.CountryProfile
	lines   map[economy.Product]int
}

func NewFactory(country economy.Country, profile economy.CountryProfile) *Factory {
	return &Factory{
		id:      uuid.NewString(),
		country: country,
		profile: profile,
		lines:   make(map[economy.Product]int),
	}
}

func (f *Factory) ID() string               { return f.id }
func (f *Factory) Country() economy.Country { return f.country }
func (f *Factory) Capacity() int            { return f.profile.Capacity }

func (f *Factory) Lines(product economy.Product) int {
	return f.lines[product]
}

func (f *Factory) TotalLinesUsed() int {
	total := 0
	for _, n := range f.lines {
		total += n
	}
	return total
}

func (f *Factory) FreeSpace() int {
	return f.profile.Capacity - f.TotalLinesUsed()
}

func (f *Factory) MaintenanceCost() int64 {
	return int64(f.TotalLinesUsed()) * f.profile.MaintenancePerLine
}

// QuoteLines returns what ModifyLines(_, delta) would charge, without changing anything.
func (f *Factory) QuoteLines(delta int) int64 {
	return int64(delta) * f.profile.BaseLineCost
}

// ModifyLines adds delta lines (or removes them when negative) for product and
// returns the cost of the change: positive is a charge, negative a refund.
// On error the factory is left untouched.
func (f *Factory) ModifyLines(product economy.Product, delta int) (int64, error) {
	current := f.lines[product]

	if delta > 0 && f.FreeSpace() < delta {
		return 0, fmt.Errorf("add %d lines of %s in %s factory (free %d): %w",
			delta, product, f.country, f.FreeSpace(), ErrInsufficientCapacity)
	}
	if delta < 0 && current+delta < 0 {
		return 0, fmt.Errorf("remove %d lines of %s in %s factory (have %d): %w",
			-delta, product, f.country, current, ErrNegativeLines)
	}
	if delta == 0 {
		return 0, nil
	}

	if current+delta == 0 {
		delete(f.lines, product)
	} else {
		f.lines[product] = current + delta
	}
	return f.QuoteLines(delta), nil
}

// Production returns the units the product's lines yield in one turn.
func (f *Factory) Production(product economy.Product) int64 {
	return int64(math.Floor(float64(f.lines[product]) * UnitsPerLine * f.profile.Efficiency))
}

// Products lists products with at least one line, sorted by key.
func (f *Factory) Products() []economy.Product {
	products := make([]economy.Product, 0, len(f.lines))
	for p, n := range f.lines {
		if n > 0 {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })
	return products
}

// FactorySnapshot is a read-only copy of a factory for display.
type FactorySnapshot struct {
	ID              string                  `json:"id"`
	Country         economy.Country         `json:"country"`
	Capacity        int                     `json:"capacity"`
	Lines           map[economy.Product]int `json:"product_lines"`
	TotalLinesUsed  int                     `json:"total_lines_used"`
	FreeSpace       int                     `json:"free_space"`
	MaintenanceCost int64                   `json:"maintenance_cost"`
}

func (f *Factory) Snapshot() FactorySnapshot {
	lines := make(map[economy.Product]int, len(f.lines))
	for p, n := range f.lines {
		lines[p] = n
	}
	return FactorySnapshot{
		ID:              f.id,
		Country:         f.country,
		Capacity:        f.profile.Capacity,
		Lines:           lines,
		TotalLinesUsed:  f.TotalLinesUsed(),
		FreeSpace:       f.FreeSpace(),
		MaintenanceCost: f.MaintenanceCost(),
	}
}

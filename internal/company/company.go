package company

import (
	"fmt"
	"sort"

	"marketsim-server/internal/economy"
)

// Costs breaks down the money a company spent during the current turn.
type Costs struct {
	Production  int64 `json:"production"`
	Maintenance int64 `json:"maintenance"`
	Marketing   int64 `json:"marketing"`
	Transport   int64 `json:"transport"`
	Taxes       int64 `json:"taxes"`
}

func (c Costs) Total() int64 {
	return c.Production + c.Maintenance + c.Marketing + c.Transport + c.Taxes
}

// Decision is where and at what unit price a product is sold.
// A product is sold in exactly one country per turn.
type Decision struct {
	Country economy.Country `json:"country"`
	Price   int             `json:"price"`
}

// Company is a player or computer-controlled competitor.
type Company struct {
	Name     string
	IsPlayer bool

	Cash    int64
	Revenue int64
	Costs   Costs

	factories    map[economy.Country][]*Factory
	countryOrder []economy.Country
	stock        map[economy.Product]int64
	decisions    map[economy.Product]Decision
}

func New(name string, isPlayer bool, startingCash int64) *Company {
	return &Company{
		Name:      name,
		IsPlayer:  isPlayer,
		Cash:      startingCash,
		factories: make(map[economy.Country][]*Factory),
		stock:     make(map[economy.Product]int64),
		decisions: make(map[economy.Product]Decision),
	}
}

// EnsureProducts creates zero stock entries so every product shows up in snapshots.
func (c *Company) EnsureProducts(products []economy.Product) {
	for _, p := range products {
		if _, ok := c.stock[p]; !ok {
			c.stock[p] = 0
		}
	}
}

// BuyFactory purchases a new factory in country, refusing to overdraw cash.
func (c *Company) BuyFactory(country economy.Country, profile economy.CountryProfile) (*Factory, error) {
	if c.Cash < profile.FactoryCost {
		return nil, fmt.Errorf("factory in %s costs %d, cash %d: %w", country, profile.FactoryCost, c.Cash, ErrInsufficientFunds)
	}

	f := NewFactory(country, profile)
	c.AddFactory(f)
	c.Cash -= profile.FactoryCost
	c.Costs.Production += profile.FactoryCost
	return f, nil
}

// AddFactory registers an existing factory without charging for it.
func (c *Company) AddFactory(f *Factory) {
	if _, ok := c.factories[f.Country()]; !ok {
		c.countryOrder = append(c.countryOrder, f.Country())
	}
	c.factories[f.Country()] = append(c.factories[f.Country()], f)
}

// Factories returns the company's factories in country, in purchase order.
func (c *Company) Factories(country economy.Country) []*Factory {
	return c.factories[country]
}

// FactoryCountries returns countries with at least one factory, in order of first purchase.
func (c *Company) FactoryCountries() []economy.Country {
	return append([]economy.Country(nil), c.countryOrder...)
}

// AllFactories returns every factory, grouped by country in order of first purchase.
func (c *Company) AllFactories() []*Factory {
	var all []*Factory
	for _, country := range c.countryOrder {
		all = append(all, c.factories[country]...)
	}
	return all
}

func (c *Company) FactoryCount() int {
	n := 0
	for _, fs := range c.factories {
		n += len(fs)
	}
	return n
}

// Lines returns the total lines allocated to product across the country's factories.
func (c *Company) Lines(country economy.Country, product economy.Product) int {
	total := 0
	for _, f := range c.factories[country] {
		total += f.Lines(product)
	}
	return total
}

func (c *Company) TotalMaintenance() int64 {
	var total int64
	for _, f := range c.AllFactories() {
		total += f.MaintenanceCost()
	}
	return total
}

func (c *Company) Stock(product economy.Product) int64 {
	return c.stock[product]
}

func (c *Company) AddStock(product economy.Product, qty int64) {
	if qty <= 0 {
		return
	}
	c.stock[product] += qty
}

// RemoveStock takes qty units out of stock; it never lets stock go negative.
func (c *Company) RemoveStock(product economy.Product, qty int64) error {
	if qty < 0 || c.stock[product] < qty {
		return fmt.Errorf("remove %d of %s (have %d): %w", qty, product, c.stock[product], ErrInsufficientStock)
	}
	c.stock[product] -= qty
	return nil
}

// Sell moves qty units out of stock and books the revenue at unitPrice.
func (c *Company) Sell(product economy.Product, qty int64, unitPrice int) error {
	if err := c.RemoveStock(product, qty); err != nil {
		return err
	}
	amount := qty * int64(unitPrice)
	c.Cash += amount
	c.Revenue += amount
	return nil
}

// ChargeMaintenance deducts this turn's maintenance unconditionally; cash may go negative.
func (c *Company) ChargeMaintenance() int64 {
	cost := c.TotalMaintenance()
	c.Cash -= cost
	c.Costs.Maintenance += cost
	return cost
}

// Decision returns the sales decision for product, if any.
func (c *Company) Decision(product economy.Product) (Decision, bool) {
	d, ok := c.decisions[product]
	return d, ok
}

// SetDecision overwrites the whole sales decision for product.
func (c *Company) SetDecision(product economy.Product, d Decision) {
	c.decisions[product] = d
}

func (c *Company) SetDecisionCountry(product economy.Product, country economy.Country) {
	d := c.decisions[product]
	d.Country = country
	c.decisions[product] = d
}

func (c *Company) SetDecisionPrice(product economy.Product, price int) {
	d := c.decisions[product]
	d.Price = price
	c.decisions[product] = d
}

// ResetTurnAccumulators zeroes revenue and the cost breakdown.
func (c *Company) ResetTurnAccumulators() {
	c.Revenue = 0
	c.Costs = Costs{}
}

// Snapshot is a deep, read-only copy of a company's state.
type Snapshot struct {
	Name      string                                `json:"name"`
	IsPlayer  bool                                  `json:"is_player"`
	Cash      int64                                 `json:"cash"`
	Revenue   int64                                 `json:"revenue"`
	Costs     Costs                                 `json:"costs"`
	Stock     map[economy.Product]int64             `json:"stock"`
	Decisions map[economy.Product]Decision          `json:"sales_decisions"`
	Factories map[economy.Country][]FactorySnapshot `json:"factories"`
}

func (c *Company) Snapshot() Snapshot {
	stock := make(map[economy.Product]int64, len(c.stock))
	for p, q := range c.stock {
		stock[p] = q
	}
	decisions := make(map[economy.Product]Decision, len(c.decisions))
	for p, d := range c.decisions {
		decisions[p] = d
	}
	factories := make(map[economy.Country][]FactorySnapshot, len(c.factories))
	for country, fs := range c.factories {
		for _, f := range fs {
			factories[country] = append(factories[country], f.Snapshot())
		}
	}
	return Snapshot{
		Name:      c.Name,
		IsPlayer:  c.IsPlayer,
		Cash:      c.Cash,
		Revenue:   c.Revenue,
		Costs:     c.Costs,
		Stock:     stock,
		Decisions: decisions,
		Factories: factories,
	}
}

// StockedProducts returns products with a stock entry, sorted by key.
func (c *Company) StockedProducts() []economy.Product {
	products := make([]economy.Product, 0, len(c.stock))
	for p := range c.stock {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })
	return products
}

package ai

import (
	"log/slog"
	"math/rand/v2"
	"testing"

	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
)

// fixedRNG always returns the same draws.
type fixedRNG struct {
	f float64
	i int
}

func (r fixedRNG) Float64() float64 { return r.f }
func (r fixedRNG) IntN(n int) int   { return r.i % n }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func defaultCatalog(t *testing.T) *economy.Catalog {
	t.Helper()
	c, err := economy.Default()
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}
	return c
}

func personality(t *testing.T, catalog *economy.Catalog, name string) economy.PersonalitySpec {
	t.Helper()
	p, ok := catalog.Personality(name)
	if !ok {
		t.Fatalf("personality %s missing", name)
	}
	return p
}

func TestQuantileIndex(t *testing.T) {
	cases := []struct {
		position economy.PricePosition
		n        int
		want     int
	}{
		{economy.PriceVeryLow, 7, 0},
		{economy.PriceLow, 7, 1},
		{economy.PriceMiddle, 7, 3},
		{economy.PriceHigh, 7, 5},
		{economy.PricePremium, 7, 6},
		{economy.PriceVeryLow, 11, 0},
		{economy.PriceLow, 11, 2},
		{economy.PriceMiddle, 11, 5},
		{economy.PriceHigh, 11, 8},
		{economy.PricePremium, 11, 10},
		{economy.PriceLow, 1, 0},
		{economy.PriceMiddle, 1, 0},
		{economy.PriceHigh, 1, 0},
		{economy.PricePremium, 1, 0},
	}
	for _, tc := range cases {
		if got := QuantileIndex(tc.position, tc.n); got != tc.want {
			t.Errorf("QuantileIndex(%s, %d) = %d, want %d", tc.position, tc.n, got, tc.want)
		}
	}
}

func TestChoosePriceSortsOptions(t *testing.T) {
	catalog := defaultCatalog(t)
	p := NewPolicy("AI_Alpha", personality(t, catalog, "conservative"), fixedRNG{}, discardLogger())

	price, ok := p.ChoosePrice([]int{21, 15, 18, 16, 20, 17, 19})
	if !ok || price != 20 {
		t.Fatalf("high price: got %d ok=%v want 20", price, ok)
	}
	if _, ok := p.ChoosePrice(nil); ok {
		t.Fatalf("expected no price without options")
	}
}

func TestAllocationRespectsCapacity(t *testing.T) {
	catalog := defaultCatalog(t)
	products := catalog.ProductKeys()

	cases := []struct {
		name string
		want map[economy.Product]int
	}{
		{"aggressive", map[economy.Product]int{"A": 14, "B": 4, "C": 2}},
		{"balanced", map[economy.Product]int{"A": 7, "B": 7, "C": 6}},
		{"conservative", map[economy.Product]int{"A": 2, "B": 6, "C": 12}},
		{"premium", map[economy.Product]int{"A": 2, "B": 4, "C": 14}},
		{"volume", map[economy.Product]int{"A": 16, "B": 3, "C": 1}},
	}
	for _, tc := range cases {
		p := NewPolicy("x", personality(t, catalog, tc.name), fixedRNG{}, discardLogger())
		total := 0
		for _, target := range p.Allocation(20, products) {
			if tc.want[target.Product] != target.Lines {
				t.Errorf("%s: %s got %d want %d", tc.name, target.Product, target.Lines, tc.want[target.Product])
			}
			total += target.Lines
		}
		if total > 20 {
			t.Errorf("%s: allocated %d lines, capacity 20", tc.name, total)
		}
	}

	greedy := NewPolicy("x", economy.PersonalitySpec{
		ProductFocus: map[economy.Product]float64{"A": 0.8, "B": 0.8, "C": 0.8},
	}, fixedRNG{}, discardLogger())
	targets := greedy.Allocation(20, products)
	if len(targets) != 2 || targets[0].Lines != 16 || targets[1].Lines != 4 {
		t.Fatalf("capped allocation: %+v", targets)
	}
}

func TestShouldExpand(t *testing.T) {
	catalog := defaultCatalog(t)
	conservative := personality(t, catalog, "conservative")

	if !NewPolicy("x", conservative, fixedRNG{f: 0.99}, discardLogger()).ShouldExpand(1) {
		t.Fatalf("turn 1 expansion must be mandatory")
	}
	if NewPolicy("x", conservative, fixedRNG{f: 0.99}, discardLogger()).ShouldExpand(2) {
		t.Fatalf("draw above expand rate should not expand")
	}
	if !NewPolicy("x", conservative, fixedRNG{f: 0.1}, discardLogger()).ShouldExpand(2) {
		t.Fatalf("draw below expand rate should expand")
	}
}

func TestActFirstTurn(t *testing.T) {
	catalog := defaultCatalog(t)
	snap := market.NewGenerator(catalog, 10, 1).Generate(1)

	c := company.New("AI_Epsilon", false, catalog.StartingCash)
	p := NewPolicy(c.Name, personality(t, catalog, "volume"), fixedRNG{f: 0.5, i: 0}, discardLogger())

	actions := p.Act(c, 1, snap, catalog)

	if actions.Expansion.Outcome != ExpansionBought || actions.Expansion.Country != "China" {
		t.Fatalf("expansion: %+v", actions.Expansion)
	}
	if c.FactoryCount() != 1 {
		t.Fatalf("factories: %d", c.FactoryCount())
	}
	if c.Lines("China", "A") != 16 || c.Lines("China", "B") != 3 || c.Lines("China", "C") != 1 {
		t.Fatalf("lines: A=%d B=%d C=%d", c.Lines("China", "A"), c.Lines("China", "B"), c.Lines("China", "C"))
	}
	wantCash := catalog.StartingCash - 40000 - 20*80
	if c.Cash != wantCash {
		t.Fatalf("cash: got %d want %d", c.Cash, wantCash)
	}

	for _, product := range catalog.ProductKeys() {
		d, ok := c.Decision(product)
		if !ok {
			t.Fatalf("no decision for %s", product)
		}
		if d.Price != snap.PriceOptions(product)[0] {
			t.Errorf("%s: price %d, want lowest option %d", product, d.Price, snap.PriceOptions(product)[0])
		}
	}
	if d, _ := c.Decision("C"); d.Country != "USA" {
		t.Errorf("premium product sent to %s", d.Country)
	}
	if d, _ := c.Decision("A"); d.Country != "China" {
		t.Errorf("product A sent to %s", d.Country)
	}
}

func TestActSkipsUnaffordableFactory(t *testing.T) {
	catalog := defaultCatalog(t)
	snap := market.NewGenerator(catalog, 10, 3).Generate(1)

	c := company.New("AI_Alpha", false, 100)
	p := NewPolicy(c.Name, personality(t, catalog, "aggressive"), fixedRNG{}, discardLogger())

	actions := p.Act(c, 1, snap, catalog)
	if actions.Expansion.Outcome != ExpansionInsufficientFunds {
		t.Fatalf("outcome: %s", actions.Expansion.Outcome)
	}
	if c.Cash != 100 || c.FactoryCount() != 0 {
		t.Fatalf("state changed: cash=%d factories=%d", c.Cash, c.FactoryCount())
	}
	if len(actions.Allocations) != 0 {
		t.Fatalf("allocations without factories: %+v", actions.Allocations)
	}
}

func TestNewRoster(t *testing.T) {
	catalog := defaultCatalog(t)
	rng := rand.New(rand.NewPCG(7, 8))

	if got := NewRoster(-3, catalog, rng, discardLogger()); len(got) != 0 {
		t.Fatalf("negative size: %d", len(got))
	}

	roster := NewRoster(25, catalog, rng, discardLogger())
	if len(roster) != MaxComputerPlayers {
		t.Fatalf("size: got %d want %d", len(roster), MaxComputerPlayers)
	}
	if roster[0].Company != "AI_Alpha" || roster[9].Company != "AI_Kappa" {
		t.Fatalf("names: %s ... %s", roster[0].Company, roster[9].Company)
	}
	want := []string{"aggressive", "balanced", "conservative", "premium", "volume"}
	for i, name := range want {
		if roster[i].Personality.Name != name {
			t.Errorf("slot %d: got %s want %s", i, roster[i].Personality.Name, name)
		}
	}
	for _, p := range roster[5:] {
		if _, ok := catalog.Personality(p.Personality.Name); !ok {
			t.Errorf("%s has unknown personality %s", p.Company, p.Personality.Name)
		}
	}
}

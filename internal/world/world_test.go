package world

import (
	"errors"
	"log/slog"
	"testing"

	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
)

func newTestWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	catalog, err := economy.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	w, err := New(cfg, catalog, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func checkInvariants(t *testing.T, w *World, report *TurnReport) {
	t.Helper()
	for _, c := range w.companies {
		for _, p := range c.StockedProducts() {
			if c.Stock(p) < 0 {
				t.Fatalf("turn %d: %s has negative stock of %s", report.Turn, c.Name, p)
			}
		}
		for _, f := range c.AllFactories() {
			if f.TotalLinesUsed() > f.Capacity() {
				t.Fatalf("turn %d: %s factory %s over capacity", report.Turn, c.Name, f.ID())
			}
		}
	}

	snap, err := w.Parameters(report.Turn)
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	for _, country := range w.catalog.CountryNames() {
		for _, product := range w.catalog.ProductKeys() {
			if sold := report.UnitsSold(country, product); sold > int64(snap.BaseDemand(country, product)) {
				t.Fatalf("turn %d: sold %d of %s in %s over demand %d",
					report.Turn, sold, product, country, snap.BaseDemand(country, product))
			}
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	catalog, err := economy.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	logger := slog.New(slog.DiscardHandler)

	cases := []Config{
		{TotalTurns: 0},
		{TotalTurns: 51},
		{TotalTurns: 5, ComputerPlayers: 11},
		{TotalTurns: 5, ComputerPlayers: -1},
		{TotalTurns: 5, ComputerPlayers: 1, PlayerName: "AI_Alpha"},
	}
	for _, cfg := range cases {
		if _, err := New(cfg, catalog, logger); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%+v: expected ErrInvalidConfig, got %v", cfg, err)
		}
	}
}

func TestNew_Roster(t *testing.T) {
	w := newTestWorld(t, Config{TotalTurns: 5, ComputerPlayers: 3, PlayerName: "Acme"})

	companies := w.Companies()
	if len(companies) != 4 {
		t.Fatalf("companies: %d", len(companies))
	}
	if companies[0].Name != "Acme" || !companies[0].IsPlayer {
		t.Fatalf("player must come first: %+v", companies[0])
	}
	if companies[1].Name != "AI_Alpha" || companies[3].Name != "AI_Gamma" {
		t.Fatalf("roster: %s %s", companies[1].Name, companies[3].Name)
	}
	for _, c := range companies {
		if c.Cash != w.catalog.StartingCash {
			t.Fatalf("%s starts with %d", c.Name, c.Cash)
		}
	}
	if w.Turn() != 1 || w.IsGameOver() {
		t.Fatalf("turn=%d over=%v", w.Turn(), w.IsGameOver())
	}
}

// The game ends exactly after the configured number of turns.
func TestResolveTurn_EndsAfterConfiguredTurns(t *testing.T) {
	w := newTestWorld(t, Config{TotalTurns: 3, ComputerPlayers: 2, Seed: 42})

	for i := 1; i <= 3; i++ {
		if w.IsGameOver() {
			t.Fatalf("game over before turn %d", i)
		}
		report, err := w.ResolveTurn()
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if report.Turn != i {
			t.Fatalf("report turn: got %d want %d", report.Turn, i)
		}
	}

	if !w.IsGameOver() || w.Turn() != 4 {
		t.Fatalf("after 3 turns: over=%v turn=%d", w.IsGameOver(), w.Turn())
	}
	before := w.Companies()
	if _, err := w.ResolveTurn(); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if w.Turn() != 4 || len(w.History()) != 3 {
		t.Fatalf("rejected turn changed state: turn=%d history=%d", w.Turn(), len(w.History()))
	}
	if after := w.Companies(); after[1].Cash != before[1].Cash {
		t.Fatalf("rejected turn moved cash")
	}
	if _, err := w.BuyFactory("France"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("actions after game over: %v", err)
	}
	if w.CurrentParameters().Turn != 3 {
		t.Fatalf("current parameters after game over: turn %d", w.CurrentParameters().Turn)
	}
}

// Stock without a sales decision is simply not offered.
func TestResolveTurn_StockWithoutDecisionIsNotOffered(t *testing.T) {
	w := newTestWorld(t, Config{TotalTurns: 5, ComputerPlayers: 2, Seed: 7})

	if _, err := w.BuyFactory("France"); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res, err := w.SetLines("France", "A", 10); err != nil || res.Status != company.AllocationApplied {
		t.Fatalf("lines: %+v %v", res, err)
	}

	report, err := w.ResolveTurn()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sales := report.SalesFor(w.Player().Name); len(sales) != 0 {
		t.Fatalf("player without decision sold: %+v", sales)
	}
	if got := w.Player().Stock["A"]; got != 1200 {
		t.Fatalf("stock A: got %d want 1200", got)
	}
}

func TestResolveTurn_PlayerSells(t *testing.T) {
	w := newTestWorld(t, Config{TotalTurns: 5, Seed: 3})
	start := w.catalog.StartingCash

	if _, err := w.BuyFactory("France"); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := w.ModifyLines("France", "A", 10); err != nil {
		t.Fatalf("lines: %v", err)
	}
	price := w.CurrentParameters().PriceOptions("A")[0]
	if _, err := w.SetSalesCountry("A", "France"); err != nil {
		t.Fatalf("country: %v", err)
	}
	if _, err := w.SetSalesPrice("A", price); err != nil {
		t.Fatalf("price: %v", err)
	}

	report, err := w.ResolveTurn()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	checkInvariants(t, w, report)

	// 1200 units easily fit in France's demand for A.
	result := report.Companies[0]
	if result.Sold["A"] != 1200 || result.Produced["A"] != 1200 {
		t.Fatalf("produced=%d sold=%d", result.Produced["A"], result.Sold["A"])
	}
	revenue := int64(1200 * price)
	if result.Revenue != revenue {
		t.Fatalf("revenue: got %d want %d", result.Revenue, revenue)
	}
	if result.Costs.Production != 50000+1000 || result.Costs.Maintenance != 200 {
		t.Fatalf("costs: %+v", result.Costs)
	}
	wantCash := start - 50000 - 1000 - 200 + revenue
	if result.Cash != wantCash || w.Player().Cash != wantCash {
		t.Fatalf("cash: report=%d player=%d want %d", result.Cash, w.Player().Cash, wantCash)
	}

	// Accumulators are reset once the report is captured; decisions persist.
	player := w.Player()
	if player.Revenue != 0 || player.Costs.Total() != 0 {
		t.Fatalf("accumulators not reset: revenue=%d costs=%+v", player.Revenue, player.Costs)
	}
	if d := player.Decisions["A"]; d.Country != "France" || d.Price != price {
		t.Fatalf("decision lost: %+v", d)
	}
}

func TestPlayerActions_Validation(t *testing.T) {
	w := newTestWorld(t, Config{TotalTurns: 2})

	if _, err := w.BuyFactory("Spain"); !errors.Is(err, company.ErrUnknownCountry) {
		t.Fatalf("unknown country: %v", err)
	}
	if _, err := w.SetLines("France", "Z", 1); !errors.Is(err, company.ErrUnknownProduct) {
		t.Fatalf("unknown product: %v", err)
	}
	if _, err := w.SetSalesPrice("A", 0); !errors.Is(err, company.ErrInvalidDecision) {
		t.Fatalf("zero price: %v", err)
	}
	res, err := w.SetLines("France", "A", 3)
	if err != nil || res.Status != company.AllocationNoFactories {
		t.Fatalf("no factories: %+v %v", res, err)
	}
	if _, err := w.Parameters(3); !errors.Is(err, ErrTurnOutOfRange) {
		t.Fatalf("parameters out of range: %v", err)
	}
	if _, err := w.Company("nobody"); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("company lookup: %v", err)
	}
}

func TestResolveTurn_FullGameInvariants(t *testing.T) {
	w := newTestWorld(t, Config{TotalTurns: 20, ComputerPlayers: 10, Seed: 2024})

	for !w.IsGameOver() {
		report, err := w.ResolveTurn()
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		checkInvariants(t, w, report)

		if len(report.Ranking) != 11 {
			t.Fatalf("ranking size: %d", len(report.Ranking))
		}
		for i := 1; i < len(report.Ranking); i++ {
			if report.Ranking[i-1].Cash < report.Ranking[i].Cash {
				t.Fatalf("turn %d: ranking not sorted by cash", report.Turn)
			}
		}
		if len(report.ComputerActions) != 10 {
			t.Fatalf("computer actions: %d", len(report.ComputerActions))
		}
	}

	if len(w.History()) != 20 {
		t.Fatalf("history: %d", len(w.History()))
	}
}

func TestResolveTurn_SameSeedSameOutcome(t *testing.T) {
	run := func() []string {
		w := newTestWorld(t, Config{TotalTurns: 8, ComputerPlayers: 6, Seed: 99})
		var digests []string
		for !w.IsGameOver() {
			report, err := w.ResolveTurn()
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			digests = append(digests, report.Digest)
		}
		return digests
	}

	a, b := run(), run()
	for i := range a {
		if a[i] == "" || a[i] != b[i] {
			t.Fatalf("turn %d digests differ: %q vs %q", i+1, a[i], b[i])
		}
	}
}

func TestParameters_FutureLookupDoesNotChangeOutcome(t *testing.T) {
	plain := newTestWorld(t, Config{TotalTurns: 10, ComputerPlayers: 4, Seed: 42})
	peeked := newTestWorld(t, Config{TotalTurns: 10, ComputerPlayers: 4, Seed: 42})

	if _, err := peeked.Parameters(9); err != nil {
		t.Fatalf("parameters: %v", err)
	}

	for turn := 1; turn <= 4; turn++ {
		a, err := plain.ResolveTurn()
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		b, err := peeked.ResolveTurn()
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if a.Digest != b.Digest {
			t.Fatalf("turn %d digests differ after looking ahead: %s vs %s", turn, a.Digest, b.Digest)
		}
	}
}

func TestRanking_StableOnTies(t *testing.T) {
	w := newTestWorld(t, Config{TotalTurns: 2, ComputerPlayers: 3})

	ranking := w.Ranking()
	want := []string{w.Player().Name, "AI_Alpha", "AI_Beta", "AI_Gamma"}
	for i, name := range want {
		if ranking[i].Name != name || ranking[i].Rank != i+1 {
			t.Fatalf("rank %d: got %+v want %s", i+1, ranking[i], name)
		}
	}
}

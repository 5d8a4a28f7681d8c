package economy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_MatchesReferenceProfile(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default profile: %v", err)
	}

	usa, ok := c.Country("USA")
	if !ok {
		t.Fatalf("USA missing from default profile")
	}
	if usa.BaseLineCost != 130 || usa.Efficiency != 1.5 || usa.Capacity != 20 || usa.MaintenancePerLine != 20 {
		t.Fatalf("unexpected USA profile: %+v", usa)
	}

	if got := c.ProductKeys(); len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("unexpected product order: %v", got)
	}

	a, _ := c.Product("A")
	if a.BaseDemand["France"] != 5000 || a.BasePrice != 18 || a.PriceSpread != 3 {
		t.Fatalf("unexpected product A: %+v", a)
	}

	if len(c.Personalities) != 5 || c.Personalities[0].Name != "aggressive" || c.Personalities[4].Name != "volume" {
		t.Fatalf("unexpected personalities: %+v", c.Personalities)
	}
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	c1, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	c1.Countries[0].Capacity = 99

	c2, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if c2.Countries[0].Capacity == 99 {
		t.Fatalf("default profile shared between callers")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "economy.yaml")
	raw := strings.Replace(string(defaultProfile), "starting_cash: 10000000", "starting_cash: 500", 1)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.StartingCash != 500 {
		t.Fatalf("starting cash: got %d want 500", c.StartingCash)
	}
}

func TestParse_RejectsInvalidProfiles(t *testing.T) {
	cases := map[string]string{
		"unknown premium market": strings.Replace(string(defaultProfile), "premium_markets: [USA, France]", "premium_markets: [Mars]", 1),
		"bad price position":     strings.Replace(string(defaultProfile), "price_position: very_low", "price_position: cheapest", 1),
		"zero capacity":          strings.Replace(string(defaultProfile), "max_capacity: 20", "max_capacity: 0", 1),
		"not yaml":               "countries: [",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

package world

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"lukechampine.com/blake3"

	"marketsim-server/internal/ai"
	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
)

// Ranking orders companies by cash, richest first; ties keep roster order.
func (w *World) Ranking() []RankEntry {
	return rank(w.companies)
}

func rank(companies []*company.Company) []RankEntry {
	ordered := append([]*company.Company(nil), companies...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Cash > ordered[j].Cash
	})

	entries := make([]RankEntry, len(ordered))
	for i, c := range ordered {
		entries[i] = RankEntry{
			Rank:     i + 1,
			Name:     c.Name,
			IsPlayer: c.IsPlayer,
			Cash:     c.Cash,
		}
	}
	return entries
}

func (w *World) buildReport(snap *market.TurnSnapshot, actions []ai.Actions, produced map[string]map[economy.Product]int64, sales []Sale) *TurnReport {
	sold := make(map[string]map[economy.Product]int64, len(w.companies))
	for _, s := range sales {
		if sold[s.Company] == nil {
			sold[s.Company] = make(map[economy.Product]int64)
		}
		sold[s.Company][s.Product] += s.Quantity
	}

	results := make([]CompanyResult, len(w.companies))
	for i, c := range w.companies {
		snapshot := c.Snapshot()
		results[i] = CompanyResult{
			Name:      c.Name,
			IsPlayer:  c.IsPlayer,
			Cash:      c.Cash,
			Revenue:   c.Revenue,
			Costs:     c.Costs,
			Profit:    c.Revenue - c.Costs.Total(),
			Stock:     snapshot.Stock,
			Produced:  produced[c.Name],
			Sold:      sold[c.Name],
			Factories: c.FactoryCount(),
		}
	}

	return &TurnReport{
		Turn:            w.turn,
		Climate:         snap.Climate,
		Sales:           sales,
		Companies:       results,
		Ranking:         rank(w.companies),
		ComputerActions: actions,
		Digest:          digest(w.turn, results),
	}
}

// digest fingerprints the end-of-turn company state so two runs with the same
// seed and actions can be compared.
func digest(turn int, results []CompanyResult) string {
	payload, err := json.Marshal(struct {
		Turn      int             `json:"turn"`
		Companies []CompanyResult `json:"companies"`
	}{turn, results})
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

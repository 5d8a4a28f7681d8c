package ai

import (
	"log/slog"

	"marketsim-server/internal/economy"
)

// MaxComputerPlayers bounds the roster size.
const MaxComputerPlayers = 10

var rosterNames = [MaxComputerPlayers]string{
	"AI_Alpha", "AI_Beta", "AI_Gamma", "AI_Delta", "AI_Epsilon",
	"AI_Zeta", "AI_Eta", "AI_Theta", "AI_Iota", "AI_Kappa",
}

// fixedSlots is how many roster slots cycle through the personalities in profile
// order; the rest draw a personality at random.
const fixedSlots = 5

// NewRoster builds n computer-player policies, n clamped to [0, MaxComputerPlayers].
func NewRoster(n int, catalog *economy.Catalog, rng RNG, logger *slog.Logger) []*Policy {
	n = max(0, min(n, MaxComputerPlayers))

	personalities := catalog.Personalities
	roster := make([]*Policy, 0, n)
	for i := range n {
		var personality economy.PersonalitySpec
		if i < fixedSlots {
			personality = personalities[i%len(personalities)]
		} else {
			personality = personalities[rng.IntN(len(personalities))]
		}
		roster = append(roster, NewPolicy(rosterNames[i], personality, rng, logger))
	}

	logger.Debug("Computer players generated", "component", "ai_roster", "count", len(roster))
	return roster
}

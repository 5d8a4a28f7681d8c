package game

import (
	"encoding/json"

	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
)

// CreateGameRequest leaves optional fields nil to take the configured defaults.
type CreateGameRequest struct {
	PlayerName      string  `json:"player_name"`
	TotalTurns      *int    `json:"total_turns"`
	ComputerPlayers *int    `json:"computer_players"`
	Seed            *uint64 `json:"seed"`
}

type BuyFactoryRequest struct {
	Country economy.Country `json:"country"`
}

// LinesRequest carries exactly one of Delta or Target.
type LinesRequest struct {
	Country economy.Country `json:"country"`
	Product economy.Product `json:"product"`
	Delta   *int            `json:"delta"`
	Target  *int            `json:"target"`
}

const (
	DecisionFieldCountry = "country"
	DecisionFieldPrice   = "price"
)

type DecisionRequest struct {
	Product economy.Product `json:"product"`
	Field   string          `json:"field"`
	Value   json.RawMessage `json:"value"`
}

// State is the public summary of the active game.
type State struct {
	GameID          string `json:"game_id"`
	Turn            int    `json:"turn"`
	TotalTurns      int    `json:"total_turns"`
	GameOver        bool   `json:"game_over"`
	PlayerName      string `json:"player_name"`
	ComputerPlayers int    `json:"computer_players"`
	Seed            uint64 `json:"seed"`
}

// Session is returned when a game is created: the player's token and the new game.
type Session struct {
	Token  string           `json:"token"`
	State  State            `json:"game"`
	Player company.Snapshot `json:"player"`
}

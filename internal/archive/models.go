package archive

import "errors"

var (
	ErrNotFound    = errors.New("archived turn not found")
	ErrBrokenChain = errors.New("archive hash chain is broken")
)

// Record is the stored metadata of one archived turn.
type Record struct {
	GameID    string `json:"game_id"`
	Turn      int    `json:"turn"`
	Digest    string `json:"digest"`
	PrevHash  string `json:"prev_hash"`
	FinalHash string `json:"final_hash"`
	RawSize   int    `json:"raw_size"`
	Stored    int    `json:"stored_size"`
}

// GenesisHash is the predecessor of every game's first turn.
const GenesisHash = "GENESIS"

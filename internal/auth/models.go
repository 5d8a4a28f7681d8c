package auth

import "github.com/golang-jwt/jwt/v5"

// Claims identify the human player of one game.
type Claims struct {
	GameID  string `json:"game_id"`
	Company string `json:"company"`
	jwt.RegisteredClaims
}

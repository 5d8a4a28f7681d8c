package auth

import (
	"log/slog"

	"marketsim-server/internal/shared/errors"
)

// Service issues and checks the session tokens of human players.
type Service struct {
	tokens *TokenManager
	logger *slog.Logger
}

func NewService(tokens *TokenManager, logger *slog.Logger) *Service {
	logger.Debug("Initializing auth service")

	return &Service{
		tokens: tokens,
		logger: logger,
	}
}

func (s *Service) IssueSession(gameID, company string) (string, error) {
	token, err := s.tokens.Generate(gameID, company)
	if err != nil {
		return "", errors.WrapInternal("failed to issue session token", err)
	}
	s.logger.Debug("Session issued", "component", "auth_service", "game_id", gameID, "company", company)
	return token, nil
}

// Authenticate returns the claims of a valid token, or an unauthorized error.
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, errors.WrapUnauthorized("invalid session token", err)
	}
	return claims, nil
}

package auth

import (
	"context"
	"log/slog"

	"github.com/finances-api/finances/internal/identity"
)

// Authenticator verifies an email and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (identity.User, error)
}

// Service exchanges credentials for bearer tokens.
type Service struct {
	users  Authenticator
	tokens *TokenService
	logger *slog.Logger
}

// NewService builds a login service.
func NewService(users Authenticator, tokens *TokenService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

// TokenPair is the login result: the signed token and its expiry in epoch
// milliseconds.
type TokenPair struct {
	Token      string `json:"token"`
	Expiration int64  `json:"expiration"`
}

// Login authenticates the credentials and issues a token for the user.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("login rejected", "error", err)
		return TokenPair{}, err
	}
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return TokenPair{}, err
	}
	s.logger.Info("login succeeded", "user_id", user.ID)
	return TokenPair{Token: token, Expiration: exp}, nil
}

package auth

import (
	"context"
	"time"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/models"
)

type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Token is the login response payload.
type Token struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

type Service struct {
	users  UserFinder
	tokens *TokenIssuer
	log    logger.Logger
}

func NewService(users UserFinder, tokens *TokenIssuer, log logger.Logger) *Service {
	return &Service{users: users, tokens: tokens, log: log}
}

// Login checks the credentials and issues an access token. Unknown users
// and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		s.log.Warn("incorrect credentials", map[string]interface{}{"username": username})
		return nil, apperrors.NewInvalidCredentialsError()
	}

	signed, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires, User: user}, nil
}

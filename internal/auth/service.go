package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrBadCredentials = errors.New("invalid credentials")

type Service struct {
	credentials CredentialStore
	tokens      *TokenService
}

func NewService(credentials CredentialStore, tokens *TokenService) *Service {
	return &Service{credentials: credentials, tokens: tokens}
}

func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Token{}, ErrBadCredentials
	}

	ok, err := s.credentials.Verify(ctx, username, password)
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, ErrBadCredentials
	}

	return s.tokens.Issue(username)
}

func (s *Service) Register(ctx context.Context, username, password string) error {
	return s.credentials.Register(ctx, username, password)
}

// BootstrapFromEnv seeds the admin credential. Both values empty means no seed.
func (s *Service) BootstrapFromEnv(ctx context.Context, adminUsername, adminPassword string) error {
	adminUsername = strings.TrimSpace(adminUsername)

	if adminUsername == "" && adminPassword == "" {
		return nil
	}
	if adminUsername == "" || adminPassword == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required together")
	}

	return s.credentials.Register(ctx, adminUsername, adminPassword)
}

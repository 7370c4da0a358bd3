package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("username and password are required")
	ErrStorageUnavailable = errors.New("credential storage unavailable")
)

// CredentialStore keeps username to password-hash mappings. Register
// overwrites any existing entry for the username.
type CredentialStore interface {
	Register(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) (bool, error)
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidInput
	}
	return username, nil
}

type MemoryCredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]Credential
	cost        int
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		credentials: make(map[string]Credential),
		cost:        bcrypt.DefaultCost,
	}
}

func (s *MemoryCredentialStore) Register(ctx context.Context, username, password string) error {
	username, err := normalizeCredentials(username, password)
	if err != nil {
		return err
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[username] = Credential{
		Username:     username,
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
	}
	return nil
}

func (s *MemoryCredentialStore) Verify(ctx context.Context, username, password string) (bool, error) {
	s.mu.RLock()
	credential, ok := s.credentials[strings.TrimSpace(username)]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	return checkPassword(credential.PasswordHash, password), nil
}

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type PostgresCredentialStore struct {
	db   *sql.DB
	cost int
}

func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db, cost: bcrypt.DefaultCost}
}

func (s *PostgresCredentialStore) Register(ctx context.Context, username, password string) error {
	username, err := normalizeCredentials(username, password)
	if err != nil {
		return err
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_credentials (username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (username)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at
	`, username, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: upsert credential: %w", ErrStorageUnavailable, err)
	}

	return nil
}

func (s *PostgresCredentialStore) Verify(ctx context.Context, username, password string) (bool, error) {
	credential, err := s.get(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return checkPassword(credential.PasswordHash, password), nil
}

func (s *PostgresCredentialStore) get(ctx context.Context, username string) (Credential, error) {
	var credential Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, updated_at
		FROM auth_credentials
		WHERE username = $1
	`, username).Scan(&credential.Username, &credential.PasswordHash, &credential.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, err
		}
		return Credential{}, fmt.Errorf("%w: query credential: %w", ErrStorageUnavailable, err)
	}

	return credential, nil
}

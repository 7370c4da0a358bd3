package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (s failingStore) Register(ctx context.Context, username, password string) error {
	return s.err
}

func (s failingStore) Verify(ctx context.Context, username, password string) (bool, error) {
	return false, s.err
}

func newTestService(t *testing.T) (*Service, *MemoryCredentialStore, *TokenService) {
	t.Helper()
	store := newTestMemoryStore()
	tokens, err := NewTokenService("test-secret", time.Minute)
	require.NoError(t, err)
	return NewService(store, tokens), store, tokens
}

func TestServiceRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newTestService(t)

	require.NoError(t, svc.Register(ctx, "alice", "wonderland"))

	token, err := svc.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)

	subject, err := tokens.Verify(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestServiceLoginBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.Register(ctx, "alice", "wonderland"))

	cases := []struct{ username, password string }{
		{"alice", "looking-glass"},
		{"bob", "wonderland"},
		{"", "wonderland"},
		{"alice", ""},
	}
	for _, tc := range cases {
		_, err := svc.Login(ctx, tc.username, tc.password)
		assert.ErrorIs(t, err, ErrBadCredentials, "%+v", tc)
	}
}

func TestServiceLoginPropagatesStorageErrors(t *testing.T) {
	tokens, err := NewTokenService("test-secret", time.Minute)
	require.NoError(t, err)
	storeErr := errors.Join(ErrStorageUnavailable, errors.New("connection refused"))
	svc := NewService(failingStore{err: storeErr}, tokens)

	_, err = svc.Login(context.Background(), "alice", "wonderland")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrBadCredentials)
}

func TestServiceBootstrapFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Run("no seed", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		require.NoError(t, svc.BootstrapFromEnv(ctx, "", ""))
		assert.Empty(t, store.credentials)
	})

	t.Run("seeds admin", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		require.NoError(t, svc.BootstrapFromEnv(ctx, " admin ", "admin123"))

		_, err := svc.Login(ctx, "admin", "admin123")
		assert.NoError(t, err)
	})

	t.Run("half configured", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		assert.Error(t, svc.BootstrapFromEnv(ctx, "admin", ""))
		assert.Error(t, svc.BootstrapFromEnv(ctx, "", "admin123"))
	})
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// RedisCredentialStore keeps every credential as a field of a single hash.
type RedisCredentialStore struct {
	client *redis.Client
	key    string
	cost   int
}

// NewRedisClient connects and pings so misconfiguration fails at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func NewRedisCredentialStore(client *redis.Client, key string) *RedisCredentialStore {
	return &RedisCredentialStore{client: client, key: key, cost: bcrypt.DefaultCost}
}

func (s *RedisCredentialStore) Register(ctx context.Context, username, password string) error {
	username, err := normalizeCredentials(username, password)
	if err != nil {
		return err
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}

	if err := s.client.HSet(ctx, s.key, username, hash).Err(); err != nil {
		return fmt.Errorf("%w: hset credential: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisCredentialStore) Verify(ctx context.Context, username, password string) (bool, error) {
	hash, err := s.client.HGet(ctx, s.key, strings.TrimSpace(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: hget credential: %w", ErrStorageUnavailable, err)
	}

	return checkPassword(hash, password), nil
}

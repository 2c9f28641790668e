package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps the digest of the current refresh token per user. A
// refresh token is only honoured while its digest is the stored one, so
// rotating on refresh invalidates the previous token.
type SessionStore struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &SessionStore{client: client}, nil
}

func (s *SessionStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis.SessionStore.Close: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.SessionStore.Ping: %w", err)
	}
	return nil
}

// Save records digest as the only valid refresh token for the user until ttl
// elapses.
func (s *SessionStore) Save(ctx context.Context, schema string, uid int64, digest string, ttl time.Duration) error {
	if err := s.client.Set(ctx, SessionKey(schema, uid), digest, ttl).Err(); err != nil {
		return fmt.Errorf("redis.SessionStore.Save: %w", err)
	}
	return nil
}

// Matches reports whether digest is the stored refresh digest for the user.
// A missing or expired session is not an error.
func (s *SessionStore) Matches(ctx context.Context, schema string, uid int64, digest string) (bool, error) {
	stored, err := s.client.Get(ctx, SessionKey(schema, uid)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis.SessionStore.Matches: %w", err)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1, nil
}

func (s *SessionStore) Revoke(ctx context.Context, schema string, uid int64) error {
	if err := s.client.Del(ctx, SessionKey(schema, uid)).Err(); err != nil {
		return fmt.Errorf("redis.SessionStore.Revoke: %w", err)
	}
	return nil
}

// SessionKey returns the Redis key holding a user's refresh digest.
func SessionKey(schema string, uid int64) string {
	return "session:" + schema + ":" + strconv.FormatInt(uid, 10)
}

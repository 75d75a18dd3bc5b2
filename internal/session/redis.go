package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiquetera/internal/shared/constants"
	"tiquetera/pkg/cache"
)

// RedisStore keeps the session in Redis so several shells or hosts share
// one login.
type RedisStore struct {
	cache cache.Service
	key   string
	ttl   time.Duration
}

// NewRedisStore returns a store for profile. ttl of zero never expires.
func NewRedisStore(svc cache.Service, profile string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		cache: svc,
		key:   constants.BuildSessionKey(profile),
		ttl:   ttl,
	}
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	if err := r.cache.Set(ctx, r.key, s, r.ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (Session, error) {
	var s Session
	err := r.cache.Get(ctx, r.key, &s)
	if errors.Is(err, cache.ErrCacheMiss) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Token(ctx context.Context) (string, error) {
	return tokenFrom(ctx, r)
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.cache.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

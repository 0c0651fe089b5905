package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	sessionKeyPrefix  = "session:"
	DefaultSessionTTL = 14 * 24 * time.Hour
	createAttempts    = 3
)

var ErrSessionIDExhausted = errors.New("could not allocate session id")

// RedisAdapter stores sessions as JSON blobs with a sliding TTL.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

var _ port.SessionRepository = (*RedisAdapter)(nil)

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create reserves a fresh ID with SETNX so two clients can never share one.
func (r *RedisAdapter) Create(ctx context.Context) (*domain.Session, error) {
	for range createAttempts {
		id := uuid.NewString()
		ok, err := r.client.SetNX(ctx, sessionKey(id), "{}", r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve session: %w", err)
		}
		if ok {
			return domain.NewSession(id), nil
		}
	}
	return nil, ErrSessionIDExhausted
}

func (r *RedisAdapter) Load(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return domain.RestoreSession(id, data)
}

func (r *RedisAdapter) Save(ctx context.Context, s *domain.Session) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

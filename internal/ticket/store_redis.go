package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const ticketKeyPrefix = "padron:ticket:"

// RedisStore shares the ticket cache across instances. Redis SET is atomic
// per key, which satisfies the per-fingerprint atomicity contract without
// any extra locking. Keys expire shortly after the ticket itself so stale
// entries clean themselves up.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an externally managed Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, fp Fingerprint) (CachedTicket, error) {
	raw, err := s.client.Get(ctx, ticketKeyPrefix+string(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedTicket{}, ErrNotFound
	}
	if err != nil {
		return CachedTicket{}, err
	}
	var cached CachedTicket
	if err := json.Unmarshal(raw, &cached); err != nil {
		// Corrupt payloads read as a miss.
		return CachedTicket{}, ErrNotFound
	}
	if cached.Token == "" || cached.Sign == "" {
		return CachedTicket{}, ErrNotFound
	}
	return cached, nil
}

func (s *RedisStore) Put(ctx context.Context, fp Fingerprint, t CachedTicket) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	// Keep the key a bit past expiry; the authenticator still checks
	// ExpiresAt itself, this only bounds storage.
	ttl := time.Until(t.ExpiresAt) + time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}
	return s.client.Set(ctx, ticketKeyPrefix+string(fp), raw, ttl).Err()
}

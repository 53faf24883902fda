// Package redis stores order idempotency keys in Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
)

// inFlight marks a key whose commit has not finished.
const inFlight = "-"

var _ order.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore implements order.IdempotencyStore with SET NX. Keys
// expire after ttl.
type IdempotencyStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewIdempotencyStore returns a store that namespaces keys under prefix.
func NewIdempotencyStore(client redis.Cmdable, prefix string, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *IdempotencyStore) key(k string) string {
	return fmt.Sprintf("%s:idempotency:%s", s.prefix, k)
}

// Reserve claims key with SET NX or reports the order bound to it.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	claimed, err := s.client.SetNX(ctx, s.key(key), inFlight, s.ttl).Result()
	if err != nil {
		return "", false, errors.Wrap(err, "setnx")
	}
	if claimed {
		return "", true, nil
	}

	v, err := s.client.Get(ctx, s.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil), err == nil && v == inFlight:
		// Expired between the two calls or still running.
		return "", false, nil
	case err != nil:
		return "", false, errors.Wrap(err, "get")
	}
	return v, false, nil
}

// Complete binds key to orderID for the rest of the TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	if err := s.client.Set(ctx, s.key(key), orderID, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set")
	}
	return nil
}

// Release deletes key so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Wrap(err, "del")
	}
	return nil
}

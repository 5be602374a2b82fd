package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRequestInProgress is returned when the same idempotency key is already
// being processed by another request.
var ErrRequestInProgress = errors.New("request with this idempotency key is in progress")

const pendingMarker = "__pending__"

// IdempotencyStore remembers the response of a completed request for a TTL.
type IdempotencyStore interface {
	// Begin claims key. When a previous request already completed, its stored
	// response is returned with claimed=false.
	Begin(ctx context.Context, userID uuid.UUID, key string) (stored []byte, claimed bool, err error)
	Complete(ctx context.Context, userID uuid.UUID, key string, response []byte) error
	Release(ctx context.Context, userID uuid.UUID, key string) error
}

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) getKey(userID uuid.UUID, key string) string {
	return fmt.Sprintf("idem:checkout:%s:%s", userID, key)
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, userID uuid.UUID, key string) ([]byte, bool, error) {
	k := s.getKey(userID, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, true, nil
	}

	val, err := s.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		// expired between SETNX and GET; try once more
		ok, err = s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return nil, false, err
		}
		if ok {
			return nil, true, nil
		}
		return nil, false, ErrRequestInProgress
	}
	if err != nil {
		return nil, false, err
	}
	if string(val) == pendingMarker {
		return nil, false, ErrRequestInProgress
	}
	return val, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, userID uuid.UUID, key string, response []byte) error {
	return s.client.Set(ctx, s.getKey(userID, key), response, s.ttl).Err()
}

// Release drops a claim so the client can retry after a failed request.
func (s *RedisIdempotencyStore) Release(ctx context.Context, userID uuid.UUID, key string) error {
	return s.client.Del(ctx, s.getKey(userID, key)).Err()
}

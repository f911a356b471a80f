package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gymbot:session:"

// RedisStore хранит сессии в Redis как JSON с TTL; просроченные ключи
// удаляет сам Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (Session, error) {
	data, err := r.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, userID int64, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := r.client.Set(ctx, key(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

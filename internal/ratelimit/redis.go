package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

// ErrContention возвращается, если оптимистичная транзакция не удалась
// после всех повторов.
var ErrContention = errors.New("rate limit record contention")

const redisMaxRetries = 10

// RedisStore хранит записи в хэшах Redis. Ключ истекает в reset_at,
// поэтому Redis удаляет старые окна сам.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore создаёт хранилище поверх клиента go-redis.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit"}
}

func (s *RedisStore) key(identifier, action string) string {
	return s.prefix + ":" + action + ":" + identifier
}

// Consume выполняет шаг в WATCH/MULTI и повторяет его при конфликте.
func (s *RedisStore) Consume(ctx context.Context, identifier, action string, apply ApplyFunc) (bool, error) {
	const op = "ratelimit.RedisStore.Consume"

	key := s.key(identifier, action)
	var allowed bool

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, "count", "reset_at").Result()
		if err != nil {
			return err
		}
		rec, found, err := decodeRecord(identifier, action, vals)
		if err != nil {
			return err
		}

		next, ok := apply(rec, found)
		allowed = ok

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "count", next.Count, "reset_at", next.ResetAt.UnixMilli())
			pipe.PExpireAt(ctx, key, next.ResetAt)
			return nil
		})
		return err
	}

	for range redisMaxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return allowed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return false, fmt.Errorf("%s: %w", op, ErrContention)
}

// Sweep ничего не делает: ключи истекают по PEXPIREAT.
func (s *RedisStore) Sweep(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func decodeRecord(identifier, action string, vals []any) (models.RateLimitRecord, bool, error) {
	rec := models.RateLimitRecord{Identifier: identifier, Action: action}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return rec, false, nil
	}
	countStr, ok1 := vals[0].(string)
	resetStr, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return rec, false, fmt.Errorf("unexpected rate limit record types %T, %T", vals[0], vals[1])
	}
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return rec, false, fmt.Errorf("parse count: %w", err)
	}
	resetMs, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return rec, false, fmt.Errorf("parse reset_at: %w", err)
	}
	rec.Count = count
	rec.ResetAt = time.UnixMilli(resetMs)
	return rec, true, nil
}

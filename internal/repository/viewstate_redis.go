package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

// redisViewState хранит снимки сессии в одном Redis hash.
// Используется при нескольких экземплярах консоли.
type redisViewState struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewState создаёт хранилище снимков в Redis.
func NewRedisViewState(client *redis.Client, ttl time.Duration) ViewStateRepository {
	return &redisViewState{client: client, ttl: ttl}
}

func (r *redisViewState) Get(ctx context.Context, sessionID, key string) ([]model.Record, error) {
	data, err := r.client.HGet(ctx, redisViewStateKey(sessionID), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			viewStateMissesTotal.Inc()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение view state %s: %w", key, err)
	}

	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("разбор view state %s: %w", key, err)
	}
	viewStateHitsTotal.Inc()
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}

func (r *redisViewState) Put(ctx context.Context, sessionID, key string, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("сериализация view state %s: %w", key, err)
	}

	hashKey := redisViewStateKey(sessionID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, hashKey, key, data)
	pipe.Expire(ctx, hashKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("запись view state %s: %w", key, err)
	}
	return nil
}

func (r *redisViewState) DropSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisViewStateKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("удаление view state: %w", err)
	}
	return nil
}

func redisViewStateKey(sessionID string) string {
	return "hrm-console:viewstate:" + sessionID
}

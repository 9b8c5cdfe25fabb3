package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	turnKeyPrefix = "voxgate:turns:"
	// Transcript keys expire after a day of inactivity.
	turnKeyTTL = 24 * time.Hour
	// Keep a generous tail per session so any realistic window fits.
	maxStoredTurns = 200
)

// RedisStore keeps per-session transcripts in a Redis list, newest at the tail.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SaveTurn(ctx context.Context, record TurnRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := s.key(record.SessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, val)
	pipe.LTrim(ctx, key, int64(-maxStoredTurns), -1)
	pipe.Expire(ctx, key, turnKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	vals, err := s.client.LRange(ctx, s.key(sessionID), int64(-limit), -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}

	items := make([]TurnRecord, 0, len(vals))
	for _, v := range vals {
		var r TurnRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		items = append(items, r)
	}
	return items, nil
}

func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("reset turns: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(sessionID string) string {
	return turnKeyPrefix + sessionID
}

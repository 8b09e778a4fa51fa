// Package notifications keeps short-lived per-user messages in Redis until
// the client collects them.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxPending = 50

type Queue interface {
	Push(ctx context.Context, userID string, n models.Notification) error
	// Drain returns and removes everything queued for the user, oldest first.
	Drain(ctx context.Context, userID string) ([]models.Notification, error)
}

// EmptyQueue serves deployments without order events: nothing is ever
// queued, so every drain is empty.
type EmptyQueue struct{}

func (EmptyQueue) Push(context.Context, string, models.Notification) error { return nil }

func (EmptyQueue) Drain(context.Context, string) ([]models.Notification, error) {
	return []models.Notification{}, nil
}

func InitRedis(addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

type RedisQueue struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisQueue(rdb *redis.Client, ttl time.Duration) *RedisQueue {
	return &RedisQueue{rdb: rdb, ttl: ttl}
}

func key(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

func (q *RedisQueue) Push(ctx context.Context, userID string, n models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	k := key(userID)
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, data)
		pipe.LTrim(ctx, k, -maxPending, -1)
		pipe.Expire(ctx, k, q.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}
	return nil
}

func (q *RedisQueue) Drain(ctx context.Context, userID string) ([]models.Notification, error) {
	k := key(userID)
	var entries *redis.StringSliceCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		entries = pipe.LRange(ctx, k, 0, -1)
		pipe.Del(ctx, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain notifications: %w", err)
	}

	return decode(entries.Val()), nil
}

// decode skips entries that are not valid notifications.
func decode(entries []string) []models.Notification {
	out := make([]models.Notification, 0, len(entries))
	for _, entry := range entries {
		var n models.Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil || n.Message == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

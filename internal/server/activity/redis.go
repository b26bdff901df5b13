// Package activity tracks daily active users in Redis. Each UTC day has a
// set of user ids with a retention TTL; DAU/MAU are set cardinalities over
// one or thirty days. Tracking is best-effort and never blocks a request.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "lexify:active:"
	retention = 35 * 24 * time.Hour
	mauWindow = 30
)

// Tracker records per-day user activity.
type Tracker struct {
	client *redis.Client
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr string) (*Tracker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Tracker{client: client}, nil
}

// NewTracker wraps an existing client (used by tests).
func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func dayKey(day time.Time) string {
	return keyPrefix + day.UTC().Format("2006-01-02")
}

// Touch marks userID active today.
func (t *Tracker) Touch(ctx context.Context, userID string) error {
	key := dayKey(time.Now())

	if err := t.client.SAdd(ctx, key, userID).Err(); err != nil {
		return fmt.Errorf("error adding to activity set: %w", err)
	}
	if err := t.client.Expire(ctx, key, retention).Err(); err != nil {
		return fmt.Errorf("error setting activity ttl: %w", err)
	}
	return nil
}

// DailyActive returns the number of distinct users active today.
func (t *Tracker) DailyActive(ctx context.Context) (int64, error) {
	n, err := t.client.SCard(ctx, dayKey(time.Now())).Result()
	if err != nil {
		return 0, fmt.Errorf("error reading activity set: %w", err)
	}
	return n, nil
}

// MonthlyActive returns the number of distinct users active over the last
// thirty days, including today.
func (t *Tracker) MonthlyActive(ctx context.Context) (int64, error) {
	keys := make([]string, 0, mauWindow)
	now := time.Now()
	for i := 0; i < mauWindow; i++ {
		keys = append(keys, dayKey(now.AddDate(0, 0, -i)))
	}

	users, err := t.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("error reading activity sets: %w", err)
	}
	return int64(len(users)), nil
}

// Close closes the Redis connection.
func (t *Tracker) Close() error {
	return t.client.Close()
}

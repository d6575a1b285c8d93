package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	suppressionKey = "email:suppressed"
	deliveredTTL   = 30 * 24 * time.Hour
)

// RedisGuard keeps the suppression list and the per-job delivery markers.
type RedisGuard struct {
	client *redis.Client
	TTL    time.Duration
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client, TTL: deliveredTTL}
}

func deliveredKey(jobID string) string {
	return "email:delivered:" + jobID
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func (g *RedisGuard) Suppressed(ctx context.Context, addr string) (bool, error) {
	return g.client.SIsMember(ctx, suppressionKey, normalizeAddress(addr)).Result()
}

// AddSuppressions returns how many addresses were newly added.
func (g *RedisGuard) AddSuppressions(ctx context.Context, addrs ...string) (int64, error) {
	members := make([]any, 0, len(addrs))
	for _, a := range addrs {
		if a = normalizeAddress(a); a != "" {
			members = append(members, a)
		}
	}
	if len(members) == 0 {
		return 0, nil
	}
	return g.client.SAdd(ctx, suppressionKey, members...).Result()
}

// MarkDelivered sets the job's delivery marker. It reports false when the
// marker already existed, meaning the job has been handed to SMTP before.
func (g *RedisGuard) MarkDelivered(ctx context.Context, jobID string) (bool, error) {
	return g.client.SetNX(ctx, deliveredKey(jobID), time.Now().UTC().Format(time.RFC3339), g.TTL).Result()
}

// Release drops the marker after a failed send.
func (g *RedisGuard) Release(ctx context.Context, jobID string) error {
	return g.client.Del(ctx, deliveredKey(jobID)).Err()
}

package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

const (
	exploreCachePrefix = "storywall:cache:explore"
	jobStatusPrefix    = "storywall:job"
)

// Generation runs synchronously, so job statuses only need to outlive
// the polling clients of one run.
const jobStatusTTL = time.Hour

func ConnectRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		slog.Warn("REDIS_URL environment variable is not set")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	Redis = redis.NewClient(opt)

	_, err = Redis.Ping(context.Background()).Result()
	return err
}

func CloseRedis() {
	if Redis != nil {
		Redis.Close()
	}
}

func ExploreCacheKey(limit, offset int) string {
	return fmt.Sprintf("%s:%d:%d", exploreCachePrefix, limit, offset)
}

func CacheSet(ctx context.Context, key string, value string, ttl time.Duration) error {
	return Redis.Set(ctx, key, value, ttl).Err()
}

// CacheGet returns ("", nil) on a miss so callers can fall through to
// the database without branching on redis.Nil.
func CacheGet(ctx context.Context, key string) (string, error) {
	val, err := Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func SetJobStatus(ctx context.Context, jobID, status string) error {
	return CacheSet(ctx, jobStatusPrefix+":"+jobID, status, jobStatusTTL)
}

// GetJobStatus returns ("", nil) for unknown or expired job ids.
func GetJobStatus(ctx context.Context, jobID string) (string, error) {
	return CacheGet(ctx, jobStatusPrefix+":"+jobID)
}

// RedisCache adapts the package-level helpers to the handler cache
// interface.
type RedisCache struct{}

func (RedisCache) Get(ctx context.Context, key string) (string, error) {
	return CacheGet(ctx, key)
}

func (RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return CacheSet(ctx, key, value, ttl)
}

// RedisJobStore adapts the job-status helpers to the generate
// handler's job store interface.
type RedisJobStore struct{}

func (RedisJobStore) SetStatus(ctx context.Context, jobID, status string) error {
	return SetJobStatus(ctx, jobID, status)
}

func (RedisJobStore) GetStatus(ctx context.Context, jobID string) (string, error) {
	return GetJobStatus(ctx, jobID)
}

package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisMu     sync.Mutex
)

// ConnectRedis builds the shared Redis client used for the session cache and rate limiting.
// Redis is optional: it stays disabled unless REDIS_ENABLED=true, and it is never dialled
// in the test environment. Returns the client (or nil) and an error if the ping failed.
func ConnectRedis() (*redis.Client, error) {
	redisMu.Lock()
	defer redisMu.Unlock()

	if IsTest() || os.Getenv("REDIS_ENABLED") != "true" {
		return nil, nil
	}
	if redisClient != nil {
		return redisClient, nil
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if v, err := strconv.Atoi(dbStr); err == nil {
			dbNum = v
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbNum,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	redisClient = rdb
	log.Printf("Connected to Redis at %s", addr)
	return redisClient, nil
}

// GetRedisClient returns the initialized Redis client (nil when Redis is disabled or unreachable).
func GetRedisClient() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	return redisClient
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-events/internal/logger"
)

// InitializeViewCache sets up Redis for view caching and tests the connection
func InitializeViewCache(redisAddr string, customLogger *logger.Logger) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "", // no password
		DB:       0,  // use default DB
		PoolSize: 10, // connection pool size
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		if customLogger != nil {
			customLogger.Error("CACHE", fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
		}
		return nil, err
	}

	if customLogger != nil {
		customLogger.Info("CACHE", fmt.Sprintf("Connected to Redis at %s for view caching", redisAddr))
	}

	return redisClient, nil
}

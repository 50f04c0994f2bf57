package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys and lifetimes for the read paths that get hammered: a
// customer polling their request list and the dispatch board polling live
// sessions. Every lifecycle write invalidates the keys it touches.
const (
	LiveSessionsKey = "trackings:live"

	CustomerRequestsTTL = 5 * time.Minute
	LiveSessionsTTL     = 30 * time.Second
)

func CustomerRequestsKey(customerID string) string {
	return "requests_by_customer:" + customerID
}

func GetFromCache(ctx context.Context, client *redis.Client, key string) (string, error) {
	return client.Get(ctx, key).Result()
}

func SetToCache(ctx context.Context, client *redis.Client, key string, value string, ttl time.Duration) error {
	return client.Set(ctx, key, value, ttl).Err()
}

func DeleteFromCache(ctx context.Context, client *redis.Client, keys ...string) error {
	return client.Del(ctx, keys...).Err()
}

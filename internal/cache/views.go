package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const viewPrefix = "view:"

// Views caches rendered read-model JSON in Redis. Every lifecycle mutation
// invalidates the views it touched, so stale event and ticket pages never
// outlive their TTL plus one write.
type Views struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewViews(client *redis.Client, ttl time.Duration) *Views {
	return &Views{Client: client, TTL: ttl}
}

// Get returns the cached view body, or ("", false) on a miss. Redis errors
// degrade to a miss so the caller falls through to the database.
func (v *Views) Get(ctx context.Context, key string) (string, bool) {
	if v == nil || v.Client == nil {
		return "", false
	}
	val, err := v.Client.Get(ctx, viewPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a rendered view with the configured TTL.
func (v *Views) Set(ctx context.Context, key string, body string) {
	if v == nil || v.Client == nil {
		return
	}
	_ = v.Client.Set(ctx, viewPrefix+key, body, v.TTL).Err()
}

// Invalidate drops the given views. Best effort: a failed delete only means
// a page stays cached until its TTL expires.
func (v *Views) Invalidate(ctx context.Context, keys ...string) {
	if v == nil || v.Client == nil || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = viewPrefix + k
	}
	_ = v.Client.Del(ctx, full...).Err()
}

// Keys for the views the services maintain.
func EventViewKey(eventID string) string     { return "events:" + eventID }
func EventListKey() string                   { return "events:list" }
func UserTicketsKey(userID string) string    { return "tickets:user:" + userID }
func OrganizerKey(organizerID string) string { return "events:organizer:" + organizerID }

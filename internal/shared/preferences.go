package shared

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Preferences is a small key-value store for user-facing settings.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

const preferencesPrefix = "crm:prefs:"

// RedisPreferences stores preferences in a single redis hash per namespace.
type RedisPreferences struct {
	client    *redis.Client
	namespace string
}

// NewRedisPreferences constructs the store. An empty namespace maps to "default".
func NewRedisPreferences(client *redis.Client, namespace string) *RedisPreferences {
	if namespace == "" {
		namespace = "default"
	}
	return &RedisPreferences{client: client, namespace: namespace}
}

func (p *RedisPreferences) hashKey() string {
	return preferencesPrefix + p.namespace
}

// Get returns the stored value and whether it was present.
func (p *RedisPreferences) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkPreferenceKey(key); err != nil {
		return "", false, err
	}
	if p == nil || p.client == nil {
		return "", false, nil
	}
	val, err := p.client.HGet(ctx, p.hashKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value.
func (p *RedisPreferences) Set(ctx context.Context, key, value string) error {
	if err := checkPreferenceKey(key); err != nil {
		return err
	}
	if p == nil || p.client == nil {
		return errors.New("preferences: redis client not configured")
	}
	return p.client.HSet(ctx, p.hashKey(), key, value).Err()
}

// Clear removes a value. Clearing a missing key is not an error.
func (p *RedisPreferences) Clear(ctx context.Context, key string) error {
	if err := checkPreferenceKey(key); err != nil {
		return err
	}
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.HDel(ctx, p.hashKey(), key).Err()
}

func checkPreferenceKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return NewValidationError("key", "is required")
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/imposter-project/contract-shim/pkg/logger"
)

const (
	defaultRedisExpiry  = 30 * time.Minute
	defaultRedisTimeout = 2 * time.Second
	redisHashPrefix     = "shim:"
	redisScanBatch      = 100
)

// RedisStoreProvider keeps each store in a Redis hash named after the store. Every command is
// bounded by SHIM_STORE_REDIS_TIMEOUT and derived from the provider's base context, so cancelling
// that context abandons outstanding commands.
type RedisStoreProvider struct {
	client  *redis.Client
	base    context.Context
	timeout time.Duration
}

// NewRedisStoreProvider creates a provider whose commands are scoped to ctx.
func NewRedisStoreProvider(ctx context.Context) *RedisStoreProvider {
	p := &RedisStoreProvider{base: ctx}
	p.InitStores()
	return p
}

// InitStores connects using SHIM_STORE_REDIS_URL when set, otherwise REDIS_ADDR and
// REDIS_PASSWORD.
func (p *RedisStoreProvider) InitStores() {
	if p.base == nil {
		p.base = context.Background()
	}
	p.timeout = getRedisTimeout()
	p.client = redis.NewClient(redisOptionsFromEnv())
}

// Close releases the client's connections.
func (p *RedisStoreProvider) Close() error {
	return p.client.Close()
}

func (p *RedisStoreProvider) GetValue(storeName, key string) (interface{}, bool) {
	ctx, cancel := p.command()
	defer cancel()

	val, err := p.client.HGet(ctx, redisHash(storeName), applyKeyPrefix(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	} else if err != nil {
		logger.Errorf("failed to get %s from redis store %s: %v", key, storeName, err)
		return nil, false
	}
	return decodeRedisValue(key, val)
}

// StoreValue writes the field and refreshes the hash expiry in one transaction. Hash fields
// cannot expire individually, so a write keeps the whole store alive.
func (p *RedisStoreProvider) StoreValue(storeName, key string, value interface{}) {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		logger.Errorf("failed to marshal value for %s: %v", key, err)
		return
	}

	ctx, cancel := p.command()
	defer cancel()

	hash := redisHash(storeName)
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hash, applyKeyPrefix(key), valueBytes)
		pipe.Expire(ctx, hash, getExpiration())
		return nil
	})
	if err != nil {
		logger.Errorf("failed to store %s in redis store %s: %v", key, storeName, err)
	}
}

// GetAllValues scans the hash for fields beginning with keyPrefix. It returns nil if the scan
// could not complete.
func (p *RedisStoreProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	ctx, cancel := p.command()
	defer cancel()

	hash := redisHash(storeName)
	match := escapeGlob(applyKeyPrefix(keyPrefix)) + "*"
	items := make(map[string]interface{})

	var cursor uint64
	for {
		kvs, next, err := p.client.HScan(ctx, hash, cursor, match, redisScanBatch).Result()
		if err != nil {
			logger.Errorf("failed to scan redis store %s: %v", storeName, err)
			return nil
		}
		for i := 0; i+1 < len(kvs); i += 2 {
			key := removeKeyPrefix(kvs[i])
			if value, ok := decodeRedisValue(key, kvs[i+1]); ok {
				items[key] = value
			}
		}
		if next == 0 {
			return items
		}
		cursor = next
	}
}

func (p *RedisStoreProvider) DeleteValue(storeName, key string) {
	ctx, cancel := p.command()
	defer cancel()

	if err := p.client.HDel(ctx, redisHash(storeName), applyKeyPrefix(key)).Err(); err != nil {
		logger.Errorf("failed to delete %s from redis store %s: %v", key, storeName, err)
	}
}

func (p *RedisStoreProvider) DeleteStore(storeName string) {
	ctx, cancel := p.command()
	defer cancel()

	if err := p.client.Del(ctx, redisHash(storeName)).Err(); err != nil {
		logger.Errorf("failed to delete redis store %s: %v", storeName, err)
	}
}

func (p *RedisStoreProvider) command() (context.Context, context.CancelFunc) {
	return context.WithTimeout(p.base, p.timeout)
}

func decodeRedisValue(key, raw string) (interface{}, bool) {
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		logger.Errorf("failed to unmarshal value for %s: %v", key, err)
		return nil, false
	}
	return value, true
}

func redisHash(storeName string) string {
	return redisHashPrefix + storeName
}

func redisOptionsFromEnv() *redis.Options {
	if url := os.Getenv("SHIM_STORE_REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		if err == nil {
			return opts
		}
		logger.Errorf("invalid SHIM_STORE_REDIS_URL, falling back to REDIS_ADDR: %v", err)
	}
	return &redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}

// escapeGlob quotes the characters HSCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func getRedisTimeout() time.Duration {
	return durationFromEnv("SHIM_STORE_REDIS_TIMEOUT", defaultRedisTimeout)
}

func getExpiration() time.Duration {
	return durationFromEnv("SHIM_STORE_REDIS_EXPIRY", defaultRedisExpiry)
}

func durationFromEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Errorf("invalid %s %q, using %s", name, raw, fallback)
		return fallback
	}
	return d
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence"
	"go.uber.org/zap"
)

const (
	keyPrefixNonce       = "vsc:nonce:"
	keySchemaVersion     = "vsc:metadata:schema_version"
	currentSchemaVersion = "v1"
)

// incrementIfExists increments KEYS[1] only when it is present so a cleared
// nonce is never resurrected at 1. ARGV[1] is the TTL in milliseconds, 0 for none.
var incrementIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local v = redis.call('INCR', KEYS[1])
if tonumber(ARGV[1]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return v
`)

// RedisPersistence shares a nonce cache between client processes.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	ttl       time.Duration
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.INoncePersistence = (*RedisPersistence)(nil)

type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address  string
	Password string
	DB       int
	// KeyPrefix is prepended to every key, e.g. "myapp:" gives "myapp:vsc:nonce:<keyGroup>".
	KeyPrefix string
	// TTL expires cached nonces so a stale cache heals itself. Zero disables expiry.
	TTL time.Duration
}

// NewRedisPersistence connects to Redis and validates the schema version.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}
	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis nonce cache initialized",
		"address", cfg.Address,
		"db", cfg.DB,
		"key_prefix", cfg.KeyPrefix,
		"ttl", cfg.TTL,
	)
	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) nonceKey(keyGroup string) string {
	return r.prefixKey(keyPrefixNonce + keyGroup)
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

func (r *RedisPersistence) GetNonce(ctx context.Context, keyGroup string) (uint64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, false, persistence.ErrClosed
	}

	raw, err := r.client.Get(ctx, r.nonceKey(keyGroup)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load nonce: %w", err)
	}
	nonce, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cached nonce %q: %w", raw, err)
	}
	return nonce, true, nil
}

func (r *RedisPersistence) SetNonce(ctx context.Context, keyGroup string, nonce uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}
	if err := r.client.Set(ctx, r.nonceKey(keyGroup), strconv.FormatUint(nonce, 10), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save nonce: %w", err)
	}
	return nil
}

func (r *RedisPersistence) IncrementNonce(ctx context.Context, keyGroup string) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, persistence.ErrClosed
	}

	n, err := incrementIfExists.Run(ctx, r.client, []string{r.nonceKey(keyGroup)}, r.ttl.Milliseconds()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, persistence.ErrNonceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment nonce: %w", err)
	}
	return uint64(n), nil
}

func (r *RedisPersistence) DeleteNonce(ctx context.Context, keyGroup string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}
	if err := r.client.Del(ctx, r.nonceKey(keyGroup)).Err(); err != nil {
		return fmt.Errorf("failed to delete nonce: %w", err)
	}
	return nil
}

func (r *RedisPersistence) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	return nil
}

func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	r.logger.Sugar().Info("Redis nonce cache closed")
	return nil
}

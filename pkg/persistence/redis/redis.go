package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/pkg/persistence"
	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixCheckResult = "astarcheck:result:"
	keySchemaVersion     = "astarcheck:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis doesn't support prefix iteration natively, so IDs are indexed in a set
	keySetCheckResults = "astarcheck:results:index"
)

// RedisPersistence stores check history in Redis so several checkers can share it.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ICheckResultPersistence = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "staging:" gives
	// "staging:astarcheck:result:<id>"
	KeyPrefix string
}

// NewRedisPersistence connects to Redis and initializes the schema marker.
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
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
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

// SaveCheckResult persists a check result and indexes its ID
func (r *RedisPersistence) SaveCheckResult(result *types.CheckResult) error {
	if result == nil {
		return fmt.Errorf("cannot save nil CheckResult")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalCheckResult(result)
	if err != nil {
		return fmt.Errorf("failed to marshal CheckResult: %w", err)
	}

	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.prefixKey(keyPrefixCheckResult+result.ID), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetCheckResults), result.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save CheckResult: %w", err)
	}
	return nil
}

// LoadCheckResult retrieves a check result by ID
func (r *RedisPersistence) LoadCheckResult(id string) (*types.CheckResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	data, err := r.client.Get(context.Background(), r.prefixKey(keyPrefixCheckResult+id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load CheckResult: %w", err)
	}

	result, err := persistence.UnmarshalCheckResult(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal CheckResult: %w", err)
	}
	return result, nil
}

// ListCheckResults returns all indexed check results sorted by start time
func (r *RedisPersistence) ListCheckResults() ([]*types.CheckResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	indexKey := r.prefixKey(keySetCheckResults)

	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list CheckResult IDs: %w", err)
	}
	if len(ids) == 0 {
		return []*types.CheckResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefixKey(keyPrefixCheckResult + id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CheckResults: %w", err)
	}

	results := make([]*types.CheckResult, 0, len(values))
	for i, val := range values {
		if val == nil {
			// indexed but gone, drop it from the index
			r.client.SRem(ctx, indexKey, ids[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for CheckResult", "key", keys[i])
			continue
		}

		result, err := persistence.UnmarshalCheckResult([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal CheckResult, skipping", "key", keys[i], "error", err)
			continue
		}
		results = append(results, result)
	}

	persistence.SortCheckResults(results)
	return results, nil
}

// DeleteCheckResult removes a check result and its index entry
func (r *RedisPersistence) DeleteCheckResult(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.prefixKey(keyPrefixCheckResult+id))
	pipe.SRem(ctx, r.prefixKey(keySetCheckResults), id)

	_, err := pipe.Exec(ctx)
	return err
}

// Close shuts down the persistence layer
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

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck pings Redis and verifies the schema marker exists
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}

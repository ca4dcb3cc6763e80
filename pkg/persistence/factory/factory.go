package factory

import (
	"fmt"

	"github.com/AstarNetwork/astar-rpc-check/pkg/config"
	"github.com/AstarNetwork/astar-rpc-check/pkg/persistence"
	persistenceBadger "github.com/AstarNetwork/astar-rpc-check/pkg/persistence/badger"
	persistenceMemory "github.com/AstarNetwork/astar-rpc-check/pkg/persistence/memory"
	persistenceRedis "github.com/AstarNetwork/astar-rpc-check/pkg/persistence/redis"
	"go.uber.org/zap"
)

// NewPersistence opens the backend named by cfg.Type.
// Returns nil, nil for PersistenceType_None.
func NewPersistence(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.ICheckResultPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("persistence config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persistence config: %w", err)
	}

	switch cfg.Type {
	case config.PersistenceType_None:
		return nil, nil
	case config.PersistenceType_Memory:
		return persistenceMemory.NewMemoryPersistence(), nil
	case config.PersistenceType_Badger:
		bp, err := persistenceBadger.NewBadgerPersistence(cfg.DataPath, logger)
		if err != nil {
			return nil, err
		}
		return bp, nil
	case config.PersistenceType_Redis:
		rp, err := persistenceRedis.NewRedisPersistence(&persistenceRedis.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return rp, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}

package persistence

import "github.com/AstarNetwork/astar-rpc-check/pkg/types"

// ICheckResultPersistence records the history of identity check runs.
// All implementations must be thread-safe.
type ICheckResultPersistence interface {
	// SaveCheckResult persists a result keyed by its ID.
	// Overwrites any existing result with the same ID.
	SaveCheckResult(result *types.CheckResult) error

	// LoadCheckResult returns nil if the result doesn't exist, error only on storage failure.
	LoadCheckResult(id string) (*types.CheckResult, error)

	// ListCheckResults returns all results sorted by StartedAt (ascending).
	// Returns empty slice if none exist.
	ListCheckResults() ([]*types.CheckResult, error)

	// DeleteCheckResult is idempotent: returns nil if the result doesn't exist.
	DeleteCheckResult(id string) error

	// Close is idempotent. After Close all other operations return errors.
	Close() error

	// HealthCheck returns nil if the persistence layer is usable.
	HealthCheck() error
}

package memory

import (
	"fmt"
	"sync"

	"github.com/AstarNetwork/astar-rpc-check/pkg/persistence"
	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
)

// MemoryPersistence keeps check results in process memory.
// Results are lost when the process exits. Deep copies on the way in and out.
type MemoryPersistence struct {
	mu      sync.RWMutex
	results map[string]*types.CheckResult
	closed  bool
}

var _ persistence.ICheckResultPersistence = (*MemoryPersistence)(nil)

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		results: make(map[string]*types.CheckResult),
	}
}

// SaveCheckResult persists a check result.
func (m *MemoryPersistence) SaveCheckResult(result *types.CheckResult) error {
	if result == nil {
		return fmt.Errorf("cannot save nil CheckResult")
	}
	if result.ID == "" {
		return fmt.Errorf("cannot save CheckResult without an ID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.results[result.ID] = deepCopyCheckResult(result)
	return nil
}

// LoadCheckResult retrieves a check result by ID.
func (m *MemoryPersistence) LoadCheckResult(id string) (*types.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result, exists := m.results[id]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return deepCopyCheckResult(result), nil
}

// ListCheckResults returns all results sorted by start time.
func (m *MemoryPersistence) ListCheckResults() ([]*types.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	results := make([]*types.CheckResult, 0, len(m.results))
	for _, r := range m.results {
		results = append(results, deepCopyCheckResult(r))
	}
	persistence.SortCheckResults(results)
	return results, nil
}

// DeleteCheckResult removes a check result.
func (m *MemoryPersistence) DeleteCheckResult(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.results, id)
	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.results = nil
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}

func deepCopyCheckResult(r *types.CheckResult) *types.CheckResult {
	c := *r
	if r.Identity != nil {
		identity := *r.Identity
		c.Identity = &identity
	}
	if r.Mismatches != nil {
		c.Mismatches = append([]types.Mismatch{}, r.Mismatches...)
	}
	return &c
}

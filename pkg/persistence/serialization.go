package persistence

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
)

// MarshalCheckResult serializes a CheckResult to JSON bytes.
func MarshalCheckResult(result *types.CheckResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("cannot marshal nil CheckResult")
	}
	if result.ID == "" {
		return nil, fmt.Errorf("cannot marshal CheckResult without an ID")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CheckResult to JSON: %w", err)
	}
	return data, nil
}

// UnmarshalCheckResult deserializes a CheckResult from JSON bytes.
func UnmarshalCheckResult(data []byte) (*types.CheckResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var result types.CheckResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to CheckResult: %w", err)
	}
	return &result, nil
}

// SortCheckResults orders results by StartedAt, falling back to ID for ties
func SortCheckResults(results []*types.CheckResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].StartedAt.Before(results[j].StartedAt)
	})
}

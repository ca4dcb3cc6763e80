package persistence

import (
	"testing"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CheckResultSerialization(t *testing.T) {
	t.Run("RoundTripKeepsMismatches", func(t *testing.T) {
		started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		result := &types.CheckResult{
			ID:          "abc",
			Network:     "astar",
			Endpoint:    "wss://astar.api.onfinality.io/public-ws",
			Status:      types.CheckStatus_Failed,
			FailureKind: types.FailureKind_AssertionMismatch,
			Identity:    &types.Identity{Chain: "Astar", Name: "Other Collator"},
			Mismatches: []types.Mismatch{
				{Field: "name", Expected: "Astar Collator", Actual: "Other Collator"},
			},
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
		}

		data, err := MarshalCheckResult(result)
		require.NoError(t, err)

		loaded, err := UnmarshalCheckResult(data)
		require.NoError(t, err)
		assert.Equal(t, result.Mismatches, loaded.Mismatches)
		assert.Equal(t, result.FailureKind, loaded.FailureKind)
		assert.True(t, result.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Nil", func(t *testing.T) {
		_, err := MarshalCheckResult(nil)
		require.Error(t, err)
	})

	t.Run("MissingID", func(t *testing.T) {
		_, err := MarshalCheckResult(&types.CheckResult{})
		require.Error(t, err)
	})

	t.Run("EmptyData", func(t *testing.T) {
		_, err := UnmarshalCheckResult(nil)
		require.Error(t, err)
	})

	t.Run("GarbageData", func(t *testing.T) {
		_, err := UnmarshalCheckResult([]byte("{not json"))
		require.Error(t, err)
	})
}

func Test_SortCheckResults(t *testing.T) {
	base := time.Unix(1700000000, 0)
	results := []*types.CheckResult{
		{ID: "c", StartedAt: base.Add(2 * time.Second)},
		{ID: "b", StartedAt: base},
		{ID: "a", StartedAt: base},
	}
	SortCheckResults(results)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, "c", results[2].ID)
}

package identityCheck

import (
	"context"
	"testing"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/internal/tests"
	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RunRepeated(t *testing.T) {
	t.Run("SequentialRunsEachWithOwnConnection", func(t *testing.T) {
		node := tests.NewAstarNode(t)
		check := newTestCheck(t, node.URL(), 5*time.Second)

		start := time.Now()
		results, err := RunRepeated(context.Background(), check, 3, 50*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

		for _, r := range results {
			assert.Equal(t, types.CheckStatus_Passed, r.Status)
		}
		assert.Equal(t, 3, node.Calls("chain_getBlockHash"))
		assert.Equal(t, 3, node.Calls("system_name"))
		assert.True(t, Summarize(results).AllPassed())
	})

	t.Run("FailuresAreRecorded", func(t *testing.T) {
		stub := &stubConnection{chain: "Astar", name: "Other Collator"}
		check := newStubCheck(t, stub)

		results, err := RunRepeated(context.Background(), check, 2, 0)
		require.NoError(t, err)
		summary := Summarize(results)
		assert.Equal(t, 2, summary.Failed)
		assert.False(t, summary.AllPassed())
		assert.Equal(t, 2, stub.closes)
	})

	t.Run("CancelledContextStops", func(t *testing.T) {
		stub := &stubConnection{chain: "Astar", name: "Astar Collator"}
		check := newStubCheck(t, stub)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		results, err := RunRepeated(ctx, check, 10, time.Hour)
		require.Error(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("InvalidCount", func(t *testing.T) {
		_, err := RunRepeated(context.Background(), nil, 0, time.Second)
		require.Error(t, err)
	})
}

func Test_Summarize(t *testing.T) {
	s := Summarize([]*types.CheckResult{
		{Status: types.CheckStatus_Passed},
		{Status: types.CheckStatus_Failed},
		{Status: types.CheckStatus_Errored},
		{Status: types.CheckStatus_Passed},
	})
	assert.Equal(t, RunSummary{Passed: 2, Failed: 1, Errored: 1}, s)
	assert.Equal(t, 4, s.Total())
	assert.False(t, s.AllPassed())
	assert.False(t, RunSummary{}.AllPassed())
}

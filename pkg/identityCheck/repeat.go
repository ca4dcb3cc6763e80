package identityCheck

import (
	"context"
	"fmt"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"golang.org/x/time/rate"
)

// RunSummary counts results by status
type RunSummary struct {
	Passed  int
	Failed  int
	Errored int
}

func (s RunSummary) Total() int {
	return s.Passed + s.Failed + s.Errored
}

func (s RunSummary) AllPassed() bool {
	return s.Total() > 0 && s.Passed == s.Total()
}

func Summarize(results []*types.CheckResult) RunSummary {
	var s RunSummary
	for _, r := range results {
		switch r.Status {
		case types.CheckStatus_Passed:
			s.Passed++
		case types.CheckStatus_Failed:
			s.Failed++
		default:
			s.Errored++
		}
	}
	return s
}

// RunRepeated runs the check count times, starting runs no closer together
// than interval. Runs are strictly sequential; each one gets its own
// connection. Failed runs are recorded in the results, only ctx ends the loop early.
func RunRepeated(ctx context.Context, check *ChainIdentityCheck, count int, interval time.Duration) ([]*types.CheckResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]*types.CheckResult, 0, count)
	for i := 0; i < count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("stopped after %d of %d runs: %w", i, count, err)
		}
		result, _ := check.Run(ctx)
		results = append(results, result)
	}
	return results, nil
}

package identityCheck

import (
	"fmt"
	"strings"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"github.com/pkg/errors"
)

var (
	ErrNotSetUp     = errors.New("check has no live connection, run Setup first")
	ErrAlreadySetUp = errors.New("check already has a live connection, run Teardown first")
)

// SetupTimeoutError means the connection was not ready within the setup bound.
// Verification never ran.
type SetupTimeoutError struct {
	Endpoint string
	Timeout  time.Duration
	Err      error
}

func (e *SetupTimeoutError) Error() string {
	return fmt.Sprintf("connection to %s not ready within %s: %v", e.Endpoint, e.Timeout, e.Err)
}

func (e *SetupTimeoutError) Unwrap() error {
	return e.Err
}

// SetupError is any setup failure that is not a timeout, e.g. a rejected
// readiness probe or a failing node starter
type SetupError struct {
	Endpoint string
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup against %s failed: %v", e.Endpoint, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// TransportError is a query that failed on the wire or was rejected by the node
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MismatchError lists every identity field that differed from its expected value
type MismatchError struct {
	Mismatches []types.Mismatch
}

func (e *MismatchError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = fmt.Sprintf("%s: expected %q, got %q", m.Field, m.Expected, m.Actual)
	}
	return "identity mismatch: " + strings.Join(parts, "; ")
}

type TeardownError struct {
	Err error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown failed: %v", e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}

// classifyError maps a run error onto the status and failure kind recorded in a CheckResult
func classifyError(err error) (types.CheckStatus, types.FailureKind) {
	if err == nil {
		return types.CheckStatus_Passed, types.FailureKind_None
	}

	var (
		timeoutErr   *SetupTimeoutError
		setupErr     *SetupError
		transportErr *TransportError
		mismatchErr  *MismatchError
		teardownErr  *TeardownError
	)
	switch {
	case errors.As(err, &mismatchErr):
		return types.CheckStatus_Failed, types.FailureKind_AssertionMismatch
	case errors.As(err, &timeoutErr):
		return types.CheckStatus_Errored, types.FailureKind_SetupTimeout
	case errors.As(err, &setupErr):
		return types.CheckStatus_Errored, types.FailureKind_SetupFailure
	case errors.As(err, &transportErr):
		return types.CheckStatus_Errored, types.FailureKind_TransportFailure
	case errors.As(err, &teardownErr):
		return types.CheckStatus_Errored, types.FailureKind_TeardownFailure
	default:
		return types.CheckStatus_Errored, types.FailureKind_None
	}
}

package types

import (
	"time"
)

// Identity is what a node reports about itself over the system RPC namespace
type Identity struct {
	Chain   string `json:"chain"`   // system_chain
	Name    string `json:"name"`    // system_name, the node implementation
	Version string `json:"version"` // system_version, informational only
}

// Mismatch describes one identity field that did not equal its expected literal
type Mismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type CheckStatus string

func (s CheckStatus) String() string {
	return string(s)
}

const (
	CheckStatus_Passed  CheckStatus = "passed"
	CheckStatus_Failed  CheckStatus = "failed"
	CheckStatus_Errored CheckStatus = "errored"
)

type FailureKind string

func (k FailureKind) String() string {
	return string(k)
}

const (
	FailureKind_None              FailureKind = ""
	FailureKind_SetupTimeout      FailureKind = "setup_timeout"
	FailureKind_SetupFailure      FailureKind = "setup_failure"
	FailureKind_TransportFailure  FailureKind = "transport_failure"
	FailureKind_AssertionMismatch FailureKind = "assertion_mismatch"
	FailureKind_TeardownFailure   FailureKind = "teardown_failure"
)

// CheckResult is the record of a single identity check run
type CheckResult struct {
	ID          string      `json:"id"`
	Network     string      `json:"network"`
	Endpoint    string      `json:"endpoint"`
	Status      CheckStatus `json:"status"`
	FailureKind FailureKind `json:"failureKind,omitempty"`
	Identity    *Identity   `json:"identity,omitempty"`
	Mismatches  []Mismatch  `json:"mismatches,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
}

func (r *CheckResult) Passed() bool {
	return r != nil && r.Status == CheckStatus_Passed
}

// Duration returns how long the run took, setup through teardown
func (r *CheckResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RuntimeVersion is the subset of state_getRuntimeVersion the client keeps
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	SpecVersion        uint32 `json:"specVersion"`
	ImplVersion        uint32 `json:"implVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

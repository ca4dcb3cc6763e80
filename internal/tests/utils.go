package tests

import (
	"os"
	"strings"
	"testing"
)

// EnvLiveNetwork enables tests that talk to public Astar RPC endpoints
const EnvLiveNetwork = "ASTAR_RPC_LIVE"

func LiveNetworkEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvLiveNetwork)))
	return v == "true" || v == "1"
}

// RequireLiveNetwork skips the calling test unless live network tests are enabled
func RequireLiveNetwork(t *testing.T) {
	t.Helper()
	if !LiveNetworkEnabled() {
		t.Skipf("set %s=true to run tests against public endpoints", EnvLiveNetwork)
	}
}

package substrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/internal/tests"
	"github.com/AstarNetwork/astar-rpc-check/pkg/typeRegistry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestConnection(t *testing.T, endpoint string) *Connection {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewConnection(&ConnectionConfig{
		Endpoint: endpoint,
		Types:    typeRegistry.PlasmDefinitions(),
		Retry: RetryConfig{
			InitialBackoff:  20 * time.Millisecond,
			MaxBackoff:      50 * time.Millisecond,
			BackoffMultiple: 2.0,
		},
	}, logger)
}

func Test_Connection(t *testing.T) {
	t.Run("ConnectQueryClose", func(t *testing.T) {
		node := tests.NewAstarNode(t)
		conn := newTestConnection(t, node.URL())
		assert.Equal(t, ConnectionState_Disconnected, conn.State())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, conn.Connect(ctx))
		assert.Equal(t, ConnectionState_Connected, conn.State())

		// readiness resolved before any query is issued
		assert.Equal(t, tests.AstarGenesis, conn.GenesisHash())
		require.NotNil(t, conn.RuntimeVersion())
		assert.Equal(t, "astar", conn.RuntimeVersion().SpecName)
		assert.Equal(t, 1, node.Calls("chain_getBlockHash"))
		assert.Equal(t, 1, node.Calls("state_getRuntimeVersion"))

		chain, err := conn.SystemChain(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Astar", chain)

		name, err := conn.SystemName(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Astar Collator", name)

		version, err := conn.SystemVersion(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, version)

		require.NoError(t, conn.Close())
		assert.Equal(t, ConnectionState_Closed, conn.State())
	})

	t.Run("RegistryPassedThrough", func(t *testing.T) {
		reg := typeRegistry.PlasmDefinitions()
		conn := NewConnection(&ConnectionConfig{Endpoint: "ws://127.0.0.1:1", Types: reg}, nil)
		assert.Same(t, reg, conn.Registry())
	})

	t.Run("QueryBeforeConnect", func(t *testing.T) {
		conn := newTestConnection(t, "ws://127.0.0.1:1")
		_, err := conn.SystemChain(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConnectionNotOpen))
	})

	t.Run("CloseIsAtMostOnce", func(t *testing.T) {
		node := tests.NewAstarNode(t)
		conn := newTestConnection(t, node.URL())

		err := conn.Close()
		assert.True(t, errors.Is(err, ErrConnectionNotOpen), "close before connect")

		require.NoError(t, conn.Connect(context.Background()))
		require.NoError(t, conn.Close())

		err = conn.Close()
		assert.True(t, errors.Is(err, ErrConnectionNotOpen), "second close")

		_, err = conn.SystemName(context.Background())
		assert.True(t, errors.Is(err, ErrConnectionNotOpen), "query after close")
	})

	t.Run("ConnectTwice", func(t *testing.T) {
		node := tests.NewAstarNode(t)
		conn := newTestConnection(t, node.URL())
		require.NoError(t, conn.Connect(context.Background()))
		defer func() { _ = conn.Close() }()

		err := conn.Connect(context.Background())
		assert.True(t, errors.Is(err, ErrAlreadyConnected))
	})

	t.Run("InvalidEndpoint", func(t *testing.T) {
		for _, endpoint := range []string{"http://localhost:9944", "ws://", "::not a url"} {
			conn := newTestConnection(t, endpoint)
			err := conn.Connect(context.Background())
			require.Error(t, err, endpoint)
			assert.Equal(t, ConnectionState_Disconnected, conn.State())
		}
	})

	t.Run("UnreachableRetriesUntilDeadline", func(t *testing.T) {
		conn := newTestConnection(t, tests.UnusedEndpoint(t))

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := conn.Connect(ctx)
		require.Error(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
		assert.Contains(t, err.Error(), "attempts")
		assert.Equal(t, ConnectionState_Disconnected, conn.State())
	})

	t.Run("StalledHandshake", func(t *testing.T) {
		server := tests.NewStallingServer(t)
		conn := newTestConnection(t, server.URL())

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err := conn.Connect(ctx)
		require.Error(t, err)
		assert.Equal(t, context.DeadlineExceeded, ctx.Err())
	})

	t.Run("QueryErrorIsReturned", func(t *testing.T) {
		node := tests.NewFakeSubstrateNode(t, &tests.FakeSubstrateNodeConfig{
			Chain:   "Astar",
			NameErr: errors.New("rpc unavailable"),
		})
		conn := newTestConnection(t, node.URL())
		require.NoError(t, conn.Connect(context.Background()))
		defer func() { _ = conn.Close() }()

		_, err := conn.SystemName(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), MethodSystemName)
		assert.Contains(t, err.Error(), "rpc unavailable")
	})
}

func Test_ConnectionState_String(t *testing.T) {
	assert.Equal(t, "disconnected", ConnectionState_Disconnected.String())
	assert.Equal(t, "connected", ConnectionState_Connected.String())
	assert.Equal(t, "closed", ConnectionState_Closed.String())
	assert.Equal(t, "unknown", ConnectionState(42).String())
}

func Test_RetryConfig(t *testing.T) {
	t.Run("Zero config takes the defaults", func(t *testing.T) {
		assert.Equal(t, DefaultRetryConfig, RetryConfig{}.withDefaults())
	})

	t.Run("Partial config keeps what was set", func(t *testing.T) {
		r := RetryConfig{InitialBackoff: 10 * time.Millisecond}.withDefaults()
		assert.Equal(t, 10*time.Millisecond, r.InitialBackoff)
		assert.Equal(t, DefaultRetryConfig.MaxBackoff, r.MaxBackoff)
		assert.Equal(t, DefaultRetryConfig.BackoffMultiple, r.BackoffMultiple)
	})

	t.Run("Max below initial is raised", func(t *testing.T) {
		r := RetryConfig{
			InitialBackoff:  time.Second,
			MaxBackoff:      100 * time.Millisecond,
			BackoffMultiple: 0.5,
		}.withDefaults()
		assert.Equal(t, time.Second, r.MaxBackoff)
		assert.Equal(t, DefaultRetryConfig.BackoffMultiple, r.BackoffMultiple)
	})

	t.Run("Partial config still backs off between dials", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		conn := NewConnection(&ConnectionConfig{
			Endpoint: tests.UnusedEndpoint(t),
			Types:    typeRegistry.PlasmDefinitions(),
			Retry:    RetryConfig{InitialBackoff: 10 * time.Millisecond},
		}, zap.New(core))

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		require.Error(t, conn.Connect(ctx))

		// 10ms doubling fits about five attempts into 300ms
		attempts := logs.FilterMessage("Dial attempt failed").Len()
		assert.GreaterOrEqual(t, attempts, 2)
		assert.LessOrEqual(t, attempts, 10)
	})
}

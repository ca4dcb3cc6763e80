package nodeStarter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func Test_PlaceholderNodeStarter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	starter := NewPlaceholderNodeStarter(zap.New(core))

	require.NoError(t, starter.Start(context.Background()))

	entries := logs.FilterMessage("Starting Astar node...").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Empty(t, entries[0].Context)
}

func Test_NodeStarterFunc(t *testing.T) {
	called := 0
	var starter INodeStarter = NodeStarterFunc(func(ctx context.Context) error {
		called++
		return errors.New("no binary")
	})

	err := starter.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, called)
}

package nodeStarter

import (
	"context"

	"go.uber.org/zap"
)

// INodeStarter brings up the node a check is about to connect to.
// Implementations must return once the node is started or ctx is done.
type INodeStarter interface {
	Start(ctx context.Context) error
}

// NodeStarterFunc adapts a plain function to INodeStarter
type NodeStarterFunc func(ctx context.Context) error

func (f NodeStarterFunc) Start(ctx context.Context) error {
	return f(ctx)
}

// PlaceholderNodeStarter only announces the startup. Checks run against an
// already running remote node.
type PlaceholderNodeStarter struct {
	logger *zap.Logger
}

func NewPlaceholderNodeStarter(logger *zap.Logger) *PlaceholderNodeStarter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaceholderNodeStarter{logger: logger}
}

// TODO: start a local collator with exec.CommandContext once a node binary path is configurable
func (p *PlaceholderNodeStarter) Start(ctx context.Context) error {
	p.logger.Info("Starting Astar node...")
	return nil
}

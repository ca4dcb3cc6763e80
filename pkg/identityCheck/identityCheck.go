package identityCheck

import (
	"context"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/pkg/clients/substrate"
	"github.com/AstarNetwork/astar-rpc-check/pkg/config"
	"github.com/AstarNetwork/astar-rpc-check/pkg/nodeStarter"
	"github.com/AstarNetwork/astar-rpc-check/pkg/persistence"
	"github.com/AstarNetwork/astar-rpc-check/pkg/typeRegistry"
	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// INodeConnection is the part of a node RPC session the check relies on.
// Connect must not return until the node is ready to answer queries.
type INodeConnection interface {
	Connect(ctx context.Context) error
	SystemChain(ctx context.Context) (string, error)
	SystemName(ctx context.Context) (string, error)
	SystemVersion(ctx context.Context) (string, error)
	Close() error
}

// ConnectionFactory creates a fresh, unconnected session for every setup
type ConnectionFactory func(endpoint string, registry *typeRegistry.TypeRegistry) INodeConnection

type Config struct {
	Check *config.CheckConfig

	// Registry is handed to every connection verbatim. Defaults to the plasm definitions.
	Registry *typeRegistry.TypeRegistry

	// NodeStarter runs inside the setup bound before connecting. Defaults to the placeholder.
	NodeStarter nodeStarter.INodeStarter

	// NewConnection defaults to a substrate websocket connection
	NewConnection ConnectionFactory

	// Persistence is optional; when set every Run result is saved
	Persistence persistence.ICheckResultPersistence

	Logger *zap.Logger
}

// ChainIdentityCheck verifies that a node identifies itself with the expected
// chain and node names. A check owns at most one connection at a time:
// Setup opens it, Verify reads from it and Teardown closes it.
type ChainIdentityCheck struct {
	config *Config
	logger *zap.Logger
	conn   INodeConnection
}

func NewChainIdentityCheck(cfg *Config) (*ChainIdentityCheck, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Check == nil {
		return nil, errors.New("check config cannot be nil")
	}
	if err := cfg.Check.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid check config")
	}

	c := *cfg
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Registry == nil {
		c.Registry = typeRegistry.PlasmDefinitions()
	}
	if c.NodeStarter == nil {
		c.NodeStarter = nodeStarter.NewPlaceholderNodeStarter(c.Logger)
	}
	if c.NewConnection == nil {
		logger := c.Logger
		c.NewConnection = func(endpoint string, registry *typeRegistry.TypeRegistry) INodeConnection {
			return substrate.NewConnection(&substrate.ConnectionConfig{
				Endpoint: endpoint,
				Types:    registry,
				Retry:    substrate.DefaultRetryConfig,
			}, logger)
		}
	}

	return &ChainIdentityCheck{
		config: &c,
		logger: c.Logger,
	}, nil
}

// Setup starts the node (placeholder) and connects, all within Check.SetupTimeout.
// Missing the bound returns *SetupTimeoutError, any other failure *SetupError.
func (c *ChainIdentityCheck) Setup(ctx context.Context) error {
	if c.conn != nil {
		return ErrAlreadySetUp
	}

	timeout := c.config.Check.SetupTimeout
	endpoint := c.config.Check.Endpoint

	setupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.config.NodeStarter.Start(setupCtx); err != nil {
		return c.setupFailure(setupCtx, errors.Wrapf(err, "node startup failed"))
	}

	c.logger.Sugar().Debugw("Connecting to node", "endpoint", endpoint, "timeout", timeout)

	conn := c.config.NewConnection(endpoint, c.config.Registry)
	if err := conn.Connect(setupCtx); err != nil {
		return c.setupFailure(setupCtx, err)
	}

	c.conn = conn
	return nil
}

func (c *ChainIdentityCheck) setupFailure(setupCtx context.Context, err error) error {
	if errors.Is(setupCtx.Err(), context.DeadlineExceeded) {
		return &SetupTimeoutError{
			Endpoint: c.config.Check.Endpoint,
			Timeout:  c.config.Check.SetupTimeout,
			Err:      err,
		}
	}
	return &SetupError{Endpoint: c.config.Check.Endpoint, Err: err}
}

// Verify queries the chain and node names and compares them with the expected
// literals. Both comparisons are always made so the error lists every mismatch.
func (c *ChainIdentityCheck) Verify(ctx context.Context) (*types.Identity, error) {
	if c.conn == nil {
		return nil, ErrNotSetUp
	}

	chain, err := c.conn.SystemChain(ctx)
	if err != nil {
		return nil, &TransportError{Method: substrate.MethodSystemChain, Err: err}
	}

	name, err := c.conn.SystemName(ctx)
	if err != nil {
		return nil, &TransportError{Method: substrate.MethodSystemName, Err: err}
	}

	identity := &types.Identity{Chain: chain, Name: name}

	// the version is informational, a node that hides it still passes
	if version, err := c.conn.SystemVersion(ctx); err != nil {
		c.logger.Sugar().Warnw("Failed to fetch node version", "error", err)
	} else {
		identity.Version = version
	}

	if mismatches := c.compare(identity); len(mismatches) > 0 {
		return identity, &MismatchError{Mismatches: mismatches}
	}
	return identity, nil
}

func (c *ChainIdentityCheck) compare(identity *types.Identity) []types.Mismatch {
	var mismatches []types.Mismatch
	if identity.Chain != c.config.Check.ExpectedChain {
		mismatches = append(mismatches, types.Mismatch{
			Field:    "chain",
			Expected: c.config.Check.ExpectedChain,
			Actual:   identity.Chain,
		})
	}
	if identity.Name != c.config.Check.ExpectedName {
		mismatches = append(mismatches, types.Mismatch{
			Field:    "name",
			Expected: c.config.Check.ExpectedName,
			Actual:   identity.Name,
		})
	}
	return mismatches
}

// Teardown closes the connection opened by Setup. Without a live connection it does nothing.
func (c *ChainIdentityCheck) Teardown() error {
	if c.conn == nil {
		return nil
	}

	c.logger.Sugar().Infow("Disconnecting RPC", "endpoint", c.config.Check.Endpoint)

	conn := c.conn
	c.conn = nil
	return conn.Close()
}

// Run performs one full check: Setup, Verify only if setup succeeded, and
// Teardown whatever the outcome. The returned result is never nil.
func (c *ChainIdentityCheck) Run(ctx context.Context) (*types.CheckResult, error) {
	result := &types.CheckResult{
		ID:        uuid.New().String(),
		Network:   c.config.Check.Network.String(),
		Endpoint:  c.config.Check.Endpoint,
		StartedAt: time.Now().UTC(),
	}

	err := c.runPhases(ctx, result)

	result.FinishedAt = time.Now().UTC()
	result.Status, result.FailureKind = classifyError(err)
	if err != nil {
		result.Error = err.Error()
	}
	var mismatchErr *MismatchError
	if errors.As(err, &mismatchErr) {
		result.Mismatches = mismatchErr.Mismatches
	}

	c.logResult(result)

	if c.config.Persistence != nil {
		if saveErr := c.config.Persistence.SaveCheckResult(result); saveErr != nil {
			c.logger.Sugar().Warnw("Failed to persist check result", "id", result.ID, "error", saveErr)
		}
	}

	return result, err
}

func (c *ChainIdentityCheck) runPhases(ctx context.Context, result *types.CheckResult) (err error) {
	if err := c.Setup(ctx); err != nil {
		return err
	}

	defer func() {
		if tdErr := c.Teardown(); tdErr != nil {
			if err == nil {
				err = &TeardownError{Err: tdErr}
				return
			}
			c.logger.Sugar().Warnw("Teardown failed after an earlier error", "error", tdErr)
		}
	}()

	identity, err := c.Verify(ctx)
	result.Identity = identity
	return err
}

func (c *ChainIdentityCheck) logResult(result *types.CheckResult) {
	fields := []interface{}{
		"id", result.ID,
		"endpoint", result.Endpoint,
		"status", result.Status,
		"duration", result.Duration(),
	}
	if result.Identity != nil {
		fields = append(fields, "chain", result.Identity.Chain, "name", result.Identity.Name)
	}

	switch result.Status {
	case types.CheckStatus_Passed:
		c.logger.Sugar().Infow("Chain identity check passed", fields...)
	case types.CheckStatus_Failed:
		fields = append(fields, "mismatches", result.Mismatches)
		c.logger.Sugar().Errorw("Chain identity check failed", fields...)
	default:
		fields = append(fields, "kind", result.FailureKind, "error", result.Error)
		c.logger.Sugar().Errorw("Chain identity check errored", fields...)
	}
}

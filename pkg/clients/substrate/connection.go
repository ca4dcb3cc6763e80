package substrate

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/pkg/typeRegistry"
	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	MethodSystemChain       = "system_chain"
	MethodSystemName        = "system_name"
	MethodSystemVersion     = "system_version"
	MethodChainGetBlockHash = "chain_getBlockHash"
	MethodStateRuntime      = "state_getRuntimeVersion"
)

var (
	ErrConnectionNotOpen = errors.New("connection is not open")
	ErrAlreadyConnected  = errors.New("connection was already established")
)

type ConnectionState int

const (
	ConnectionState_Disconnected ConnectionState = iota
	ConnectionState_Connected
	ConnectionState_Closed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionState_Disconnected:
		return "disconnected"
	case ConnectionState_Connected:
		return "connected"
	case ConnectionState_Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// RetryConfig configures how dial attempts are retried while the caller's
// context is still live
type RetryConfig struct {
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	InitialBackoff:  250 * time.Millisecond,
	MaxBackoff:      2500 * time.Millisecond,
	BackoffMultiple: 2.0,
}

// withDefaults fills every unset or unusable field from DefaultRetryConfig so
// the backoff never shrinks below InitialBackoff
func (r RetryConfig) withDefaults() RetryConfig {
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = DefaultRetryConfig.InitialBackoff
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = DefaultRetryConfig.MaxBackoff
	}
	if r.MaxBackoff < r.InitialBackoff {
		r.MaxBackoff = r.InitialBackoff
	}
	if r.BackoffMultiple < 1 {
		r.BackoffMultiple = DefaultRetryConfig.BackoffMultiple
	}
	return r
}

type ConnectionConfig struct {
	// Endpoint is the ws:// or wss:// address of the node
	Endpoint string

	// Types is handed to the connection verbatim and never transformed
	Types *typeRegistry.TypeRegistry

	Retry RetryConfig

	// HandshakeTimeout bounds a single websocket handshake. Zero leaves it to the context.
	HandshakeTimeout time.Duration

	// MessageSizeLimit caps inbound websocket messages. Zero keeps the client default.
	MessageSizeLimit int64
}

// Connection is an RPC session with a single Substrate node.
// It moves Disconnected -> Connected -> Closed and never back.
type Connection struct {
	config *ConnectionConfig
	logger *zap.Logger

	mu             sync.Mutex
	state          ConnectionState
	client         *rpc.Client
	genesisHash    string
	runtimeVersion *types.RuntimeVersion
}

// NewConnection creates a connection in the Disconnected state; nothing is dialed yet
func NewConnection(cfg *ConnectionConfig, logger *zap.Logger) *Connection {
	configCopy := *cfg
	configCopy.Retry = configCopy.Retry.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		config: &configCopy,
		logger: logger,
		state:  ConnectionState_Disconnected,
	}
}

func (c *Connection) Endpoint() string {
	return c.config.Endpoint
}

func (c *Connection) Registry() *typeRegistry.TypeRegistry {
	return c.config.Types
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GenesisHash is available once Connect has returned successfully
func (c *Connection) GenesisHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.genesisHash
}

func (c *Connection) RuntimeVersion() *types.RuntimeVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runtimeVersion
}

// Connect dials the endpoint and blocks until the node is ready to answer
// queries. Dial failures are retried until ctx is done.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != ConnectionState_Disconnected {
		state := c.state
		c.mu.Unlock()
		return errors.Wrapf(ErrAlreadyConnected, "cannot connect from state %s", state)
	}
	c.mu.Unlock()

	if err := validateEndpoint(c.config.Endpoint); err != nil {
		return err
	}

	client, err := c.dialWithRetry(ctx)
	if err != nil {
		return err
	}

	var genesisHash string
	if err := client.CallContext(ctx, &genesisHash, MethodChainGetBlockHash, 0); err != nil {
		client.Close()
		return errors.Wrapf(err, "failed to fetch genesis hash from %s", c.config.Endpoint)
	}

	var runtimeVersion types.RuntimeVersion
	if err := client.CallContext(ctx, &runtimeVersion, MethodStateRuntime); err != nil {
		client.Close()
		return errors.Wrapf(err, "failed to fetch runtime version from %s", c.config.Endpoint)
	}

	c.mu.Lock()
	c.client = client
	c.genesisHash = genesisHash
	c.runtimeVersion = &runtimeVersion
	c.state = ConnectionState_Connected
	c.mu.Unlock()

	c.logger.Sugar().Infow("Connection ready",
		"endpoint", c.config.Endpoint,
		"genesisHash", genesisHash,
		"specName", runtimeVersion.SpecName,
		"specVersion", runtimeVersion.SpecVersion,
		"registeredTypes", c.config.Types.Len(),
	)
	return nil
}

func (c *Connection) dialWithRetry(ctx context.Context) (*rpc.Client, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	options := []rpc.ClientOption{rpc.WithWebsocketDialer(dialer)}
	if c.config.MessageSizeLimit > 0 {
		options = append(options, rpc.WithWebsocketMessageSizeLimit(c.config.MessageSizeLimit))
	}

	backoff := c.config.Retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		client, err := rpc.DialOptions(ctx, c.config.Endpoint, options...)
		if err == nil {
			return client, nil
		}
		c.logger.Sugar().Debugw("Dial attempt failed",
			"endpoint", c.config.Endpoint,
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(err, "failed to connect to %s after %d attempts", c.config.Endpoint, attempt)
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.config.Retry.BackoffMultiple)
		if backoff > c.config.Retry.MaxBackoff {
			backoff = c.config.Retry.MaxBackoff
		}
	}
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", endpoint)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Errorf("endpoint %q must use ws or wss, got %q", endpoint, u.Scheme)
	}
	if u.Host == "" {
		return errors.Errorf("endpoint %q has no host", endpoint)
	}
	return nil
}

func (c *Connection) liveClient() (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ConnectionState_Connected {
		return nil, errors.Wrapf(ErrConnectionNotOpen, "connection is %s", c.state)
	}
	return c.client, nil
}

func (c *Connection) callString(ctx context.Context, method string) (string, error) {
	client, err := c.liveClient()
	if err != nil {
		return "", err
	}
	var result string
	if err := client.CallContext(ctx, &result, method); err != nil {
		return "", errors.Wrapf(err, "%s failed", method)
	}
	return result, nil
}

// SystemChain returns the chain name the node reports
func (c *Connection) SystemChain(ctx context.Context) (string, error) {
	return c.callString(ctx, MethodSystemChain)
}

// SystemName returns the node implementation name
func (c *Connection) SystemName(ctx context.Context) (string, error) {
	return c.callString(ctx, MethodSystemName)
}

func (c *Connection) SystemVersion(ctx context.Context) (string, error) {
	return c.callString(ctx, MethodSystemVersion)
}

// Close ends the session. Only the first call on a connected session closes
// the client; any other call returns ErrConnectionNotOpen.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state != ConnectionState_Connected {
		state := c.state
		c.mu.Unlock()
		return errors.Wrapf(ErrConnectionNotOpen, "cannot close from state %s", state)
	}
	client := c.client
	c.client = nil
	c.state = ConnectionState_Closed
	c.mu.Unlock()

	client.Close()
	c.logger.Sugar().Debugw("Connection closed", "endpoint", c.config.Endpoint)
	return nil
}

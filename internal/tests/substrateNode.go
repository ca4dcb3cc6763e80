package tests

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AstarNetwork/astar-rpc-check/pkg/types"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	AstarChainName = "Astar"
	AstarNodeName  = "Astar Collator"
	AstarGenesis   = "0x9eb76c5184c4ab8679d2d5d819fdf90b9c001403e9e17da2e14b6d8aec4029c6"
)

// FakeSubstrateNodeConfig controls what the fake node reports
type FakeSubstrateNodeConfig struct {
	Chain   string
	Name    string
	Version string

	// ChainErr and NameErr make the respective system call fail
	ChainErr error
	NameErr  error

	// ReadyDelay holds chain_getBlockHash for this long, delaying readiness
	ReadyDelay time.Duration
}

// FakeSubstrateNode is an in-process JSON-RPC websocket server answering the
// handful of Substrate methods the identity check needs
type FakeSubstrateNode struct {
	config *FakeSubstrateNodeConfig
	server *rpc.Server
	http   *httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

// NewAstarNode returns a fake node reporting the reference Astar identity
func NewAstarNode(t *testing.T) *FakeSubstrateNode {
	return NewFakeSubstrateNode(t, &FakeSubstrateNodeConfig{
		Chain:   AstarChainName,
		Name:    AstarNodeName,
		Version: "5.33.0-b8e0a6d3a4e",
	})
}

// NewFakeSubstrateNode starts a fake node and registers its shutdown with t.Cleanup
func NewFakeSubstrateNode(t *testing.T, cfg *FakeSubstrateNodeConfig) *FakeSubstrateNode {
	t.Helper()

	node := &FakeSubstrateNode{
		config: cfg,
		server: rpc.NewServer(),
		calls:  make(map[string]int),
	}

	services := map[string]interface{}{
		"system": &systemAPI{node: node},
		"chain":  &chainAPI{node: node},
		"state":  &stateAPI{node: node},
	}
	for name, svc := range services {
		if err := node.server.RegisterName(name, svc); err != nil {
			t.Fatalf("failed to register %s service: %v", name, err)
		}
	}

	node.http = httptest.NewServer(node.server.WebsocketHandler([]string{"*"}))
	t.Cleanup(node.Close)
	return node
}

// URL returns the ws:// address of the node
func (n *FakeSubstrateNode) URL() string {
	return "ws" + strings.TrimPrefix(n.http.URL, "http")
}

// Calls returns how many times method was invoked
func (n *FakeSubstrateNode) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// TotalCalls returns the number of calls across all methods
func (n *FakeSubstrateNode) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, c := range n.calls {
		total += c
	}
	return total
}

func (n *FakeSubstrateNode) record(method string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[method]++
}

// Close stops the RPC server and the http listener. Safe to call more than once.
func (n *FakeSubstrateNode) Close() {
	n.server.Stop()
	n.http.CloseClientConnections()
	n.http.Close()
}

type systemAPI struct {
	node *FakeSubstrateNode
}

func (s *systemAPI) Chain() (string, error) {
	s.node.record("system_chain")
	if s.node.config.ChainErr != nil {
		return "", s.node.config.ChainErr
	}
	return s.node.config.Chain, nil
}

func (s *systemAPI) Name() (string, error) {
	s.node.record("system_name")
	if s.node.config.NameErr != nil {
		return "", s.node.config.NameErr
	}
	return s.node.config.Name, nil
}

func (s *systemAPI) Version() string {
	s.node.record("system_version")
	return s.node.config.Version
}

type chainAPI struct {
	node *FakeSubstrateNode
}

func (c *chainAPI) GetBlockHash(ctx context.Context, number uint64) (string, error) {
	c.node.record("chain_getBlockHash")
	if delay := c.node.config.ReadyDelay; delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if number != 0 {
		return "", fmt.Errorf("block %d not available", number)
	}
	return AstarGenesis, nil
}

type stateAPI struct {
	node *FakeSubstrateNode
}

func (s *stateAPI) GetRuntimeVersion() *types.RuntimeVersion {
	s.node.record("state_getRuntimeVersion")
	return &types.RuntimeVersion{
		SpecName:           "astar",
		ImplName:           "astar",
		SpecVersion:        1400,
		ImplVersion:        0,
		TransactionVersion: 3,
	}
}

// StallingServer accepts connections but never completes a websocket handshake
type StallingServer struct {
	http    *httptest.Server
	release chan struct{}
	once    sync.Once
}

func NewStallingServer(t *testing.T) *StallingServer {
	t.Helper()

	s := &StallingServer{release: make(chan struct{})}
	s.http = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-s.release:
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *StallingServer) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

func (s *StallingServer) Close() {
	s.once.Do(func() {
		close(s.release)
		s.http.CloseClientConnections()
		s.http.Close()
	})
}

// UnusedEndpoint returns a ws:// address nothing is listening on
func UnusedEndpoint(t *testing.T) string {
	t.Helper()

	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()
	return "ws" + strings.TrimPrefix(addr, "http")
}

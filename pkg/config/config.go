package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the check CLI
const (
	EnvCheckNetwork        = "ASTAR_CHECK_NETWORK"
	EnvCheckEndpoint       = "ASTAR_CHECK_ENDPOINT"
	EnvCheckSetupTimeout   = "ASTAR_CHECK_SETUP_TIMEOUT"
	EnvCheckExpectedChain  = "ASTAR_CHECK_EXPECTED_CHAIN"
	EnvCheckExpectedName   = "ASTAR_CHECK_EXPECTED_NAME"
	EnvCheckTypesFile      = "ASTAR_CHECK_TYPES_FILE"
	EnvCheckVerbose        = "ASTAR_CHECK_VERBOSE"
	EnvPersistenceType     = "ASTAR_CHECK_PERSISTENCE_TYPE"
	EnvPersistenceDataPath = "ASTAR_CHECK_DATA_PATH"
	EnvRedisAddress        = "ASTAR_CHECK_REDIS_ADDRESS"
	EnvRedisPassword       = "ASTAR_CHECK_REDIS_PASSWORD"
	EnvRedisDB             = "ASTAR_CHECK_REDIS_DB"
	EnvRedisKeyPrefix      = "ASTAR_CHECK_REDIS_KEY_PREFIX"
)

const DefaultSetupTimeout = 5000 * time.Millisecond

type NetworkName string

func (n NetworkName) String() string {
	return string(n)
}

const (
	NetworkName_Astar   NetworkName = "astar"
	NetworkName_Shiden  NetworkName = "shiden"
	NetworkName_Shibuya NetworkName = "shibuya"
	NetworkName_Local   NetworkName = "local"
)

// NetworkPreset is the endpoint and identity a network's nodes are expected to report
type NetworkPreset struct {
	Endpoint      string
	ExpectedChain string
	ExpectedName  string
}

var NetworkPresets = map[NetworkName]*NetworkPreset{
	NetworkName_Astar: {
		Endpoint:      "wss://astar.api.onfinality.io/public-ws",
		ExpectedChain: "Astar",
		ExpectedName:  "Astar Collator",
	},
	NetworkName_Shiden: {
		Endpoint:      "wss://shiden.api.onfinality.io/public-ws",
		ExpectedChain: "Shiden",
		ExpectedName:  "Astar Collator",
	},
	NetworkName_Shibuya: {
		Endpoint:      "wss://shibuya.public.blastapi.io",
		ExpectedChain: "Shibuya Testnet",
		ExpectedName:  "Astar Collator",
	},
	NetworkName_Local: {
		Endpoint:      "ws://127.0.0.1:9944",
		ExpectedChain: "Development",
		ExpectedName:  "Astar Collator",
	},
}

func GetNetworkPreset(name NetworkName) (*NetworkPreset, error) {
	preset, ok := NetworkPresets[name]
	if !ok {
		return nil, fmt.Errorf("unsupported network %q. Supported: %s", name, GetSupportedNetworksString())
	}
	return preset, nil
}

// GetSupportedNetworks returns all preset network names sorted
func GetSupportedNetworks() []NetworkName {
	names := make([]NetworkName, 0, len(NetworkPresets))
	for name := range NetworkPresets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// GetSupportedNetworksString returns supported networks for CLI help
func GetSupportedNetworksString() string {
	names := GetSupportedNetworks()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

// CheckConfig is everything a chain identity check needs to know
type CheckConfig struct {
	Network  NetworkName `json:"network"`
	Endpoint string      `json:"endpoint"`

	// SetupTimeout bounds node startup plus connection readiness
	SetupTimeout time.Duration `json:"setupTimeout"`

	ExpectedChain string `json:"expectedChain"`
	ExpectedName  string `json:"expectedName"`

	// TypesFile optionally extends the built-in type definitions
	TypesFile string `json:"typesFile,omitempty"`

	Debug bool `json:"debug"`
}

// NewCheckConfigForNetwork fills a config from the network preset
func NewCheckConfigForNetwork(name NetworkName) (*CheckConfig, error) {
	preset, err := GetNetworkPreset(name)
	if err != nil {
		return nil, err
	}
	return &CheckConfig{
		Network:       name,
		Endpoint:      preset.Endpoint,
		SetupTimeout:  DefaultSetupTimeout,
		ExpectedChain: preset.ExpectedChain,
		ExpectedName:  preset.ExpectedName,
	}, nil
}

func (c *CheckConfig) Validate() error {
	var allErrors field.ErrorList
	if c.Endpoint == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("endpoint"), "endpoint is required"))
	} else if u, err := url.Parse(c.Endpoint); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		allErrors = append(allErrors, field.Invalid(field.NewPath("endpoint"), c.Endpoint, "must be a ws:// or wss:// URL"))
	}
	if c.SetupTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("setupTimeout"), c.SetupTimeout.String(), "must be positive"))
	}
	if c.ExpectedChain == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("expectedChain"), "expectedChain is required"))
	}
	if c.ExpectedName == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("expectedName"), "expectedName is required"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

type PersistenceType string

const (
	PersistenceType_None   PersistenceType = "none"
	PersistenceType_Memory PersistenceType = "memory"
	PersistenceType_Badger PersistenceType = "badger"
	PersistenceType_Redis  PersistenceType = "redis"
)

// PersistenceConfig selects where check results are recorded
type PersistenceConfig struct {
	Type     PersistenceType `json:"type"`
	DataPath string          `json:"dataPath"`

	RedisAddress   string `json:"redisAddress"`
	RedisPassword  string `json:"redisPassword"`
	RedisDB        int    `json:"redisDb"`
	RedisKeyPrefix string `json:"redisKeyPrefix"`
}

func (pc *PersistenceConfig) Validate() error {
	var allErrors field.ErrorList
	switch pc.Type {
	case PersistenceType_None, PersistenceType_Memory:
	case PersistenceType_Badger:
		if pc.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceType_Redis:
		if pc.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"), "redisAddress is required for redis persistence"))
		}
		if pc.RedisDB < 0 || pc.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redisDb"), pc.RedisDB, "must be between 0 and 15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("type"), pc.Type, []PersistenceType{
			PersistenceType_None, PersistenceType_Memory, PersistenceType_Badger, PersistenceType_Redis,
		}))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

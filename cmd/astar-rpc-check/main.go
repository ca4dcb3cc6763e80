package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/AstarNetwork/astar-rpc-check/pkg/config"
	"github.com/AstarNetwork/astar-rpc-check/pkg/identityCheck"
	"github.com/AstarNetwork/astar-rpc-check/pkg/logger"
	"github.com/AstarNetwork/astar-rpc-check/pkg/persistence"
	"github.com/AstarNetwork/astar-rpc-check/pkg/persistence/factory"
	"github.com/AstarNetwork/astar-rpc-check/pkg/typeRegistry"
)

func main() {
	app := &cli.App{
		Name:  "astar-rpc-check",
		Usage: "Verify that an Astar node identifies itself as expected",
		Description: `Connects to a node over its WebSocket RPC endpoint, reads system_chain
and system_name, and compares them with the values expected for the network.

Exit status is non-zero when any run fails or errors.`,
		Version: "1.0.0",
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Run the chain identity check",
				Flags:  checkFlags(),
				Action: checkCommand,
			},
			{
				Name:   "history",
				Usage:  "List recorded check results",
				Action: historyCommand,
			},
			{
				Name:   "networks",
				Usage:  "List network presets",
				Action: networksCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
			EnvVars: []string{config.EnvCheckVerbose},
		},
		&cli.StringFlag{
			Name:    "persistence-type",
			Usage:   "Where to record results: none, memory, badger, redis",
			Value:   string(config.PersistenceType_None),
			EnvVars: []string{config.EnvPersistenceType},
		},
		&cli.StringFlag{
			Name:    "data-path",
			Usage:   "Badger data directory",
			Value:   "./astar-rpc-check-data",
			EnvVars: []string{config.EnvPersistenceDataPath},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis address (host:port)",
			EnvVars: []string{config.EnvRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{config.EnvRedisPassword},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number (0-15)",
			EnvVars: []string{config.EnvRedisDB},
		},
		&cli.StringFlag{
			Name:    "redis-key-prefix",
			Usage:   "Prefix for every Redis key",
			EnvVars: []string{config.EnvRedisKeyPrefix},
		},
	}
}

func checkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "network",
			Aliases: []string{"n"},
			Usage:   "Network preset: " + config.GetSupportedNetworksString(),
			Value:   config.NetworkName_Astar.String(),
			EnvVars: []string{config.EnvCheckNetwork},
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "Override the preset WebSocket endpoint",
			EnvVars: []string{config.EnvCheckEndpoint},
		},
		&cli.DurationFlag{
			Name:    "setup-timeout",
			Usage:   "Upper bound for node startup and connection readiness",
			Value:   config.DefaultSetupTimeout,
			EnvVars: []string{config.EnvCheckSetupTimeout},
		},
		&cli.StringFlag{
			Name:    "expected-chain",
			Usage:   "Override the expected system_chain value",
			EnvVars: []string{config.EnvCheckExpectedChain},
		},
		&cli.StringFlag{
			Name:    "expected-name",
			Usage:   "Override the expected system_name value",
			EnvVars: []string{config.EnvCheckExpectedName},
		},
		&cli.StringFlag{
			Name:    "types-file",
			Usage:   "JSON file of extra type definitions merged over the built-in ones",
			EnvVars: []string{config.EnvCheckTypesFile},
		},
		&cli.IntFlag{
			Name:  "repeat",
			Usage: "Number of sequential runs",
			Value: 1,
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Minimum time between the starts of consecutive runs",
			Value: 30 * time.Second,
		},
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func openPersistence(c *cli.Context, l *zap.Logger) (persistence.ICheckResultPersistence, error) {
	return factory.NewPersistence(&config.PersistenceConfig{
		Type:           config.PersistenceType(c.String("persistence-type")),
		DataPath:       c.String("data-path"),
		RedisAddress:   c.String("redis-address"),
		RedisPassword:  c.String("redis-password"),
		RedisDB:        c.Int("redis-db"),
		RedisKeyPrefix: c.String("redis-key-prefix"),
	}, l)
}

// buildCheckConfig starts from the network preset and applies flag overrides
func buildCheckConfig(c *cli.Context) (*config.CheckConfig, error) {
	cfg, err := config.NewCheckConfigForNetwork(config.NetworkName(c.String("network")))
	if err != nil {
		return nil, err
	}
	if endpoint := c.String("endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if chain := c.String("expected-chain"); chain != "" {
		cfg.ExpectedChain = chain
	}
	if name := c.String("expected-name"); name != "" {
		cfg.ExpectedName = name
	}
	cfg.SetupTimeout = c.Duration("setup-timeout")
	cfg.TypesFile = c.String("types-file")
	cfg.Debug = c.Bool("verbose")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildRegistry(cfg *config.CheckConfig) (*typeRegistry.TypeRegistry, error) {
	registry := typeRegistry.PlasmDefinitions()
	if cfg.TypesFile == "" {
		return registry, nil
	}
	extra, err := typeRegistry.LoadFromFile(cfg.TypesFile)
	if err != nil {
		return nil, err
	}
	return typeRegistry.Merge(registry, extra), nil
}

func checkCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := buildCheckConfig(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to load type definitions: %w", err)
	}

	store, err := openPersistence(c, l)
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	check, err := identityCheck.NewChainIdentityCheck(&identityCheck.Config{
		Check:       cfg,
		Registry:    registry,
		Persistence: store,
		Logger:      l,
	})
	if err != nil {
		return fmt.Errorf("failed to create check: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := identityCheck.RunRepeated(ctx, check, c.Int("repeat"), c.Duration("interval"))
	summary := identityCheck.Summarize(results)
	l.Sugar().Infow("Check summary",
		"network", cfg.Network,
		"endpoint", cfg.Endpoint,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored,
	)
	if err != nil {
		return err
	}
	if !summary.AllPassed() {
		return cli.Exit(fmt.Sprintf("%d of %d runs did not pass", summary.Total()-summary.Passed, summary.Total()), 1)
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	if err := requireDurablePersistence(config.PersistenceType(c.String("persistence-type"))); err != nil {
		return err
	}

	store, err := openPersistence(c, l)
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}
	defer func() { _ = store.Close() }()

	results, err := store.ListCheckResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	for _, r := range results {
		line := fmt.Sprintf("%s  %-8s %-7s %s", r.StartedAt.Format(time.RFC3339), r.Network, r.Status, r.Endpoint)
		if r.Identity != nil {
			line += fmt.Sprintf("  chain=%q name=%q", r.Identity.Chain, r.Identity.Name)
		}
		if r.Error != "" {
			line += fmt.Sprintf("  error=%q", r.Error)
		}
		fmt.Println(line)
	}
	fmt.Printf("%d result(s)\n", len(results))
	return nil
}

// requireDurablePersistence rejects stores that cannot hold results from earlier invocations
func requireDurablePersistence(t config.PersistenceType) error {
	switch t {
	case config.PersistenceType_Badger, config.PersistenceType_Redis:
		return nil
	default:
		return fmt.Errorf("history needs --persistence-type badger or redis, got %q", t)
	}
}

func networksCommand(c *cli.Context) error {
	for _, name := range config.GetSupportedNetworks() {
		preset := config.NetworkPresets[name]
		fmt.Printf("%-8s %-45s chain=%q name=%q\n", name, preset.Endpoint, preset.ExpectedChain, preset.ExpectedName)
	}
	return nil
}

package coordinator

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cairnlabs/cairn/internal/agent"
	"github.com/cairnlabs/cairn/internal/config"
	"github.com/cairnlabs/cairn/pkg/swarm"
)

// ExecutorRegistry resolves executor names from cairn.yml to implementations.
// "echo" is always available; embedders register their own before Build.
type ExecutorRegistry map[string]agent.TaskExecutor

// DefaultExecutors returns a registry with the built-in executors.
func DefaultExecutors() ExecutorRegistry {
	return ExecutorRegistry{
		"echo": agent.EchoExecutor{},
	}
}

// BuildOptions carries the non-config inputs to Build.
type BuildOptions struct {
	InstanceName string           // required when the config enables Redis
	Executors    ExecutorRegistry // defaults to DefaultExecutors()
	Logger       *zap.Logger      // defaults to zap.NewNop()

	// Seed derives every agent's private randomness source. Sweeps fan
	// agent cycles out across goroutines and *math/rand.Rand is not safe
	// for concurrent use, so agents never share one. A fixed seed makes
	// each agent's draw sequence reproducible; zero means time-seeded.
	Seed int64
}

// Build wires a full swarm from a validated configuration: field, agents,
// routing, and the optional Redis store. The returned store is nil when
// the config does not enable Redis; when non-nil the caller owns closing it.
func Build(cfg *config.CairnConfig, opts BuildOptions) (*Coordinator, *swarm.Store, error) {
	if opts.Executors == nil {
		opts.Executors = DefaultExecutors()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	seeds := rand.New(rand.NewSource(seed))

	field := swarm.NewField(cfg.FieldConfig())

	names := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	agents := make([]*agent.Pilgrim, 0, len(cfg.Agents))
	for _, name := range names {
		agentCfg := cfg.Agents[name]
		executor, ok := opts.Executors[agentCfg.Executor]
		if !ok {
			return nil, nil, fmt.Errorf("agent '%s': unknown executor '%s'", name, agentCfg.Executor)
		}
		p, err := agent.New(agent.Config{
			Name:            name,
			Dimensions:      cfg.Swarm.Dimensions,
			Params:          agentCfg.Resolve(),
			Executor:        executor,
			InitialPosition: swarm.Position(agentCfg.InitialPosition),
			// Agent names are sorted above, so per-agent seeds are stable
			// for a given master seed.
			Rand:   rand.New(rand.NewSource(seeds.Int63())),
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build agent '%s': %w", name, err)
		}
		agents = append(agents, p)
	}

	routes := make(map[string]string)
	defaultAgent := ""
	if cfg.Routing != nil {
		for _, rule := range cfg.Routing.Rules {
			routes[rule.TaskType] = rule.Agent
		}
		defaultAgent = cfg.Routing.DefaultAgent
	}

	var store *swarm.Store
	if cfg.Redis != nil && cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		store, err = swarm.NewStore(redisOpts, opts.InstanceName, swarm.StoreConfig{
			Resolution:   cfg.Swarm.Resolution,
			CellCapacity: cfg.Swarm.CellCapacity,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create store: %w", err)
		}
	}

	c, err := New(Config{
		Field:        field,
		Agents:       agents,
		Store:        store,
		Logger:       opts.Logger,
		Routes:       routes,
		DefaultAgent: defaultAgent,
		DecayFactor:  cfg.Swarm.DecayFactor,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}
	return c, store, nil
}

// Package config loads and validates the cairn.yml swarm configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cairnlabs/cairn/pkg/swarm"
)

// CairnConfig represents the top-level cairn.yml configuration.
type CairnConfig struct {
	Version string           `yaml:"version"`
	Swarm   SwarmConfig      `yaml:"swarm"`
	Agents  map[string]Agent `yaml:"agents"`
	Routing *RoutingConfig   `yaml:"routing,omitempty"`
	Redis   *RedisConfig     `yaml:"redis,omitempty"`
	Logging LoggingConfig    `yaml:"logging,omitempty"`
}

// SwarmConfig holds the field-level settings shared by the whole swarm.
type SwarmConfig struct {
	Dimensions    int     `yaml:"dimensions"`
	Resolution    int     `yaml:"resolution,omitempty"`
	CellCapacity  int     `yaml:"cell_capacity,omitempty"`
	PheromoneStep float64 `yaml:"pheromone_step,omitempty"`

	// Query selects the neighbourhood strategy: "cell" (default, exact
	// rounded cell only) or "radius" (true multi-cell search).
	Query string `yaml:"query,omitempty"`

	// DecayFactor, when in (0, 1), is applied to every cell's pheromone
	// level once per coordinator sweep. Zero disables decay, preserving
	// the additive-only behaviour.
	DecayFactor float64 `yaml:"decay_factor,omitempty"`
}

// Agent represents a single agent configuration.
type Agent struct {
	// Executor names the task executor backing this agent. "echo" is the
	// built-in executor; embedders register their own.
	Executor string `yaml:"executor"`

	// Params optionally overrides individual swarm tuning parameters;
	// unset fields take the defaults.
	Params *ParamsOverride `yaml:"params,omitempty"`

	// InitialPosition optionally pins the agent's starting position.
	// When omitted the coordinator randomizes it.
	InitialPosition []float64 `yaml:"initial_position,omitempty"`
}

// ParamsOverride mirrors swarm.Params with optional fields.
type ParamsOverride struct {
	InertiaWeight      *float64 `yaml:"inertia_weight,omitempty"`
	CognitiveWeight    *float64 `yaml:"cognitive_weight,omitempty"`
	SocialWeight       *float64 `yaml:"social_weight,omitempty"`
	StigmergicWeight   *float64 `yaml:"stigmergic_weight,omitempty"`
	MaxSpeed           *float64 `yaml:"max_speed,omitempty"`
	EnergyCostPerUnit  *float64 `yaml:"energy_cost_per_unit,omitempty"`
	LowEnergyThreshold *float64 `yaml:"low_energy_threshold,omitempty"`
	RecoveryThreshold  *float64 `yaml:"recovery_threshold,omitempty"`
	RoleSwitchProb     *float64 `yaml:"role_switch_prob,omitempty"`
	SensorRadius       *float64 `yaml:"sensor_radius,omitempty"`
}

// RoutingConfig maps task types to agents.
type RoutingConfig struct {
	Rules        []RoutingRule `yaml:"rules,omitempty"`
	DefaultAgent string        `yaml:"default_agent,omitempty"`
}

// RoutingRule routes tasks of a given type to a named agent.
type RoutingRule struct {
	TaskType string `yaml:"task_type"`
	Agent    string `yaml:"agent"`
}

// RedisConfig enables the optional persistent field mirror.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load reads and validates a cairn.yml file.
func Load(path string) (*CairnConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw cairn.yml content.
func Parse(data []byte) (*CairnConfig, error) {
	var cfg CairnConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted optional sections.
func (c *CairnConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Swarm.Dimensions < 1 {
		return fmt.Errorf("swarm.dimensions must be >= 1, got %d", c.Swarm.Dimensions)
	}
	if c.Swarm.CellCapacity < 0 {
		return fmt.Errorf("swarm.cell_capacity must be >= 0, got %d", c.Swarm.CellCapacity)
	}
	if c.Swarm.PheromoneStep < 0 {
		return fmt.Errorf("swarm.pheromone_step must be >= 0, got %v", c.Swarm.PheromoneStep)
	}
	if c.Swarm.DecayFactor < 0 || c.Swarm.DecayFactor >= 1 {
		return fmt.Errorf("swarm.decay_factor must be in [0, 1), got %v", c.Swarm.DecayFactor)
	}
	switch c.Swarm.Query {
	case "", "cell", "radius":
	default:
		return fmt.Errorf("swarm.query must be 'cell' or 'radius', got %q", c.Swarm.Query)
	}
	if c.Swarm.Query == "" {
		c.Swarm.Query = "cell"
	}

	// Required: at least one agent
	if len(c.Agents) == 0 {
		return fmt.Errorf("no agents defined")
	}
	for name, agent := range c.Agents {
		if err := agent.Validate(name, c.Swarm.Dimensions); err != nil {
			return err
		}
	}

	// Routing rules and the default agent must reference defined agents.
	if c.Routing != nil {
		for _, rule := range c.Routing.Rules {
			if rule.TaskType == "" {
				return fmt.Errorf("routing rule with empty task_type")
			}
			if _, ok := c.Agents[rule.Agent]; !ok {
				return fmt.Errorf("routing rule for task type '%s' references unknown agent '%s'", rule.TaskType, rule.Agent)
			}
		}
		if c.Routing.DefaultAgent != "" {
			if _, ok := c.Agents[c.Routing.DefaultAgent]; !ok {
				return fmt.Errorf("routing default_agent references unknown agent '%s'", c.Routing.DefaultAgent)
			}
		}
	}

	if c.Redis != nil && c.Redis.URL == "" {
		return fmt.Errorf("redis section present but url is empty")
	}

	return nil
}

// Validate checks a single agent configuration.
func (a *Agent) Validate(name string, dimensions int) error {
	if a.Executor == "" {
		return fmt.Errorf("agent '%s': executor is required", name)
	}
	if len(a.InitialPosition) != 0 && len(a.InitialPosition) != dimensions {
		return fmt.Errorf("agent '%s': initial_position has %d dimensions, swarm has %d", name, len(a.InitialPosition), dimensions)
	}
	if a.Params != nil {
		if err := a.Params.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ParamsOverride) validate(agentName string) error {
	checks := map[string]*float64{
		"max_speed":            p.MaxSpeed,
		"energy_cost_per_unit": p.EnergyCostPerUnit,
		"sensor_radius":        p.SensorRadius,
	}
	for field, v := range checks {
		if v != nil && *v < 0 {
			return fmt.Errorf("agent '%s': params.%s must be >= 0, got %v", agentName, field, *v)
		}
	}
	probs := map[string]*float64{
		"low_energy_threshold": p.LowEnergyThreshold,
		"recovery_threshold":   p.RecoveryThreshold,
		"role_switch_prob":     p.RoleSwitchProb,
	}
	for field, v := range probs {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("agent '%s': params.%s must be in [0, 1], got %v", agentName, field, *v)
		}
	}
	return nil
}

// Resolve produces the effective swarm parameters for an agent: the
// defaults with any configured overrides applied.
func (a *Agent) Resolve() swarm.Params {
	params := swarm.DefaultParams()
	if a.Params == nil {
		return params
	}
	apply := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&params.InertiaWeight, a.Params.InertiaWeight)
	apply(&params.CognitiveWeight, a.Params.CognitiveWeight)
	apply(&params.SocialWeight, a.Params.SocialWeight)
	apply(&params.StigmergicWeight, a.Params.StigmergicWeight)
	apply(&params.MaxSpeed, a.Params.MaxSpeed)
	apply(&params.EnergyCostPerUnit, a.Params.EnergyCostPerUnit)
	apply(&params.LowEnergyThreshold, a.Params.LowEnergyThreshold)
	apply(&params.RecoveryThreshold, a.Params.RecoveryThreshold)
	apply(&params.RoleSwitchProb, a.Params.RoleSwitchProb)
	apply(&params.SensorRadius, a.Params.SensorRadius)
	return params
}

// FieldConfig translates the swarm section into a field configuration.
func (c *CairnConfig) FieldConfig() swarm.FieldConfig {
	cfg := swarm.FieldConfig{
		Dimensions:    c.Swarm.Dimensions,
		Resolution:    c.Swarm.Resolution,
		CellCapacity:  c.Swarm.CellCapacity,
		PheromoneStep: c.Swarm.PheromoneStep,
	}
	if c.Swarm.Query == "radius" {
		cfg.Strategy = swarm.RadiusQuery{}
	}
	return cfg
}

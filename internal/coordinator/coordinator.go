// Package coordinator runs the swarm: it routes tasks to agents, assembles
// each agent's per-cycle view of the field, applies the resulting state
// deltas, and owns the swarm-wide shared state (purpose vector, global
// best, health metrics).
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cairnlabs/cairn/internal/agent"
	"github.com/cairnlabs/cairn/pkg/swarm"
)

// Config configures a Coordinator.
type Config struct {
	Field  *swarm.Field    // required
	Agents []*agent.Pilgrim // required, at least one
	Store  *swarm.Store    // optional Redis mirror; nil runs in-memory only
	Logger *zap.Logger     // defaults to zap.NewNop()

	// Routes maps a task type to the agent name that handles it. Tasks
	// with no matching route go to DefaultAgent; an empty DefaultAgent
	// makes unrouted tasks an error.
	Routes       map[string]string
	DefaultAgent string

	// DecayFactor, when positive, is applied to the field's pheromone
	// levels after each sweep. Zero disables decay.
	DecayFactor float64
}

// agentSlot pairs an agent with the lock that serializes its cycles.
// One agent never runs two cycles at once; different agents may.
type agentSlot struct {
	pilgrim *agent.Pilgrim
	mu      sync.Mutex
}

// Coordinator is the swarm engine. All shared mutable state (purpose
// vector, global best, counters) lives behind its mutex; agent state is
// owned by the agents themselves and touched only through their cycles.
type Coordinator struct {
	field        *swarm.Field
	store        *swarm.Store
	slots        map[string]*agentSlot
	order        []string
	routes       map[string]string
	defaultAgent string
	decayFactor  float64
	logger       *zap.Logger

	mu         sync.Mutex
	purpose    *swarm.PurposeVector
	globalBest *swarm.GlobalBest
	cycles     uint64
	failures   uint64
}

// New validates the configuration and builds a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Field == nil {
		return nil, fmt.Errorf("field is required")
	}
	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("at least one agent is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	slots := make(map[string]*agentSlot, len(cfg.Agents))
	order := make([]string, 0, len(cfg.Agents))
	for _, p := range cfg.Agents {
		if _, dup := slots[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate agent name '%s'", p.Name())
		}
		slots[p.Name()] = &agentSlot{pilgrim: p}
		order = append(order, p.Name())
	}

	for taskType, agentName := range cfg.Routes {
		if _, ok := slots[agentName]; !ok {
			return nil, fmt.Errorf("route for task type '%s' references unknown agent '%s'", taskType, agentName)
		}
	}
	if cfg.DefaultAgent != "" {
		if _, ok := slots[cfg.DefaultAgent]; !ok {
			return nil, fmt.Errorf("default agent '%s' is not a configured agent", cfg.DefaultAgent)
		}
	}

	return &Coordinator{
		field:        cfg.Field,
		store:        cfg.Store,
		slots:        slots,
		order:        order,
		routes:       cfg.Routes,
		defaultAgent: cfg.DefaultAgent,
		decayFactor:  cfg.DecayFactor,
		logger:       cfg.Logger.Named("coordinator"),
	}, nil
}

// AgentNames returns the configured agent names in registration order.
func (c *Coordinator) AgentNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// AgentState returns a snapshot of the named agent's state.
func (c *Coordinator) AgentState(name string) (swarm.KinematicState, error) {
	slot, ok := c.slots[name]
	if !ok {
		return swarm.KinematicState{}, fmt.Errorf("unknown agent '%s'", name)
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.pilgrim.State(), nil
}

// Route resolves the agent name responsible for a task type.
func (c *Coordinator) Route(taskType string) (string, error) {
	if name, ok := c.routes[taskType]; ok {
		return name, nil
	}
	if c.defaultAgent != "" {
		return c.defaultAgent, nil
	}
	return "", fmt.Errorf("no route for task type '%s' and no default agent configured", taskType)
}

// ExecuteTask routes a task to an agent and runs one full cycle:
// field query, agent invocation, trail deposit, global-best promotion.
// The returned CycleResult carries any task-level failure in TaskResult;
// an error return means the cycle itself could not run.
func (c *Coordinator) ExecuteTask(ctx context.Context, task agent.Task) (*agent.CycleResult, error) {
	name, err := c.Route(task.Type)
	if err != nil {
		return nil, err
	}
	return c.runCycle(ctx, c.slots[name], task)
}

// Sweep runs one cycle of the given task type on every agent, fanning out
// across agents. Per-agent cycle errors are joined; the sweep itself keeps
// going so one broken agent does not stall the swarm.
func (c *Coordinator) Sweep(ctx context.Context, taskType string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range c.order {
		slot := c.slots[name]
		g.Go(func() error {
			_, err := c.runCycle(gctx, slot, agent.Task{Type: taskType})
			return err
		})
	}
	err := g.Wait()

	if c.decayFactor > 0 {
		c.field.Decay(c.decayFactor)
	}
	return err
}

// runCycle executes one agent cycle end to end. The slot lock serializes
// cycles per agent; the field and the coordinator's shared state have
// their own synchronization.
func (c *Coordinator) runCycle(ctx context.Context, slot *agentSlot, task agent.Task) (*agent.CycleResult, error) {
	slot.mu.Lock()
	defer slot.mu.Unlock()

	p := slot.pilgrim
	before := p.State()

	swarmCtx := swarm.Context{
		Purpose:    c.currentPurpose(),
		Trails:     c.field.QueryNear(before.Position, before.Params.SensorRadius),
		GlobalBest: c.GlobalBest(),
	}

	result := p.ExecuteCycle(ctx, task, swarmCtx)

	c.mu.Lock()
	c.cycles++
	if agent.TaskFailed(result.TaskResult) {
		c.failures++
	}
	c.mu.Unlock()

	if result.Trail != nil {
		c.depositTrail(ctx, p, result.Trail)
	}

	c.mirrorState(ctx, p)

	return &result, nil
}

// depositTrail backfills provenance, writes the trail into the in-memory
// field, mirrors it to the Redis store when one is configured, and feeds
// the global-best promotion. Mirror failures are logged and skipped: the
// in-memory field is the source of truth for movement.
func (c *Coordinator) depositTrail(ctx context.Context, p *agent.Pilgrim, trail *swarm.TrailSignature) {
	state := p.State()
	if trail.EmittingNodeID == "" {
		trail.EmittingNodeID = state.NodeID
	}
	if len(trail.PositionAtEmission) == 0 {
		trail.PositionAtEmission = state.Position.Copy()
	}

	if err := c.field.Deposit(*trail); err != nil {
		c.logger.Warn("dropping malformed trail",
			zap.String("agent", p.Name()),
			zap.String("trail_id", trail.ID),
			zap.Error(err))
		return
	}

	if c.store != nil {
		if err := c.store.RecordTrail(ctx, trail); err != nil {
			c.logger.Warn("trail mirror write failed",
				zap.String("trail_id", trail.ID),
				zap.Error(err))
		}
	}

	c.promote(ctx, &swarm.GlobalBest{
		NodeID:         trail.EmittingNodeID,
		Position:       trail.PositionAtEmission.Copy(),
		ResonanceScore: trail.PurposeAlignment * trail.ValueProposition,
		Timestamp:      trail.Timestamp,
	})
}

// promote replaces the global best iff the candidate's resonance is
// strictly greater. Ties keep the incumbent.
func (c *Coordinator) promote(ctx context.Context, candidate *swarm.GlobalBest) {
	c.mu.Lock()
	promoted := c.globalBest == nil || candidate.ResonanceScore > c.globalBest.ResonanceScore
	if promoted {
		c.globalBest = candidate
	}
	c.mu.Unlock()

	if !promoted {
		return
	}
	c.logger.Info("global best promoted",
		zap.String("node_id", candidate.NodeID),
		zap.Float64("resonance", candidate.ResonanceScore))

	if c.store != nil {
		if _, err := c.store.PromoteGlobalBest(ctx, candidate); err != nil {
			c.logger.Warn("global best mirror write failed", zap.Error(err))
		}
	}
}

// mirrorState persists the agent's post-cycle state snapshot, best effort.
func (c *Coordinator) mirrorState(ctx context.Context, p *agent.Pilgrim) {
	if c.store == nil {
		return
	}
	state := p.State()
	if err := c.store.SaveAgentState(ctx, &state); err != nil {
		c.logger.Warn("agent state mirror write failed",
			zap.String("agent", p.Name()),
			zap.Error(err))
	}
}

// SetPurpose issues a new purpose-vector pulse to the swarm. Subsequent
// cycles carry it in their context until it is replaced or cleared.
func (c *Coordinator) SetPurpose(symbolicTargets []string, intensity float64) *swarm.PurposeVector {
	pulse := &swarm.PurposeVector{
		VectorID:        uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		SymbolicTargets: append([]string(nil), symbolicTargets...),
		Intensity:       intensity,
	}
	c.mu.Lock()
	c.purpose = pulse
	c.mu.Unlock()

	c.logger.Info("purpose pulse issued",
		zap.String("vector_id", pulse.VectorID),
		zap.Strings("targets", pulse.SymbolicTargets),
		zap.Float64("intensity", pulse.Intensity))
	return pulse
}

// ClearPurpose removes the active purpose vector.
func (c *Coordinator) ClearPurpose() {
	c.mu.Lock()
	c.purpose = nil
	c.mu.Unlock()
}

func (c *Coordinator) currentPurpose() *swarm.PurposeVector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purpose
}

// GlobalBest returns a copy of the current global best, or nil if no
// candidate has been promoted yet.
func (c *Coordinator) GlobalBest() *swarm.GlobalBest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.globalBest == nil {
		return nil
	}
	out := *c.globalBest
	out.Position = c.globalBest.Position.Copy()
	return &out
}

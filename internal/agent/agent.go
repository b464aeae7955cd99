// Package agent implements the Pilgrim swarm agent: per-cycle movement,
// role selection, energy accounting, personal-best tracking and trail
// emission. All stochastic behaviour flows through an injected randomness
// source so tests are reproducible.
package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cairnlabs/cairn/pkg/swarm"
)

// spawnRadius bounds the randomized initial position per dimension.
const spawnRadius = 10.0

// Task is one unit of work handed to an agent by the coordinator.
type Task struct {
	Type    string
	Payload map[string]any
}

// TaskExecutor is the agent's task-specific logic. It receives the task
// and a snapshot of the agent's state after the cycle's kinematic update
// has been applied. A non-nil error marks the cycle's task as failed; the
// swarm bookkeeping (movement, role, trail) still completes.
type TaskExecutor interface {
	Execute(ctx context.Context, task Task, state swarm.KinematicState) (map[string]any, error)
}

// FitnessFunc evaluates a position's fitness for personal-best tracking.
// The default uses the post-move energy level as a proxy, matching the
// historical behaviour until a real objective is supplied.
type FitnessFunc func(position swarm.Position, energy float64) float64

// EnergyFitness is the default fitness proxy.
func EnergyFitness(_ swarm.Position, energy float64) float64 { return energy }

// StateDelta is the pure result of one cycle's kinematic computation.
// It is produced before any mutation, applied atomically afterwards, and
// returned to the coordinator so the authoritative state store can follow.
type StateDelta struct {
	Position    swarm.Position
	Velocity    swarm.Position
	Role        swarm.Role
	EnergyLevel float64
	Timestamp   time.Time

	// PersonalBest fields are nil when the cycle found no improvement.
	PersonalBestPosition swarm.Position
	PersonalBestValue    *float64
}

// CycleResult packages everything a cycle produces for the coordinator.
// Delta is nil when the task failed and the cycle's state update was
// discarded.
type CycleResult struct {
	TaskResult map[string]any
	Delta      *StateDelta
	Trail      *swarm.TrailSignature
}

// Config configures a Pilgrim.
type Config struct {
	Name            string
	Dimensions      int
	Params          swarm.Params
	Executor        TaskExecutor
	InitialPosition swarm.Position // randomized when empty
	Rand            swarm.Rand     // required
	Scorer          Scorer         // defaults to OutcomeScorer over Rand
	Fitness         FitnessFunc    // defaults to EnergyFitness
	Logger          *zap.Logger    // defaults to zap.NewNop()
}

// Pilgrim is one swarm agent. It owns its kinematic state exclusively:
// nothing else mutates it, and all mutation happens synchronously inside
// ExecuteCycle.
type Pilgrim struct {
	name     string
	state    swarm.KinematicState
	executor TaskExecutor
	scorer   Scorer
	fitness  FitnessFunc
	rng      swarm.Rand
	logger   *zap.Logger
}

// New creates a Pilgrim with a randomized initial position (unless pinned
// by config), zero velocity, full energy and the PILGRIM role.
func New(cfg Config) (*Pilgrim, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Dimensions < 1 {
		return nil, fmt.Errorf("agent '%s': dimensions must be >= 1", cfg.Name)
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("agent '%s': executor is required", cfg.Name)
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("agent '%s': randomness source is required", cfg.Name)
	}
	if cfg.Scorer == nil {
		cfg.Scorer = OutcomeScorer{Rand: cfg.Rand}
	}
	if cfg.Fitness == nil {
		cfg.Fitness = EnergyFitness
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	position := cfg.InitialPosition.Copy()
	if len(position) == 0 {
		position = make(swarm.Position, cfg.Dimensions)
		for i := range position {
			position[i] = (cfg.Rand.Float64()*2 - 1) * spawnRadius
		}
	} else if len(position) != cfg.Dimensions {
		return nil, fmt.Errorf("agent '%s': initial position has %d dimensions, want %d", cfg.Name, len(position), cfg.Dimensions)
	}

	return &Pilgrim{
		name: cfg.Name,
		state: swarm.KinematicState{
			NodeID:               fmt.Sprintf("node-%s", uuid.New().String()),
			Position:             position,
			Velocity:             make(swarm.Position, cfg.Dimensions),
			PersonalBestPosition: position.Copy(),
			PersonalBestValue:    math.Inf(-1),
			EnergyLevel:          1.0,
			CurrentRole:          swarm.RolePilgrim,
			Params:               cfg.Params,
			LastUpdated:          time.Now().UTC(),
		},
		executor: cfg.Executor,
		scorer:   cfg.Scorer,
		fitness:  cfg.Fitness,
		rng:      cfg.Rand,
		logger:   cfg.Logger.Named(cfg.Name),
	}, nil
}

// Name returns the agent's configured name.
func (p *Pilgrim) Name() string { return p.name }

// NodeID returns the agent's stable node identifier.
func (p *Pilgrim) NodeID() string { return p.state.NodeID }

// State returns a snapshot of the agent's current kinematic state.
func (p *Pilgrim) State() swarm.KinematicState { return p.state.Copy() }

// ExecuteCycle runs one full task cycle:
//
//  1. Compute the kinematic delta (movement, role, energy, personal best)
//     as a pure value from the current state plus swarm context.
//  2. Run the task executor against the candidate post-move state.
//  3. On success, apply the delta; on failure, leave state untouched
//     (stale-but-consistent beats partially applied).
//  4. Emit a trail signature reflecting the outcome.
//
// Executor failure is reported inside TaskResult under the "error" key,
// never as a Go error: a broken task must not break the swarm bookkeeping
// around it. A failed cycle's Delta is nil and its trail is emitted from
// the unchanged state.
func (p *Pilgrim) ExecuteCycle(ctx context.Context, task Task, swarmCtx swarm.Context) CycleResult {
	delta := p.computeDelta(swarmCtx)
	candidate := p.state.Copy()
	applyDelta(&candidate, delta)

	taskResult, failed := p.runExecutor(ctx, task, candidate)
	if failed {
		trail := buildTrail(p.state, taskResult, swarmCtx, p.scorer)
		return CycleResult{TaskResult: taskResult, Trail: &trail}
	}

	p.apply(delta)
	trail := buildTrail(p.state, taskResult, swarmCtx, p.scorer)

	return CycleResult{
		TaskResult: taskResult,
		Delta:      delta,
		Trail:      &trail,
	}
}

// runExecutor invokes the task executor, converting cancellation and
// executor errors into an error-keyed result.
func (p *Pilgrim) runExecutor(ctx context.Context, task Task, state swarm.KinematicState) (map[string]any, bool) {
	if err := ctx.Err(); err != nil {
		return map[string]any{"error": fmt.Sprintf("cycle cancelled: %v", err)}, true
	}

	result, err := p.executor.Execute(ctx, task, state)
	if err != nil {
		p.logger.Warn("task executor failed", zap.String("task_type", task.Type), zap.Error(err))
		return map[string]any{"error": fmt.Sprintf("task failed: %v", err)}, true
	}
	if result == nil {
		result = map[string]any{"status": "ok"}
	}
	return result, false
}

// computeDelta derives the next kinematic state without mutating anything.
func (p *Pilgrim) computeDelta(swarmCtx swarm.Context) *StateDelta {
	newVelocity, newPosition := computeMovement(movementInput{
		Position:     p.state.Position,
		Velocity:     p.state.Velocity,
		PersonalBest: p.state.PersonalBestPosition,
		Context:      swarmCtx,
		Params:       p.state.Params,
	}, p.rng, p.logger)

	distanceMoved := newPosition.Distance(p.state.Position)
	energy := p.state.EnergyLevel - distanceMoved*p.state.Params.EnergyCostPerUnit
	if energy < 0 {
		energy = 0
	}

	// The role machine reads this cycle's starting energy; the drain from
	// the move above takes effect on the next evaluation.
	role := nextRole(p.state.CurrentRole, p.state.EnergyLevel, p.state.Params, p.rng)

	delta := &StateDelta{
		Position:    newPosition,
		Velocity:    newVelocity,
		Role:        role,
		EnergyLevel: energy,
		Timestamp:   time.Now().UTC(),
	}

	// Personal best replacement requires a strict improvement.
	if fitness := p.fitness(newPosition, energy); fitness > p.state.PersonalBestValue {
		delta.PersonalBestPosition = newPosition.Copy()
		delta.PersonalBestValue = &fitness
		p.logger.Debug("new personal best",
			zap.Float64("fitness", fitness),
			zap.Float64("previous", p.state.PersonalBestValue))
	}

	return delta
}

// apply installs a computed delta as the agent's new state.
func (p *Pilgrim) apply(delta *StateDelta) {
	applyDelta(&p.state, delta)
}

func applyDelta(state *swarm.KinematicState, delta *StateDelta) {
	state.Position = delta.Position.Copy()
	state.Velocity = delta.Velocity.Copy()
	state.CurrentRole = delta.Role
	state.EnergyLevel = delta.EnergyLevel
	state.LastUpdated = delta.Timestamp
	if delta.PersonalBestValue != nil {
		state.PersonalBestPosition = delta.PersonalBestPosition.Copy()
		state.PersonalBestValue = *delta.PersonalBestValue
	}
}

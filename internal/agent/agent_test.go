package agent

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnlabs/cairn/pkg/swarm"
)

func newTestPilgrim(t *testing.T, seed int64, opts ...func(*Config)) *Pilgrim {
	t.Helper()
	cfg := Config{
		Name:       "tester",
		Dimensions: 3,
		Params:     swarm.DefaultParams(),
		Executor:   EchoExecutor{},
		Rand:       rand.New(rand.NewSource(seed)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := New(Config{Dimensions: 3, Executor: EchoExecutor{}, Rand: rng})
	assert.ErrorContains(t, err, "name is required")

	_, err = New(Config{Name: "a", Executor: EchoExecutor{}, Rand: rng})
	assert.ErrorContains(t, err, "dimensions")

	_, err = New(Config{Name: "a", Dimensions: 3, Rand: rng})
	assert.ErrorContains(t, err, "executor")

	_, err = New(Config{Name: "a", Dimensions: 3, Executor: EchoExecutor{}})
	assert.ErrorContains(t, err, "randomness")

	_, err = New(Config{
		Name: "a", Dimensions: 3, Executor: EchoExecutor{}, Rand: rng,
		InitialPosition: swarm.Position{1, 2},
	})
	assert.ErrorContains(t, err, "initial position")
}

func TestNew_InitialState(t *testing.T) {
	p := newTestPilgrim(t, 42)
	state := p.State()

	require.NoError(t, state.Validate())
	require.Len(t, state.Position, 3)
	for _, v := range state.Position {
		assert.LessOrEqual(t, math.Abs(v), spawnRadius)
	}
	assert.Equal(t, swarm.Position{0, 0, 0}, state.Velocity)
	assert.Equal(t, state.Position, state.PersonalBestPosition)
	assert.True(t, math.IsInf(state.PersonalBestValue, -1))
	assert.Equal(t, 1.0, state.EnergyLevel)
	assert.Equal(t, swarm.RolePilgrim, state.CurrentRole)
	assert.Contains(t, state.NodeID, "node-")
}

func TestNew_PinnedInitialPosition(t *testing.T) {
	want := swarm.Position{1, -2, 3}
	p := newTestPilgrim(t, 1, func(c *Config) { c.InitialPosition = want })

	assert.Equal(t, want, p.State().Position)

	// The agent must not alias the caller's slice.
	want[0] = 99
	assert.Equal(t, 1.0, p.State().Position[0])
}

func TestExecuteCycle_AppliesDeltaAndEmitsTrail(t *testing.T) {
	p := newTestPilgrim(t, 42, func(c *Config) {
		c.InitialPosition = swarm.Position{0, 0, 0}
	})
	before := p.State()

	gb := &swarm.GlobalBest{Position: swarm.Position{5, 5, 5}, ResonanceScore: 0.9, NodeID: "node-other"}
	result := p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{GlobalBest: gb})

	require.NotNil(t, result.Delta)
	require.NotNil(t, result.Trail)
	assert.Equal(t, "ok", result.TaskResult["status"])

	after := p.State()
	assert.Equal(t, result.Delta.Position, after.Position)
	assert.Equal(t, result.Delta.Velocity, after.Velocity)
	assert.Equal(t, result.Delta.Role, after.CurrentRole)
	assert.Equal(t, result.Delta.EnergyLevel, after.EnergyLevel)
	assert.True(t, after.LastUpdated.After(before.LastUpdated) || after.LastUpdated.Equal(before.LastUpdated))

	// Pulled towards the global best, the agent moved and paid for it.
	dist := after.Position.Distance(before.Position)
	assert.Greater(t, dist, 0.0)
	assert.InDelta(t, 1.0-dist*before.Params.EnergyCostPerUnit, after.EnergyLevel, 1e-9)

	// The trail reflects the post-move state.
	assert.Equal(t, after.Position, result.Trail.PositionAtEmission)
	assert.Equal(t, after.NodeID, result.Trail.EmittingNodeID)
	assert.Equal(t, true, result.Trail.Data["task_success"])
}

func TestExecuteCycle_PersonalBestIsStrictlyMonotonic(t *testing.T) {
	p := newTestPilgrim(t, 7)

	var lastBest float64 = math.Inf(-1)
	for i := 0; i < 20; i++ {
		p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{})
		best := p.State().PersonalBestValue
		assert.GreaterOrEqual(t, best, lastBest, "personal best must never regress (cycle %d)", i)
		lastBest = best
	}
	// The first cycle always improves on the -Inf sentinel.
	assert.False(t, math.IsInf(lastBest, -1))
}

func TestExecuteCycle_EnergyNeverNegative(t *testing.T) {
	params := swarm.DefaultParams()
	params.EnergyCostPerUnit = 100 // drain in one hop
	p := newTestPilgrim(t, 3, func(c *Config) { c.Params = params })

	gb := &swarm.GlobalBest{Position: swarm.Position{50, 50, 50}, ResonanceScore: 1}
	for i := 0; i < 5; i++ {
		p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{GlobalBest: gb})
		assert.GreaterOrEqual(t, p.State().EnergyLevel, 0.0)
	}
	// Fully drained agents drop into the resting role.
	assert.Equal(t, swarm.RoleShade, p.State().CurrentRole)
}

func TestExecuteCycle_RoleReadsEnergyBeforeMove(t *testing.T) {
	params := swarm.DefaultParams()
	params.EnergyCostPerUnit = 0.6 // one full-speed hop drains the agent
	params.RoleSwitchProb = 0

	// Draws per cycle: cognitive, social, stigmergic, then the role switch
	// check (skipped once the SHADE rule fires), then three trail scores.
	rng := &stubRand{floats: []float64{
		0.5, 0.99, 0.5, 0.5, 0.5, 0.5, 0.5, // cycle 1
		0.5, 0.99, 0.5, 0.5, 0.5, 0.5, // cycle 2
	}}
	p := newTestPilgrim(t, 0, func(c *Config) {
		c.Params = params
		c.InitialPosition = swarm.Position{0, 0, 0}
		c.Rand = rng
	})

	gb := &swarm.GlobalBest{Position: swarm.Position{10, 10, 10}, ResonanceScore: 1}

	// The move drains energy to zero, but the role machine evaluated the
	// cycle's starting energy, so the agent is still a pilgrim.
	first := p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{GlobalBest: gb})
	require.NotNil(t, first.Delta)
	assert.Equal(t, swarm.RolePilgrim, first.Delta.Role)
	assert.Equal(t, 0.0, first.Delta.EnergyLevel)

	// The depleted energy is visible on the next evaluation.
	second := p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{GlobalBest: gb})
	require.NotNil(t, second.Delta)
	assert.Equal(t, swarm.RoleShade, second.Delta.Role)
}

func TestExecuteCycle_ExecutorFailureStillEmitsTrail(t *testing.T) {
	failing := ExecutorFunc(func(context.Context, Task, swarm.KinematicState) (map[string]any, error) {
		return nil, errors.New("boom")
	})
	p := newTestPilgrim(t, 11, func(c *Config) { c.Executor = failing })

	before := p.State()
	result := p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{})

	assert.Contains(t, result.TaskResult["error"], "boom")
	require.NotNil(t, result.Trail)
	assert.Equal(t, false, result.Trail.Data["task_success"])

	// The failed cycle's state update was discarded.
	assert.Nil(t, result.Delta)
	after := p.State()
	assert.Equal(t, before.Position, after.Position)
	assert.Equal(t, before.EnergyLevel, after.EnergyLevel)
	assert.Equal(t, before.Position, result.Trail.PositionAtEmission)
}

func TestExecuteCycle_ExecutorSeesPostMoveState(t *testing.T) {
	var seen swarm.KinematicState
	spy := ExecutorFunc(func(_ context.Context, _ Task, state swarm.KinematicState) (map[string]any, error) {
		seen = state
		return map[string]any{"status": "ok"}, nil
	})
	p := newTestPilgrim(t, 13, func(c *Config) {
		c.Executor = spy
		c.InitialPosition = swarm.Position{0, 0, 0}
	})

	gb := &swarm.GlobalBest{Position: swarm.Position{5, 5, 5}, ResonanceScore: 1}
	result := p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{GlobalBest: gb})

	// The executor works against the state the cycle is about to commit.
	assert.Equal(t, result.Delta.Position, seen.Position)
	assert.Equal(t, result.Delta.EnergyLevel, seen.EnergyLevel)
}

func TestExecuteCycle_CancelledContextSkipsExecutor(t *testing.T) {
	executed := false
	spy := ExecutorFunc(func(context.Context, Task, swarm.KinematicState) (map[string]any, error) {
		executed = true
		return map[string]any{"status": "ok"}, nil
	})
	p := newTestPilgrim(t, 5, func(c *Config) { c.Executor = spy })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := p.ExecuteCycle(ctx, Task{Type: "echo"}, swarm.Context{})

	assert.False(t, executed)
	assert.Contains(t, result.TaskResult["error"], "cancelled")
	assert.Equal(t, false, result.Trail.Data["task_success"])
	assert.Nil(t, result.Delta)
}

func TestExecuteCycle_CustomFitnessDrivesPersonalBest(t *testing.T) {
	// Fitness = -distance to origin: the best position is the closest one.
	fitness := func(pos swarm.Position, _ float64) float64 {
		return -pos.Distance(swarm.Position{0, 0, 0})
	}
	p := newTestPilgrim(t, 9, func(c *Config) {
		c.Fitness = fitness
		c.InitialPosition = swarm.Position{4, 4, 4}
	})

	for i := 0; i < 10; i++ {
		p.ExecuteCycle(context.Background(), Task{Type: "echo"}, swarm.Context{})
	}

	state := p.State()
	assert.Equal(t, -state.PersonalBestPosition.Distance(swarm.Position{0, 0, 0}), state.PersonalBestValue)
}

func TestEchoExecutor_EchoesPayload(t *testing.T) {
	result, err := EchoExecutor{}.Execute(context.Background(), Task{
		Type:    "greet",
		Payload: map[string]any{"who": "world"},
	}, testState())

	require.NoError(t, err)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "world", result["who"])
	assert.Contains(t, result["summary"], "greet")
}

package swarm

import (
	"fmt"
	"math"
	"time"
)

// Position is a point (or displacement) in the swarm's N-dimensional space.
// Velocity shares the representation; the semantic difference is carried by
// the field name, not the type.
type Position []float64

// Copy returns an independent copy of the position.
// Deposited signatures and state snapshots must never share backing arrays
// with live agent state.
func (p Position) Copy() Position {
	if p == nil {
		return nil
	}
	out := make(Position, len(p))
	copy(out, p)
	return out
}

// DistanceSquared returns the squared Euclidean distance to other.
// Panics are avoided by treating missing dimensions as zero; callers that
// care about dimensionality validate it before arithmetic.
func (p Position) DistanceSquared(other Position) float64 {
	n := len(p)
	if len(other) > n {
		n = len(other)
	}
	var sum float64
	for i := 0; i < n; i++ {
		var a, b float64
		if i < len(p) {
			a = p[i]
		}
		if i < len(other) {
			b = other[i]
		}
		d := a - b
		sum += d * d
	}
	return sum
}

// Distance returns the Euclidean distance to other.
func (p Position) Distance(other Position) float64 {
	return math.Sqrt(p.DistanceSquared(other))
}

// Role is a discrete behavioural mode governing how an agent biases its
// update logic. The set is closed for validation purposes but represented
// as a string so stored trails from newer versions still deserialize.
type Role string

const (
	// RolePilgrim is the default exploring/working role.
	RolePilgrim Role = "PILGRIM"

	// RoleShade is the forced low-energy dormant role. Agents drop into it
	// when energy falls below the configured threshold and leave it only
	// once energy recovers.
	RoleShade Role = "SHADE"

	// RoleScribe favours consolidating around strong existing trails.
	RoleScribe Role = "SCRIBE"

	// RoleHerald favours broadcasting along the purpose vector.
	RoleHerald Role = "HERALD"
)

// ExplorationRoles is the set a probabilistic role switch may draw from.
// SHADE is excluded: it is only ever entered via the energy rule.
var ExplorationRoles = []Role{RolePilgrim, RoleScribe, RoleHerald}

// KnownRoles is the full closed set accepted by validation.
var KnownRoles = []Role{RolePilgrim, RoleShade, RoleScribe, RoleHerald}

// Valid reports whether the role is one of the known set.
func (r Role) Valid() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// Params holds the per-agent swarm tuning parameters. A Params value is
// read-only during an update cycle; changing parameters takes effect on
// the next cycle.
type Params struct {
	InertiaWeight     float64 `json:"inertia_weight" yaml:"inertia_weight"`
	CognitiveWeight   float64 `json:"cognitive_weight" yaml:"cognitive_weight"`
	SocialWeight      float64 `json:"social_weight" yaml:"social_weight"`
	StigmergicWeight  float64 `json:"stigmergic_weight" yaml:"stigmergic_weight"`
	MaxSpeed          float64 `json:"max_speed" yaml:"max_speed"`
	EnergyCostPerUnit float64 `json:"energy_cost_per_unit" yaml:"energy_cost_per_unit"`

	// Role state machine thresholds.
	LowEnergyThreshold float64 `json:"low_energy_threshold" yaml:"low_energy_threshold"`
	RecoveryThreshold  float64 `json:"recovery_threshold" yaml:"recovery_threshold"`
	RoleSwitchProb     float64 `json:"role_switch_prob" yaml:"role_switch_prob"`

	// SensorRadius is passed to the field query when gathering nearby trails.
	SensorRadius float64 `json:"sensor_radius" yaml:"sensor_radius"`
}

// DefaultParams returns the stock tuning used when configuration omits a
// value. The PSO weights follow the common 0.7/1.5/1.5 setting.
func DefaultParams() Params {
	return Params{
		InertiaWeight:      0.7,
		CognitiveWeight:    1.5,
		SocialWeight:       1.5,
		StigmergicWeight:   1.0,
		MaxSpeed:           1.0,
		EnergyCostPerUnit:  0.1,
		LowEnergyThreshold: 0.1,
		RecoveryThreshold:  0.3,
		RoleSwitchProb:     0.05,
		SensorRadius:       5.0,
	}
}

// KinematicState is the authoritative particle state for one agent.
// Exactly one agent owns and mutates a given state; the coordinator applies
// deltas between cycles but never mutates mid-cycle.
type KinematicState struct {
	NodeID               string    `json:"node_id"`
	Position             Position  `json:"position"`
	Velocity             Position  `json:"velocity"`
	PersonalBestPosition Position  `json:"personal_best_position"`
	PersonalBestValue    float64   `json:"personal_best_value"`
	EnergyLevel          float64   `json:"energy_level"`
	CurrentRole          Role      `json:"current_role"`
	Params               Params    `json:"params"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Validate checks structural invariants: matching dimensionality across the
// vectors, energy within [0, 1] and a known role.
func (s *KinematicState) Validate() error {
	if s.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if len(s.Position) == 0 {
		return fmt.Errorf("position must have at least one dimension")
	}
	if len(s.Velocity) != len(s.Position) {
		return fmt.Errorf("velocity dimensionality %d does not match position %d", len(s.Velocity), len(s.Position))
	}
	if len(s.PersonalBestPosition) != 0 && len(s.PersonalBestPosition) != len(s.Position) {
		return fmt.Errorf("personal_best_position dimensionality %d does not match position %d", len(s.PersonalBestPosition), len(s.Position))
	}
	if s.EnergyLevel < 0 || s.EnergyLevel > 1 {
		return fmt.Errorf("energy_level must be in [0, 1], got %v", s.EnergyLevel)
	}
	if !s.CurrentRole.Valid() {
		return fmt.Errorf("unknown role: %s", s.CurrentRole)
	}
	return nil
}

// Copy returns a deep copy of the state. Used when handing snapshots to
// task executors so they cannot alias live agent state.
func (s *KinematicState) Copy() KinematicState {
	out := *s
	out.Position = s.Position.Copy()
	out.Velocity = s.Velocity.Copy()
	out.PersonalBestPosition = s.PersonalBestPosition.Copy()
	return out
}

// TrailSignature is an immutable record of an agent's state and task
// outcome at a point in space and time, deposited into the stigmergic
// field for other agents to read.
type TrailSignature struct {
	ID                 string         `json:"id"`
	EmittingNodeID     string         `json:"emitting_node_id"`
	PositionAtEmission Position       `json:"position_at_emission"`
	Timestamp          time.Time      `json:"timestamp"`
	RoleAtEmission     Role           `json:"role_at_emission"`
	PurposeAlignment   float64        `json:"purpose_alignment_score"`
	ValueProposition   float64        `json:"value_proposition"`
	RelevanceScore     float64        `json:"relevance_score"`
	Data               map[string]any `json:"data,omitempty"`
}

// Validate checks the signature against the field's dimensionality.
// Pass dims <= 0 to skip the dimensionality check (used before the field
// has pinned its dimensions on first deposit).
func (t *TrailSignature) Validate(dims int) error {
	if t.EmittingNodeID == "" {
		return fmt.Errorf("emitting_node_id is required")
	}
	if len(t.PositionAtEmission) == 0 {
		return fmt.Errorf("position_at_emission must have at least one dimension")
	}
	if dims > 0 && len(t.PositionAtEmission) != dims {
		return fmt.Errorf("position_at_emission dimensionality %d does not match field dimensionality %d", len(t.PositionAtEmission), dims)
	}
	for name, v := range map[string]float64{
		"purpose_alignment_score": t.PurposeAlignment,
		"value_proposition":       t.ValueProposition,
		"relevance_score":         t.RelevanceScore,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", name, v)
		}
	}
	return nil
}

// FieldPoint is one occupied cell of the stigmergic field: the rounded
// coordinates that key it, a pheromone scalar, and a bounded buffer of the
// most recent trail signatures deposited into the cell (oldest first).
type FieldPoint struct {
	Coordinates    Position         `json:"coordinates"`
	PheromoneLevel float64          `json:"pheromone_level"`
	RecentTrails   []TrailSignature `json:"recent_trail_signatures"`
}

// GlobalBest is the swarm-wide best discovery, shared as the social
// attraction target. It is replaced only when a candidate's resonance
// strictly exceeds the current score.
type GlobalBest struct {
	NodeID         string    `json:"node_id"`
	Position       Position  `json:"position"`
	ResonanceScore float64   `json:"resonance_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// PurposeVector is a coordinator-issued pulse describing the swarm's
// current symbolic goal. Movement treats it as a presence flag only; the
// targets are carried through to task executors and trail data.
type PurposeVector struct {
	VectorID        string    `json:"vector_id"`
	Timestamp       time.Time `json:"timestamp"`
	SymbolicTargets []string  `json:"symbolic_targets"`
	Intensity       float64   `json:"intensity"`
}

// Context is the per-cycle swarm context the coordinator assembles for an
// agent: the current purpose pulse, trails found near the agent's last
// known position, and the global best if one has been promoted.
type Context struct {
	Purpose    *PurposeVector   `json:"purpose_vector,omitempty"`
	Trails     []TrailSignature `json:"stigmergic_trails,omitempty"`
	GlobalBest *GlobalBest      `json:"global_best,omitempty"`
}

// Rand is the randomness source injected into all stochastic swarm logic.
// *math/rand.Rand satisfies it; tests inject a seeded instance for
// reproducibility.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

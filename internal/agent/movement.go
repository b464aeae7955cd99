package agent

import (
	"go.uber.org/zap"

	"github.com/cairnlabs/cairn/pkg/swarm"
)

// epsilon guards the inverse-square-distance weighting against division
// by zero when an agent sits exactly on a trail.
const epsilon = 1e-6

// fallbackDims is the dimensionality used when an update is asked to run
// with no position at all; the defensive no-op returns vectors of this
// length rather than failing the cycle.
const fallbackDims = 3

// movementInput is a snapshot of everything one velocity/position update
// needs. computeMovement never mutates it.
type movementInput struct {
	Position     swarm.Position
	Velocity     swarm.Position
	PersonalBest swarm.Position
	Context      swarm.Context
	Params       swarm.Params
}

// computeMovement performs one PSO-style update: the new velocity is the
// sum of inertia, cognitive, social and stigmergic terms, clamped
// per-dimension to MaxSpeed, and the new position is position + velocity
// with no boundary handling.
//
// Three uniform draws are taken per call (one shared per stochastic term,
// not per dimension). Malformed input degrades instead of failing: an
// empty position yields a warning and a pass-through of the (zero-filled)
// inputs; mismatched velocity or personal-best vectors are resized.
func computeMovement(in movementInput, rng swarm.Rand, logger *zap.Logger) (swarm.Position, swarm.Position) {
	pos := in.Position
	vel := in.Velocity
	pbest := in.PersonalBest
	p := in.Params

	if len(pos) == 0 {
		logger.Warn("movement update with empty position, holding state")
		if len(vel) == 0 {
			vel = make(swarm.Position, fallbackDims)
		}
		return vel.Copy(), make(swarm.Position, fallbackDims)
	}

	dims := len(pos)
	if len(vel) != dims {
		vel = make(swarm.Position, dims)
	}
	if len(pbest) != dims {
		pbest = pos.Copy()
	}

	// Social target: the global best when present and dimensionally valid,
	// otherwise the personal best (self-attraction only).
	socialTarget := pbest
	if gb := in.Context.GlobalBest; gb != nil {
		if len(gb.Position) == dims {
			socialTarget = gb.Position
		} else {
			logger.Debug("global best has wrong dimensionality, using personal best for social term",
				zap.Int("global_best_dims", len(gb.Position)),
				zap.Int("dims", dims))
		}
	}

	// One shared draw per stochastic term.
	r1 := rng.Float64()
	r2 := rng.Float64()
	stigmergic := stigmergicInfluence(pos, in.Context.Trails)
	r3 := rng.Float64()

	newVelocity := make(swarm.Position, dims)
	for i := 0; i < dims; i++ {
		v := p.InertiaWeight*vel[i] +
			p.CognitiveWeight*r1*(pbest[i]-pos[i]) +
			p.SocialWeight*r2*(socialTarget[i]-pos[i]) +
			p.StigmergicWeight*r3*stigmergic[i]

		if v > p.MaxSpeed {
			v = p.MaxSpeed
		} else if v < -p.MaxSpeed {
			v = -p.MaxSpeed
		}
		newVelocity[i] = v
	}

	newPosition := make(swarm.Position, dims)
	for i := 0; i < dims; i++ {
		newPosition[i] = pos[i] + newVelocity[i]
	}
	return newVelocity, newPosition
}

// stigmergicInfluence computes the weighted average direction towards
// nearby trails. Each trail with a dimensionally valid emission position
// contributes its direction vector weighted by
// (relevance * value) / (squared_distance + epsilon); trails with
// negligible combined score are skipped. Returns the zero vector when the
// total weight is negligible.
func stigmergicInfluence(pos swarm.Position, trails []swarm.TrailSignature) swarm.Position {
	dims := len(pos)
	influence := make(swarm.Position, dims)
	if len(trails) == 0 {
		return influence
	}

	weightedSum := make(swarm.Position, dims)
	totalWeight := 0.0

	for _, trail := range trails {
		if len(trail.PositionAtEmission) != dims {
			continue
		}
		trailWeight := trail.RelevanceScore * trail.ValueProposition
		if trailWeight <= epsilon {
			continue
		}

		var distSq float64
		direction := make(swarm.Position, dims)
		for i := 0; i < dims; i++ {
			d := trail.PositionAtEmission[i] - pos[i]
			direction[i] = d
			distSq += d * d
		}

		weight := trailWeight / (distSq + epsilon)
		for i := 0; i < dims; i++ {
			weightedSum[i] += direction[i] * weight
		}
		totalWeight += weight
	}

	if totalWeight <= epsilon {
		return influence
	}
	for i := 0; i < dims; i++ {
		influence[i] = weightedSum[i] / totalWeight
	}
	return influence
}

package agent

import (
	"github.com/cairnlabs/cairn/pkg/swarm"
)

// nextRole runs the role state machine for one cycle. Rules are evaluated
// in priority order against the current role and energy only; there is no
// transition history and no terminal state.
//
//  1. Energy below the low threshold forces SHADE (idempotent).
//  2. A SHADE agent whose energy recovered past the recovery threshold
//     returns to PILGRIM.
//  3. Otherwise, with a small probability, the agent switches to a
//     uniformly drawn exploration role if it differs from the current one.
//  4. Otherwise the role is unchanged.
func nextRole(current swarm.Role, energy float64, params swarm.Params, rng swarm.Rand) swarm.Role {
	if energy < params.LowEnergyThreshold {
		return swarm.RoleShade
	}

	if current == swarm.RoleShade && energy > params.RecoveryThreshold {
		return swarm.RolePilgrim
	}

	if rng.Float64() < params.RoleSwitchProb {
		candidate := swarm.ExplorationRoles[rng.Intn(len(swarm.ExplorationRoles))]
		if candidate != current {
			return candidate
		}
	}

	return current
}

package swarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validState() *KinematicState {
	return &KinematicState{
		NodeID:               "node-1",
		Position:             Position{1, 2, 3},
		Velocity:             Position{0, 0, 0},
		PersonalBestPosition: Position{1, 2, 3},
		PersonalBestValue:    0.5,
		EnergyLevel:          1.0,
		CurrentRole:          RolePilgrim,
		Params:               DefaultParams(),
		LastUpdated:          time.Now(),
	}
}

func TestPositionCopy(t *testing.T) {
	t.Run("copy is independent", func(t *testing.T) {
		p := Position{1, 2, 3}
		cp := p.Copy()
		cp[0] = 99
		assert.Equal(t, 1.0, p[0])
	})

	t.Run("nil copies to nil", func(t *testing.T) {
		var p Position
		assert.Nil(t, p.Copy())
	})
}

func TestPositionDistance(t *testing.T) {
	a := Position{0, 0, 0}
	b := Position{3, 4, 0}
	assert.InDelta(t, 25.0, a.DistanceSquared(b), 1e-12)
	assert.InDelta(t, 5.0, a.Distance(b), 1e-12)

	t.Run("mismatched lengths treat missing dims as zero", func(t *testing.T) {
		assert.InDelta(t, 9.0, Position{3}.DistanceSquared(Position{0, 0}), 1e-12)
	})
}

func TestRoleValid(t *testing.T) {
	for _, r := range KnownRoles {
		assert.True(t, r.Valid(), "role %s should be valid", r)
	}
	assert.False(t, Role("QUEEN").Valid())
	assert.False(t, Role("").Valid())
}

func TestExplorationRolesExcludeShade(t *testing.T) {
	for _, r := range ExplorationRoles {
		assert.NotEqual(t, RoleShade, r)
	}
}

func TestKinematicStateValidate(t *testing.T) {
	t.Run("valid state passes", func(t *testing.T) {
		require.NoError(t, validState().Validate())
	})

	t.Run("missing node ID", func(t *testing.T) {
		s := validState()
		s.NodeID = ""
		assert.Error(t, s.Validate())
	})

	t.Run("empty position", func(t *testing.T) {
		s := validState()
		s.Position = nil
		assert.Error(t, s.Validate())
	})

	t.Run("velocity dimension mismatch", func(t *testing.T) {
		s := validState()
		s.Velocity = Position{0}
		assert.Error(t, s.Validate())
	})

	t.Run("personal best dimension mismatch", func(t *testing.T) {
		s := validState()
		s.PersonalBestPosition = Position{0}
		assert.Error(t, s.Validate())
	})

	t.Run("empty personal best is allowed", func(t *testing.T) {
		s := validState()
		s.PersonalBestPosition = nil
		assert.NoError(t, s.Validate())
	})

	t.Run("energy out of range", func(t *testing.T) {
		s := validState()
		s.EnergyLevel = 1.5
		assert.Error(t, s.Validate())
	})

	t.Run("unknown role", func(t *testing.T) {
		s := validState()
		s.CurrentRole = "QUEEN"
		assert.Error(t, s.Validate())
	})
}

func TestKinematicStateCopy(t *testing.T) {
	s := validState()
	cp := s.Copy()
	cp.Position[0] = 42
	cp.Velocity = append(cp.Velocity, 1)
	assert.Equal(t, 1.0, s.Position[0])
	assert.Len(t, s.Velocity, 3)
}

func TestTrailSignatureValidate(t *testing.T) {
	sig := TrailSignature{
		EmittingNodeID:     "node-1",
		PositionAtEmission: Position{1, 2, 3},
		Timestamp:          time.Now(),
		RoleAtEmission:     RolePilgrim,
		RelevanceScore:     0.5,
		ValueProposition:   0.5,
		PurposeAlignment:   0.5,
	}

	t.Run("valid signature passes", func(t *testing.T) {
		require.NoError(t, sig.Validate(3))
	})

	t.Run("dims zero skips dimensionality check", func(t *testing.T) {
		require.NoError(t, sig.Validate(0))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		assert.Error(t, sig.Validate(2))
	})

	t.Run("missing node ID", func(t *testing.T) {
		bad := sig
		bad.EmittingNodeID = ""
		assert.Error(t, bad.Validate(3))
	})

	t.Run("empty position", func(t *testing.T) {
		bad := sig
		bad.PositionAtEmission = nil
		assert.Error(t, bad.Validate(3))
	})

	t.Run("score out of range", func(t *testing.T) {
		bad := sig
		bad.RelevanceScore = 1.2
		assert.Error(t, bad.Validate(3))
	})
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 0.7, p.InertiaWeight)
	assert.Equal(t, 1.5, p.CognitiveWeight)
	assert.Equal(t, 1.5, p.SocialWeight)
	assert.Equal(t, 1.0, p.StigmergicWeight)
	assert.Equal(t, 1.0, p.MaxSpeed)
	assert.Equal(t, 0.1, p.LowEnergyThreshold)
	assert.Equal(t, 0.3, p.RecoveryThreshold)
	assert.Equal(t, 0.05, p.RoleSwitchProb)
	assert.Equal(t, 5.0, p.SensorRadius)
}

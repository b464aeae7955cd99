package agent

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cairnlabs/cairn/pkg/swarm"
)

// Scorer produces the three bounded trail metrics from a cycle's outcome.
//
// This is a deliberate seam: the stock OutcomeScorer draws the scores from
// success-biased random ranges as a stand-in for a real alignment/fitness
// function. Embedders with an actual objective plug in their own Scorer;
// the interface contract (three scalars in [0, 1] feeding stigmergic
// weighting and personal-best comparison) is what downstream code relies
// on.
type Scorer interface {
	Score(taskSucceeded bool, state swarm.KinematicState, swarmCtx swarm.Context) (alignment, value, relevance float64)
}

// OutcomeScorer is the placeholder scoring policy: alignment and relevance
// are uniform draws, value is biased high on success and low on failure.
type OutcomeScorer struct {
	Rand swarm.Rand
}

// Score implements Scorer.
func (s OutcomeScorer) Score(taskSucceeded bool, _ swarm.KinematicState, _ swarm.Context) (float64, float64, float64) {
	alignment := s.Rand.Float64()

	var value float64
	if taskSucceeded {
		value = 0.1 + s.Rand.Float64()*0.8 // [0.1, 0.9)
	} else {
		value = s.Rand.Float64() * 0.2 // [0.0, 0.2)
	}

	relevance := 0.1 + s.Rand.Float64()*0.8
	return alignment, value, relevance
}

// TaskFailed reports whether a task result marks the task as failed:
// an "error" key with a truthy value. Falsy values (nil, false, empty
// string, numeric zero, empty collection) count as success, so executors
// that always populate the key still report success correctly.
func TaskFailed(taskResult map[string]any) bool {
	errVal, ok := taskResult["error"]
	return ok && truthy(errVal)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// buildTrail packages the post-update state and task outcome into a trail
// signature. The emission position is a defensive copy of the updated
// position so the signature stays immutable once the agent moves on.
func buildTrail(state swarm.KinematicState, taskResult map[string]any, swarmCtx swarm.Context, scorer Scorer) swarm.TrailSignature {
	taskSucceeded := !TaskFailed(taskResult)
	alignment, value, relevance := scorer.Score(taskSucceeded, state, swarmCtx)

	data := map[string]any{
		"task_success": taskSucceeded,
		"energy_level": state.EnergyLevel,
	}
	if summary, ok := taskResult["summary"]; ok {
		data["summary"] = summary
	} else if len(taskResult) > 0 {
		data["summary"] = truncate(fmt.Sprintf("%v", taskResult), 100)
	}

	return swarm.TrailSignature{
		ID:                 uuid.New().String(),
		EmittingNodeID:     state.NodeID,
		PositionAtEmission: state.Position.Copy(),
		Timestamp:          time.Now().UTC(),
		RoleAtEmission:     state.CurrentRole,
		PurposeAlignment:   alignment,
		ValueProposition:   value,
		RelevanceScore:     relevance,
		Data:               data,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

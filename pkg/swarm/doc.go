// Package swarm provides type-safe Go definitions and Redis schema patterns
// for the Cairn stigmergic field architecture.
//
// # Overview
//
// The stigmergic field is the shared spatial memory through which Cairn
// agents coordinate indirectly. Agents never talk to each other: they move
// through an N-dimensional space, deposit trail signatures into the field
// as they work, and read back the trails other agents left nearby. The
// field is a spatial hash — positions are rounded to a configured grid
// resolution and each occupied cell keeps a bounded ring buffer of recent
// signatures plus a scalar pheromone level.
//
// # Core Concepts
//
// TrailSignature is an immutable record of an agent's state and task
// outcome at a point in space and time. Once deposited it belongs to the
// field; the emitting agent only keeps a snapshot.
//
// KinematicState is the per-agent particle state: position, velocity,
// personal best, energy and role. It is owned and mutated by exactly one
// agent; the coordinator holds the authoritative copy between cycles.
//
// GlobalBest is the single shared social-attraction target, replaced only
// when a candidate strictly exceeds the current resonance score.
//
// # Multi-Instance Support
//
// All Redis keys and Pub/Sub channels used by the optional Store are
// namespaced by instance name so multiple Cairn swarms can coexist on a
// single Redis server without interference.
//
// # Usage Example
//
//	field := swarm.NewField(swarm.FieldConfig{Dimensions: 3})
//
//	sig := swarm.TrailSignature{
//		EmittingNodeID:     "node-a",
//		PositionAtEmission: swarm.Position{1.2, 0.4, -3.0},
//		Timestamp:          time.Now(),
//		RoleAtEmission:     swarm.RolePilgrim,
//		RelevanceScore:     0.8,
//		ValueProposition:   0.6,
//	}
//	if err := field.Deposit(sig); err != nil {
//		// malformed signature, field unchanged
//	}
//
//	nearby := field.QueryNear(swarm.Position{1.0, 0.0, -3.0}, 5.0)
package swarm

package swarm

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels used by the Store are namespaced by
// instance name so multiple Cairn swarms can safely coexist on a single
// Redis server.
//
// Key pattern: cairn:{instance_name}:{entity}:{id}
// Channel pattern: cairn:{instance_name}:{event_type}_events

// TrailKey returns the Redis key for a persisted trail signature.
// Pattern: cairn:{instance_name}:trail:{signature_id}
func TrailKey(instanceName, signatureID string) string {
	return fmt.Sprintf("cairn:%s:trail:%s", instanceName, signatureID)
}

// CellTrailsKey returns the Redis key for a cell's recent-trail list.
// The cell component is the same rounded-coordinate key the in-memory
// field uses, so both views agree on cell identity.
// Pattern: cairn:{instance_name}:cell:{cell_key}:trails
func CellTrailsKey(instanceName, cellKey string) string {
	return fmt.Sprintf("cairn:%s:cell:%s:trails", instanceName, cellKey)
}

// GlobalBestKey returns the Redis key for the swarm's global best hash.
// Pattern: cairn:{instance_name}:global_best
func GlobalBestKey(instanceName string) string {
	return fmt.Sprintf("cairn:%s:global_best", instanceName)
}

// AgentStateKey returns the Redis key for an agent's last applied
// kinematic state snapshot.
// Pattern: cairn:{instance_name}:agent:{node_id}:state
func AgentStateKey(instanceName, nodeID string) string {
	return fmt.Sprintf("cairn:%s:agent:%s:state", instanceName, nodeID)
}

// TrailEventsChannel returns the Pub/Sub channel name for trail deposit
// events. Every successful Store.RecordTrail publishes the full signature
// JSON here for real-time monitoring (`cairn watch`).
// Pattern: cairn:{instance_name}:trail_events
func TrailEventsChannel(instanceName string) string {
	return fmt.Sprintf("cairn:%s:trail_events", instanceName)
}

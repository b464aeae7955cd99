package swarm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Vector fields and
// the free-form data payload are JSON-encoded into single hash fields;
// scalars are stored as individual fields so they stay queryable.
// Timestamps are stored as Unix milliseconds.

// TrailToHash converts a TrailSignature to Redis hash format.
func TrailToHash(t *TrailSignature) (map[string]interface{}, error) {
	positionJSON, err := json.Marshal(t.PositionAtEmission)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal position_at_emission: %w", err)
	}

	dataJSON := []byte("{}")
	if t.Data != nil {
		dataJSON, err = json.Marshal(t.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal trail data: %w", err)
		}
	}

	hash := map[string]interface{}{
		"id":                      t.ID,
		"emitting_node_id":        t.EmittingNodeID,
		"position_at_emission":    string(positionJSON),
		"timestamp_ms":            t.Timestamp.UnixMilli(),
		"role_at_emission":        string(t.RoleAtEmission),
		"purpose_alignment_score": strconv.FormatFloat(t.PurposeAlignment, 'g', -1, 64),
		"value_proposition":       strconv.FormatFloat(t.ValueProposition, 'g', -1, 64),
		"relevance_score":         strconv.FormatFloat(t.RelevanceScore, 'g', -1, 64),
		"data":                    string(dataJSON),
	}
	return hash, nil
}

// HashToTrail converts a Redis hash back to a TrailSignature.
func HashToTrail(hash map[string]string) (*TrailSignature, error) {
	var position Position
	if posJSON := hash["position_at_emission"]; posJSON != "" {
		if err := json.Unmarshal([]byte(posJSON), &position); err != nil {
			return nil, fmt.Errorf("failed to unmarshal position_at_emission: %w", err)
		}
	}

	tsMillis, err := strconv.ParseInt(hash["timestamp_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp_ms field: %w", err)
	}

	alignment, err := parseScore(hash, "purpose_alignment_score")
	if err != nil {
		return nil, err
	}
	value, err := parseScore(hash, "value_proposition")
	if err != nil {
		return nil, err
	}
	relevance, err := parseScore(hash, "relevance_score")
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if dataJSON := hash["data"]; dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trail data: %w", err)
		}
	}
	if len(data) == 0 {
		data = nil
	}

	return &TrailSignature{
		ID:                 hash["id"],
		EmittingNodeID:     hash["emitting_node_id"],
		PositionAtEmission: position,
		Timestamp:          time.UnixMilli(tsMillis).UTC(),
		RoleAtEmission:     Role(hash["role_at_emission"]),
		PurposeAlignment:   alignment,
		ValueProposition:   value,
		RelevanceScore:     relevance,
		Data:               data,
	}, nil
}

// GlobalBestToHash converts a GlobalBest to Redis hash format.
func GlobalBestToHash(g *GlobalBest) (map[string]interface{}, error) {
	positionJSON, err := json.Marshal(g.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal global best position: %w", err)
	}
	return map[string]interface{}{
		"node_id":         g.NodeID,
		"position":        string(positionJSON),
		"resonance_score": strconv.FormatFloat(g.ResonanceScore, 'g', -1, 64),
		"timestamp_ms":    g.Timestamp.UnixMilli(),
	}, nil
}

// HashToGlobalBest converts a Redis hash back to a GlobalBest.
func HashToGlobalBest(hash map[string]string) (*GlobalBest, error) {
	var position Position
	if posJSON := hash["position"]; posJSON != "" {
		if err := json.Unmarshal([]byte(posJSON), &position); err != nil {
			return nil, fmt.Errorf("failed to unmarshal global best position: %w", err)
		}
	}

	resonance, err := strconv.ParseFloat(hash["resonance_score"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid resonance_score field: %w", err)
	}

	tsMillis, err := strconv.ParseInt(hash["timestamp_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp_ms field: %w", err)
	}

	return &GlobalBest{
		NodeID:         hash["node_id"],
		Position:       position,
		ResonanceScore: resonance,
		Timestamp:      time.UnixMilli(tsMillis).UTC(),
	}, nil
}

func parseScore(hash map[string]string, field string) (float64, error) {
	raw, ok := hash[field]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s field: %w", field, err)
	}
	return v, nil
}

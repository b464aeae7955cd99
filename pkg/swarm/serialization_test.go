package swarm

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailHashRoundTrip(t *testing.T) {
	sig := &TrailSignature{
		ID:                 "sig-1",
		EmittingNodeID:     "node-a",
		PositionAtEmission: Position{1.5, -2.25, 0},
		Timestamp:          time.UnixMilli(1700000000123).UTC(),
		RoleAtEmission:     RoleScribe,
		PurposeAlignment:   0.25,
		ValueProposition:   0.5,
		RelevanceScore:     0.75,
		Data:               map[string]any{"task_success": true, "summary": "ok"},
	}

	hash, err := TrailToHash(sig)
	require.NoError(t, err)

	// Simulate the Redis round trip: HSet stores everything as strings.
	stringHash := make(map[string]string, len(hash))
	for k, v := range hash {
		switch val := v.(type) {
		case string:
			stringHash[k] = val
		case int64:
			stringHash[k] = strconv.FormatInt(val, 10)
		}
	}

	got, err := HashToTrail(stringHash)
	require.NoError(t, err)
	assert.Equal(t, sig.ID, got.ID)
	assert.Equal(t, sig.EmittingNodeID, got.EmittingNodeID)
	assert.Equal(t, sig.PositionAtEmission, got.PositionAtEmission)
	assert.Equal(t, sig.Timestamp, got.Timestamp)
	assert.Equal(t, sig.RoleAtEmission, got.RoleAtEmission)
	assert.Equal(t, sig.PurposeAlignment, got.PurposeAlignment)
	assert.Equal(t, sig.ValueProposition, got.ValueProposition)
	assert.Equal(t, sig.RelevanceScore, got.RelevanceScore)
	assert.Equal(t, true, got.Data["task_success"])
}

func TestHashToTrailErrors(t *testing.T) {
	t.Run("invalid timestamp", func(t *testing.T) {
		_, err := HashToTrail(map[string]string{"timestamp_ms": "soon"})
		assert.Error(t, err)
	})

	t.Run("invalid score", func(t *testing.T) {
		_, err := HashToTrail(map[string]string{
			"timestamp_ms":    "0",
			"relevance_score": "high",
		})
		assert.Error(t, err)
	})

	t.Run("missing scores default to zero", func(t *testing.T) {
		got, err := HashToTrail(map[string]string{"timestamp_ms": "0"})
		require.NoError(t, err)
		assert.Zero(t, got.RelevanceScore)
	})
}

func TestGlobalBestHashRoundTrip(t *testing.T) {
	gb := &GlobalBest{
		NodeID:         "node-b",
		Position:       Position{0.5, 1.5},
		ResonanceScore: 0.9,
		Timestamp:      time.UnixMilli(1700000000456).UTC(),
	}

	hash, err := GlobalBestToHash(gb)
	require.NoError(t, err)

	stringHash := map[string]string{
		"node_id":         hash["node_id"].(string),
		"position":        hash["position"].(string),
		"resonance_score": hash["resonance_score"].(string),
		"timestamp_ms":    "1700000000456",
	}

	got, err := HashToGlobalBest(stringHash)
	require.NoError(t, err)
	assert.Equal(t, gb, got)
}

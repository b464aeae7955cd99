package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store provides instance-scoped Redis persistence for the stigmergic
// field: a durable record of every deposited trail signature, a per-cell
// recent-trail mirror, the shared global-best slot and a Pub/Sub channel
// of deposit events.
//
// The Store is a best-effort observability mirror of the in-memory Field,
// not a recovery log: callers log and skip persistence failures rather
// than failing the task cycle. It is safe for concurrent use.
type Store struct {
	rdb          *redis.Client
	instanceName string
	resolution   int
	cellCapacity int
}

// StoreConfig configures a Store. Resolution and CellCapacity should match
// the in-memory field so the per-cell mirrors agree; zero CellCapacity
// takes DefaultCellCapacity.
type StoreConfig struct {
	Resolution   int
	CellCapacity int
}

// NewStore creates a Redis-backed store for the given instance.
// All keys and channels are namespaced with the instance name.
func NewStore(redisOpts *redis.Options, instanceName string, cfg StoreConfig) (*Store, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	if cfg.CellCapacity <= 0 {
		cfg.CellCapacity = DefaultCellCapacity
	}
	return &Store{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		resolution:   cfg.Resolution,
		cellCapacity: cfg.CellCapacity,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// RecordTrail persists a trail signature and publishes a deposit event.
// The signature is stored as a hash at cairn:{instance}:trail:{id}, its ID
// is pushed onto the containing cell's recent-trail list (trimmed to the
// configured capacity, oldest evicted) and the full signature JSON is
// published to the trail events channel.
func (s *Store) RecordTrail(ctx context.Context, sig *TrailSignature) error {
	if sig.ID == "" {
		return fmt.Errorf("trail signature ID is required")
	}
	if err := sig.Validate(0); err != nil {
		return fmt.Errorf("invalid trail signature: %w", err)
	}

	hash, err := TrailToHash(sig)
	if err != nil {
		return fmt.Errorf("failed to serialize trail signature: %w", err)
	}

	key := TrailKey(s.instanceName, sig.ID)
	if err := s.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write trail signature to Redis: %w", err)
	}

	// Mirror the in-memory cell buffer: newest at the head, bounded length.
	cellKey := CellTrailsKey(s.instanceName, CellKeyFor(sig.PositionAtEmission, s.resolution))
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, cellKey, sig.ID)
	pipe.LTrim(ctx, cellKey, 0, int64(s.cellCapacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update cell trail list: %w", err)
	}

	sigJSON, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal trail signature for event: %w", err)
	}
	if err := s.rdb.Publish(ctx, TrailEventsChannel(s.instanceName), sigJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish trail event: %w", err)
	}
	return nil
}

// GetTrail retrieves a persisted trail signature by ID.
// Returns (nil, redis.Nil) if the signature doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (s *Store) GetTrail(ctx context.Context, signatureID string) (*TrailSignature, error) {
	key := TrailKey(s.instanceName, signatureID)
	hashData, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read trail signature from Redis: %w", err)
	}
	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, redis.Nil
	}
	return HashToTrail(hashData)
}

// CellTrails returns the persisted signatures for the cell containing pos,
// newest first. Signatures whose hash has expired or been deleted are
// skipped. A cell with no deposits yields an empty slice.
func (s *Store) CellTrails(ctx context.Context, pos Position) ([]TrailSignature, error) {
	cellKey := CellTrailsKey(s.instanceName, CellKeyFor(pos, s.resolution))
	ids, err := s.rdb.LRange(ctx, cellKey, 0, int64(s.cellCapacity-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cell trail list: %w", err)
	}

	trails := make([]TrailSignature, 0, len(ids))
	for _, id := range ids {
		trail, err := s.GetTrail(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		trails = append(trails, *trail)
	}
	return trails, nil
}

// GetGlobalBest retrieves the swarm's shared global best.
// Returns (nil, redis.Nil) if no global best has been promoted yet.
func (s *Store) GetGlobalBest(ctx context.Context) (*GlobalBest, error) {
	hashData, err := s.rdb.HGetAll(ctx, GlobalBestKey(s.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read global best from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}
	return HashToGlobalBest(hashData)
}

// PromoteGlobalBest conditionally replaces the shared global best with
// candidate. The replacement happens only when the candidate's resonance
// strictly exceeds the stored score; equal-or-lower candidates are
// rejected. The compare-and-set runs under WATCH so concurrent promoters
// cannot clobber a better value; a promoter that loses the race retries
// against the updated value.
//
// Returns true if the candidate was installed.
func (s *Store) PromoteGlobalBest(ctx context.Context, candidate *GlobalBest) (bool, error) {
	key := GlobalBestKey(s.instanceName)
	promoted := false

	txn := func(tx *redis.Tx) error {
		hashData, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(hashData) > 0 {
			current, err := HashToGlobalBest(hashData)
			if err != nil {
				return fmt.Errorf("corrupt global best hash: %w", err)
			}
			if candidate.ResonanceScore <= current.ResonanceScore {
				promoted = false
				return nil
			}
		}
		hash, err := GlobalBestToHash(candidate)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			return nil
		})
		if err == nil {
			promoted = true
		}
		return err
	}

	for i := 0; i < 5; i++ {
		err := s.rdb.Watch(ctx, txn, key)
		if err == nil {
			return promoted, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // lost the race, retry against the new value
		}
		return false, fmt.Errorf("failed to promote global best: %w", err)
	}
	return false, fmt.Errorf("failed to promote global best: too many conflicts")
}

// SaveAgentState persists an agent's applied state snapshot as JSON.
// The snapshot is observability data; the coordinator's in-memory state
// map remains authoritative.
func (s *Store) SaveAgentState(ctx context.Context, state *KinematicState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("invalid kinematic state: %w", err)
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal kinematic state: %w", err)
	}
	key := AgentStateKey(s.instanceName, state.NodeID)
	if err := s.rdb.Set(ctx, key, stateJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to write kinematic state to Redis: %w", err)
	}
	return nil
}

// GetAgentState retrieves an agent's last persisted state snapshot.
// Returns (nil, redis.Nil) if no snapshot exists.
func (s *Store) GetAgentState(ctx context.Context, nodeID string) (*KinematicState, error) {
	stateJSON, err := s.rdb.Get(ctx, AgentStateKey(s.instanceName, nodeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read kinematic state from Redis: %w", err)
	}
	var state KinematicState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kinematic state: %w", err)
	}
	return &state, nil
}

// TrailSubscription represents an active Pub/Sub subscription to trail
// deposit events. Caller must call Close() when done to clean up resources.
type TrailSubscription struct {
	events <-chan *TrailSignature
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of trail deposit events.
// The channel is closed when the subscription is closed or the context is
// cancelled.
func (s *TrailSubscription) Events() <-chan *TrailSignature {
	return s.events
}

// Errors returns the channel of subscription errors. Errors are non-fatal:
// the subscription continues and the offending message is skipped.
func (s *TrailSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements
// io.Closer. Safe to call multiple times.
func (s *TrailSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeTrailEvents subscribes to trail deposit events for this
// instance. Events are delivered on a buffered channel (size 10); Redis
// Pub/Sub is at-most-once, so a slow subscriber may miss deposits.
// Caller must call subscription.Close() when done; context cancellation
// also stops the subscription.
func (s *Store) SubscribeTrailEvents(ctx context.Context) (*TrailSubscription, error) {
	pubsub := s.rdb.Subscribe(ctx, TrailEventsChannel(s.instanceName))

	eventsChan := make(chan *TrailSignature, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var sig TrailSignature
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal trail event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case eventsChan <- &sig:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &TrailSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to distinguish missing data from real failures.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/party-queue-client/pkg/models"
)

const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned by Load when nothing is cached for the session.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the last queue state the client rendered for a session.
type Snapshot struct {
	Queue      []models.QueueItem `json:"queue"`
	NowPlaying *models.NowPlaying `json:"now_playing,omitempty"`
	SavedAt    time.Time          `json:"saved_at"`
}

type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache creates a snapshot cache on the given Redis client
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return fmt.Sprintf("snapshot:%s", sessionID)
}

// Save stores the session's snapshot, replacing any previous one
func (s *SnapshotCache) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, key(sessionID), snapJSON, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// Load returns the session's cached snapshot
func (s *SnapshotCache) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	snapJSON, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(snapJSON, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Clear removes the session's snapshot
func (s *SnapshotCache) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, key(sessionID)).Err()
}

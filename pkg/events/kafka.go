package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type ActivityType string

const (
	ActivityVoteCast      ActivityType = "vote_cast"
	ActivityTrackQueued   ActivityType = "track_queued"
	ActivityQueueRendered ActivityType = "queue_rendered"
	ActivityAutoAdvanced  ActivityType = "auto_advanced"
	ActivityQueueCleared  ActivityType = "queue_cleared"
)

// Activity is one thing the client did or observed in a session.
type Activity struct {
	ID        string          `json:"id"`
	Type      ActivityType    `json:"type"`
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewActivity stamps an activity and encodes payload into it.
func NewActivity(typ ActivityType, sessionID, userID string, payload interface{}) (Activity, error) {
	a := Activity{
		ID:        uuid.New().String(),
		Type:      typ,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Activity{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		a.Payload = raw
	}
	return a, nil
}

type Publisher interface {
	Publish(ctx context.Context, a Activity) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer}
}

// Publish writes a to the topic keyed by session, so a session's activities
// stay ordered within one partition.
func (k *KafkaPublisher) Publish(ctx context.Context, a Activity) error {
	messageJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(a.SessionID),
		Value: messageJSON,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(a.Type)},
		},
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// NopPublisher drops every activity. It stands in when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Activity) error { return nil }
func (NopPublisher) Close() error { return nil }

// Event payload types
type VoteCastPayload struct {
	TrackURI string `json:"track_uri"`
	Vote     string `json:"vote"`
}

type TrackQueuedPayload struct {
	TrackURI  string `json:"track_uri"`
	TrackName string `json:"track_name"`
}

type QueueRenderedPayload struct {
	Count int    `json:"count"`
	Head  string `json:"head,omitempty"`
}

type AutoAdvancedPayload struct {
	TrackURI  string `json:"track_uri"`
	TrackName string `json:"track_name"`
	NetScore  int    `json:"net_score"`
	Attempts  int    `json:"attempts"`
}

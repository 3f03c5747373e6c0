package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of request lifecycle event being broadcast
type EventType string

const (
	EventTypeRequestQueued     EventType = "request.queued"
	EventTypeRequestProcessing EventType = "request.processing"
	EventTypeRequestCompleted  EventType = "request.completed"
	EventTypeRequestFailed     EventType = "request.failed"
)

// GlobalChannel carries events that belong to neither a session nor a combatant.
const GlobalChannel = "combat-events"

// SessionChannel is the pub/sub channel for one conflict session.
func SessionChannel(sessionID string) string {
	return "combat-events:session:" + sessionID
}

// CombatantChannel is the pub/sub channel for events outside any session,
// keyed by the acting combatant.
func CombatantChannel(id string) string {
	return "combat-events:combatant:" + id
}

// ChannelFor picks the channel an engine event is published on.
func ChannelFor(ev combat.Event) string {
	switch {
	case ev.SessionID != "":
		return SessionChannel(ev.SessionID)
	case ev.Actor != "":
		return CombatantChannel(ev.Actor)
	default:
		return GlobalChannel
	}
}

// Event is the envelope written to every channel. Engine events are carried in
// Combat; request lifecycle events use RequestID and Data.
type Event struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Combatant string         `json:"combatant,omitempty"`
	Combat    *combat.Event  `json:"combat,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution.
// It satisfies combat.Notifier.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Notify publishes an engine event. Publish failures are logged, never returned,
// because the engine does not wait on observers.
func (b *Broadcaster) Notify(ctx context.Context, ev combat.Event) {
	env := Event{Type: string(ev.Type), Combatant: ev.Actor, Combat: &ev}
	_ = b.publish(ctx, ChannelFor(ev), env)
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, combatant, requestID, requestType string) error {
	return b.publish(ctx, CombatantChannel(combatant), Event{
		Type:      string(EventTypeRequestQueued),
		RequestID: requestID,
		Combatant: combatant,
		Data: map[string]any{
			"status": "queued",
			"type":   requestType,
		},
	})
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, combatant, requestID, requestType string) error {
	return b.publish(ctx, CombatantChannel(combatant), Event{
		Type:      string(EventTypeRequestProcessing),
		RequestID: requestID,
		Combatant: combatant,
		Data: map[string]any{
			"status": "processing",
			"type":   requestType,
		},
	})
}

// PublishRequestCompleted publishes a request.completed event
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, combatant, requestID string, result map[string]any) error {
	return b.publish(ctx, CombatantChannel(combatant), Event{
		Type:      string(EventTypeRequestCompleted),
		RequestID: requestID,
		Combatant: combatant,
		Data: map[string]any{
			"status": "completed",
			"result": result,
		},
	})
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, combatant, requestID, errorMsg string) error {
	return b.publish(ctx, CombatantChannel(combatant), Event{
		Type:      string(EventTypeRequestFailed),
		RequestID: requestID,
		Combatant: combatant,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, channel string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)
	return nil
}

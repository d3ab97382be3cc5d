package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "bitvote:session:"

// Channel returns the pub/sub channel of a session.
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// RedisBroker publishes events through Redis so every API instance can relay
// them to its own websocket clients.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	log    *zap.Logger
}

// NewRedisBroker wraps an existing client. The caller keeps ownership of it.
func NewRedisBroker(client *redis.Client, hub *Hub, log *zap.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		hub:    hub,
		log:    log.Named("realtime.redis"),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, Channel(ev.SessionID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Run relays every session event received from Redis into the local hub.
// It blocks until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	b.log.Info("subscribed to session events", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				b.log.Warn("session event channel closed")
				return nil
			}

			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Error("failed to unmarshal event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if ev.SessionID == "" {
				ev.SessionID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}

			if err := b.hub.Publish(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

// Connect opens a Redis client and verifies it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

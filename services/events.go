package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventPublisher delivers quiz change events to feed subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, msg Message) error
}

// HubPublisher broadcasts straight to the local hub.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, msg Message) error {
	return p.hub.BroadcastMessage(ctx, msg)
}

// RedisPublisher publishes events on a Redis channel so that every instance
// relaying that channel can forward them to its own subscribers.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// RelayRedisEvents subscribes to channel and rebroadcasts every payload on
// the hub until ctx is cancelled.
func RelayRedisEvents(ctx context.Context, client *redis.Client, channel string, hub *Hub, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	logger.Info("relaying quiz events", zap.String("channel", channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if !json.Valid([]byte(msg.Payload)) {
				logger.Warn("dropping malformed event", zap.String("channel", channel))
				continue
			}
			if err := hub.Broadcast(ctx, []byte(msg.Payload)); err != nil {
				if errors.Is(err, ErrHubStopped) || errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Warn("failed to relay event", zap.Error(err))
			}
		}
	}
}

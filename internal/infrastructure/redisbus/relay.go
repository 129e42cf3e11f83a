// Package redisbus relays lifecycle transitions between server processes
// over Redis pub/sub.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "negotiation-hub:transitions"

// Handler receives transitions committed by other processes.
type Handler func(ctx context.Context, event negotiation.TransitionOccurred) error

type envelope struct {
	Origin string                         `json:"origin"`
	Event  negotiation.TransitionOccurred `json:"event"`
}

// Relay publishes local transitions and delivers remote ones. Each relay
// tags what it publishes with its own origin id and ignores those messages
// when they come back.
type Relay struct {
	client  redis.UniversalClient
	channel string
	origin  string
	logger  zerolog.Logger
}

// NewClient creates a Redis client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRelay(client redis.UniversalClient, channel string, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		client:  client,
		channel: channel,
		origin:  uuid.New().String(),
		logger:  logger.With().Str("service", "redis-relay").Logger(),
	}
}

func (r *Relay) Name() string { return "redis-relay" }

// Handle publishes a local transition to the other processes.
func (r *Relay) Handle(ctx context.Context, event negotiation.TransitionOccurred) error {
	data, err := r.encode(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run subscribes to the channel and hands remote transitions to handle
// until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, handle Handler) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.logger.Info().Str("channel", r.channel).Str("origin", r.origin).Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, remote, err := r.decode([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn().Err(err).Msg("discarding malformed relay message")
				continue
			}
			if !remote {
				continue
			}
			if err := handle(ctx, event); err != nil {
				r.logger.Error().Err(err).
					Str("negotiationId", event.NegotiationID).
					Int64("sequence", event.Sequence).
					Msg("relay handler failed")
			}
		}
	}
}

func (r *Relay) encode(event negotiation.TransitionOccurred) ([]byte, error) {
	return json.Marshal(envelope{Origin: r.origin, Event: event})
}

// decode reports whether the message came from another relay.
func (r *Relay) decode(data []byte) (negotiation.TransitionOccurred, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return negotiation.TransitionOccurred{}, false, err
	}
	if env.Event.NegotiationID == "" {
		return negotiation.TransitionOccurred{}, false, fmt.Errorf("relay message without negotiation id")
	}
	return env.Event, env.Origin != r.origin, nil
}

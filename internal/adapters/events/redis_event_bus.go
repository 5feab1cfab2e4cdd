package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/carematch/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
)

const defaultSubscriberBuffer = 100

// Option configures a RedisEventBus
type Option func(*RedisEventBus)

// WithSubscriberBuffer sets how many undelivered events each subscriber may hold
// before further events are dropped for it
func WithSubscriberBuffer(size int) Option {
	return func(b *RedisEventBus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// channelSubscription is one Redis subscription shared by every local subscriber of a channel
type channelSubscription struct {
	pubsub      *redis.PubSub
	// subscribers maps each event channel to a done channel closed alongside it
	subscribers map[chan *entities.DirectoryEvent]chan struct{}
}

// RedisEventBus fans directory change events out to in-process subscribers using Redis Pub/Sub
type RedisEventBus struct {
	client     *redisclient.Client
	bufferSize int
	dropped    atomic.Int64
	watchers   atomic.Int64

	mu       sync.RWMutex
	channels map[string]*channelSubscription

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client, opts ...Option) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisEventBus{
		client:     client,
		bufferSize: defaultSubscriberBuffer,
		channels:   make(map[string]*channelSubscription),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// Dropped returns how many events were discarded because a subscriber was not keeping up
func (b *RedisEventBus) Dropped() int64 {
	return b.dropped.Load()
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.DirectoryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.client.Client().Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Int64("receivers", receivers).
		Msg("Published directory event")
	return nil
}

// Subscribe returns a channel of events published after it returns. The channel is
// closed when ctx is done, on Unsubscribe, or when the bus closes.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DirectoryEvent, error) {
	b.mu.Lock()
	sub, exists := b.channels[channel]
	if !exists {
		// confirm outside the lock so a slow Redis does not stall delivery on other channels
		b.mu.Unlock()
		confirmed, err := b.confirmSubscription(ctx, channel)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		if err := b.ctx.Err(); err != nil {
			b.mu.Unlock()
			_ = confirmed.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: event bus closed", channel)
		}
		sub, exists = b.channels[channel]
		if exists {
			// another caller subscribed first; share theirs
			defer confirmed.Close()
		} else {
			sub = &channelSubscription{
				pubsub:      confirmed,
				subscribers: make(map[chan *entities.DirectoryEvent]chan struct{}),
			}
			b.channels[channel] = sub
			go b.receive(channel, sub)
		}
	}

	events := make(chan *entities.DirectoryEvent, b.bufferSize)
	done := make(chan struct{})
	sub.subscribers[events] = done
	count := len(sub.subscribers)
	b.mu.Unlock()

	observability.GetLogger().Info().
		Str("channel", channel).
		Int("subscribers", count).
		Msg("Subscribed to channel")

	b.watchers.Add(1)
	go func() {
		defer b.watchers.Add(-1)
		select {
		case <-ctx.Done():
			b.removeSubscriber(channel, events)
		case <-done:
		}
	}()

	return events, nil
}

// confirmSubscription subscribes and waits for Redis to acknowledge, so no publish
// after Subscribe returns is missed
func (b *RedisEventBus) confirmSubscription(ctx context.Context, channel string) (*redis.PubSub, error) {
	pubsub := b.client.Client().Subscribe(b.ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return pubsub, nil
}

// receive decodes messages from one Redis subscription and broadcasts them locally
func (b *RedisEventBus) receive(channel string, sub *channelSubscription) {
	defer func() {
		if err := b.closeChannel(channel, sub); err != nil {
			observability.GetLogger().Error().Err(err).Str("channel", channel).Msg("Failed to close channel")
		}
	}()

	messages := sub.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			event, err := decodeEvent(msg.Payload)
			if err != nil {
				observability.GetLogger().Warn().Err(err).Str("channel", channel).Msg("Dropping malformed event")
				continue
			}
			b.broadcast(channel, sub, event)
		}
	}
}

func (b *RedisEventBus) broadcast(channel string, sub *channelSubscription, event *entities.DirectoryEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range sub.subscribers {
		select {
		case subscriber <- event:
		default:
			b.dropped.Add(1)
			observability.GetLogger().Warn().
				Str("channel", channel).
				Str("event_id", event.ID).
				Msg("Subscriber channel full, skipping event")
		}
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, events chan *entities.DirectoryEvent) {
	b.mu.Lock()
	sub, exists := b.channels[channel]
	if !exists {
		b.mu.Unlock()
		return
	}
	done, ok := sub.subscribers[events]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(sub.subscribers, events)
	close(events)
	close(done)
	last := len(sub.subscribers) == 0
	b.mu.Unlock()

	if last {
		if err := b.closeChannel(channel, sub); err != nil {
			observability.GetLogger().Error().Err(err).Str("channel", channel).Msg("Failed to close channel")
		}
	}
}

// closeChannel closes every local subscriber and the Redis subscription. It is a
// no-op when sub has already been replaced or removed.
func (b *RedisEventBus) closeChannel(channel string, sub *channelSubscription) error {
	b.mu.Lock()
	if b.channels[channel] != sub {
		b.mu.Unlock()
		return nil
	}
	delete(b.channels, channel)
	for subscriber, done := range sub.subscribers {
		close(subscriber)
		close(done)
	}
	sub.subscribers = nil
	b.mu.Unlock()

	if err := sub.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	observability.GetLogger().Debug().Str("channel", channel).Msg("Closed subscription")
	return nil
}

// Unsubscribe closes every local subscriber of channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.RLock()
	sub, exists := b.channels[channel]
	b.mu.RUnlock()
	if !exists {
		return nil
	}

	if err := b.closeChannel(channel, sub); err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Info().Str("channel", channel).Msg("Unsubscribed from channel")
	return nil
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	open := make(map[string]*channelSubscription, len(b.channels))
	for channel, sub := range b.channels {
		open[channel] = sub
	}
	b.mu.RUnlock()

	var errs []error
	for channel, sub := range open {
		if err := b.closeChannel(channel, sub); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %w", errors.Join(errs...))
	}

	observability.GetLogger().Info().Int64("dropped_events", b.Dropped()).Msg("Event bus closed")
	return nil
}

func decodeEvent(payload string) (*entities.DirectoryEvent, error) {
	var event entities.DirectoryEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("event %q has no type", event.ID)
	}
	return &event, nil
}

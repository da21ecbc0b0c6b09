package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/utils/metrics"
)

// DefaultChannel is the Redis pub/sub channel carrying notifications.
const DefaultChannel = "teamtask:notifications"

const subscriberBuffer = 16

// ErrBroadcasterStopped is returned by Publish after Stop.
var ErrBroadcasterStopped = errors.New("events: broadcaster stopped")

// Broadcaster fans notifications out to per-user stream subscribers.
// With a Redis client, Publish goes through pub/sub so every server instance
// delivers to its own subscribers; without one, delivery is process-local.
type Broadcaster struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	subs    map[uuid.UUID]map[*subscriber]struct{}
	pubsub  *redis.PubSub
	stopped bool
	wg      sync.WaitGroup
}

type subscriber struct {
	ch chan *Notification
}

// NewBroadcaster creates a broadcaster. client may be nil.
func NewBroadcaster(client redis.UniversalClient, m *metrics.Metrics, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		client:  client,
		channel: DefaultChannel,
		logger:  logger.Named("broadcaster"),
		metrics: m,
		subs:    make(map[uuid.UUID]map[*subscriber]struct{}),
	}
}

// Start subscribes to the Redis channel and begins relaying messages.
func (b *Broadcaster) Start(ctx context.Context) error {
	if b.client == nil {
		b.logger.Info("broadcaster started in local mode")
		return nil
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.mu.Unlock()

	b.wg.Add(1)
	go b.relay(pubsub.Channel())

	b.logger.Info("broadcaster started", zap.String("channel", b.channel))
	return nil
}

// Stop closes the subscription and disconnects every stream subscriber.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	pubsub := b.pubsub
	b.mu.Unlock()

	if pubsub != nil {
		_ = pubsub.Close()
	}
	b.wg.Wait()

	b.mu.Lock()
	for userID, set := range b.subs {
		for s := range set {
			close(s.ch)
		}
		delete(b.subs, userID)
	}
	b.mu.Unlock()

	b.logger.Info("broadcaster stopped")
}

// Publish sends n to its recipients.
func (b *Broadcaster) Publish(ctx context.Context, n *Notification) error {
	b.mu.RLock()
	stopped := b.stopped
	b.mu.RUnlock()
	if stopped {
		return ErrBroadcasterStopped
	}

	if b.metrics != nil {
		b.metrics.RecordNotification(n.Type)
	}

	if b.client == nil {
		b.deliver(n)
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe registers a stream for userID. The returned cancel func must be
// called when the stream ends; the channel is closed on cancel or Stop.
func (b *Broadcaster) Subscribe(userID uuid.UUID) (<-chan *Notification, func()) {
	s := &subscriber{ch: make(chan *Notification, subscriberBuffer)}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*subscriber]struct{})
	}
	b.subs[userID][s] = struct{}{}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.StreamClients.Inc()
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[userID]; ok {
				if _, ok := set[s]; ok {
					delete(set, s)
					close(s.ch)
				}
				if len(set) == 0 {
					delete(b.subs, userID)
				}
			}
			b.mu.Unlock()
			if b.metrics != nil {
				b.metrics.StreamClients.Dec()
			}
		})
	}
	return s.ch, cancel
}

func (b *Broadcaster) relay(msgs <-chan *redis.Message) {
	defer b.wg.Done()

	for msg := range msgs {
		var n Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			b.logger.Warn("dropping malformed notification", zap.Error(err))
			continue
		}
		b.deliver(&n)
	}
}

// deliver hands n to every local subscriber of its recipients.
// Slow subscribers drop messages instead of blocking the relay.
func (b *Broadcaster) deliver(n *Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, userID := range n.Recipients {
		for s := range b.subs[userID] {
			select {
			case s.ch <- n:
			default:
				b.logger.Debug("subscriber buffer full, notification dropped",
					zap.String("user_id", userID.String()),
					zap.String("type", n.Type),
				)
			}
		}
	}
}

var _ Publisher = (*Broadcaster)(nil)

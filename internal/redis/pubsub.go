package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// subscriptionBuffer bounds the hand-off between the Redis receive loop and
// the consumer. Batches are small, the buffer only absorbs short bursts.
const subscriptionBuffer = 64

// Broker broadcasts delta batches over Redis pub/sub. Each topic maps to one
// channel named after its room key.
type Broker struct {
	client *Client
	logger *slog.Logger
}

var _ domain.Broker = (*Broker)(nil)

// NewBroker creates a broker on top of the given Redis client.
func NewBroker(client *Client, logger *slog.Logger) *Broker {
	return &Broker{client: client, logger: logger}
}

// Publish sends one delta batch to all current subscribers of the topic.
func (b *Broker) Publish(ctx context.Context, topic string, words []domain.WordCount) error {
	payload, err := json.Marshal(domain.RoomUpdate{Words: words})
	if err != nil {
		return fmt.Errorf("marshalling room update: %w", err)
	}

	if err := b.client.rdb.Publish(ctx, domain.RoomChannel(topic), payload).Err(); err != nil {
		return fmt.Errorf("publishing to topic %q: %w", topic, err)
	}
	return nil
}

// Subscribe opens the topic's channel and waits for Redis to confirm the
// subscription before returning, so no update published after Subscribe
// returns can be missed.
func (b *Broker) Subscribe(ctx context.Context, topic string) (domain.Subscription, error) {
	pubsub := b.client.rdb.Subscribe(ctx, domain.RoomChannel(topic))

	// Receive blocks until the subscribe confirmation arrives.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to topic %q: %w", topic, err)
	}

	sub := &subscription{
		topic:  topic,
		pubsub: pubsub,
		events: make(chan []domain.WordCount, subscriptionBuffer),
		quit:   make(chan struct{}),
		logger: b.logger,
	}
	go sub.receiveLoop()
	return sub, nil
}

type subscription struct {
	topic     string
	pubsub    *goredis.PubSub
	events    chan []domain.WordCount
	quit      chan struct{}
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

func (s *subscription) Events() <-chan []domain.WordCount {
	return s.events
}

// Close unsubscribes from the channel. The events channel closes once the
// receive loop drains.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

// receiveLoop converts raw pub/sub messages into delta batches. It exits when
// the underlying channel closes, which happens after Close.
func (s *subscription) receiveLoop() {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var update domain.RoomUpdate
		if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
			s.logger.Warn("dropping malformed room update",
				slog.String("topic", s.topic),
				slog.String("error", err.Error()))
			continue
		}
		select {
		case s.events <- update.Words:
		case <-s.quit:
			return
		}
	}
}

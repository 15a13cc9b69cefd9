package domain

import "context"

// Broker is the broadcast backend the multiplexer drives. Subscribe must not
// return until the subscription is established: once a Join backed by a
// Subscribe has completed, no update published afterwards may be missed.
type Broker interface {
	// Publish sends one delta batch to all current subscribers of the topic.
	Publish(ctx context.Context, topic string, words []WordCount) error
	// Subscribe opens the topic's broadcast channel and confirms it with the
	// backend before returning.
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription is an active broadcast subscription for a single topic.
type Subscription interface {
	// Events delivers batches in publish order. The channel closes after Close.
	Events() <-chan []WordCount
	// Close unsubscribes and releases the subscription.
	Close() error
}

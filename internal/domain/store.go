package domain

import "context"

// Roles assigned when a topic is created or revisited by its creator.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// WordStore owns the authoritative per-topic ranked sets and the topic
// registry.
type WordStore interface {
	// ApplyDeltas atomically folds one delta batch into the topic's ranked set
	// and bumps the served-requests counter.
	ApplyDeltas(ctx context.Context, topic string, words []WordCount) error
	// TopWords returns up to limit words ordered by count descending.
	TopWords(ctx context.Context, topic string, limit int64) ([]WordCount, error)
	// CreateTopic registers a topic. The first creator becomes admin; later
	// callers get the user role.
	CreateTopic(ctx context.Context, name, creatorID string) (string, error)
	TopicExists(ctx context.Context, name string) (bool, error)
	// ServedRequests returns the global count of processed comments.
	ServedRequests(ctx context.Context) (int64, error)
}

// SnapshotProvider seeds a viewer's initial word view.
type SnapshotProvider interface {
	TopWords(ctx context.Context, topic string, limit int64) ([]WordCount, error)
}

package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/Shyamsaitejamandibi/votii/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
)

const (
	existingTopicsKey = "existing-topics"
	topicAdminsKey    = "topicAdmins"
	servedRequestsKey = "served-requests"
)

func topicCreatorKey(topic string) string {
	return "topic:" + topic + ":creator"
}

// WordStore persists per-topic word counts in Redis sorted sets keyed by the
// room channel name, so the ranked set and the fan-out channel share a name.
type WordStore struct {
	client  *Client
	scripts *ScriptRunner
	logger  *slog.Logger
}

var _ domain.WordStore = (*WordStore)(nil)

// NewWordStore creates a word store backed by the given Redis client.
func NewWordStore(client *Client, logger *slog.Logger) *WordStore {
	return &WordStore{
		client:  client,
		scripts: NewScriptRunner(client),
		logger:  logger,
	}
}

// ApplyDeltas folds a delta batch into the topic's ranked set atomically.
func (s *WordStore) ApplyDeltas(ctx context.Context, topic string, words []domain.WordCount) error {
	if len(words) == 0 {
		return nil
	}

	start := time.Now()
	applied, err := s.scripts.ApplyDeltas(ctx, topic, words)
	if err != nil {
		return fmt.Errorf("applying word deltas for topic %q: %w", topic, err)
	}

	metrics.WordsExtracted.Add(float64(applied))
	s.logger.Debug("applied word deltas",
		slog.String("topic", topic),
		slog.Int64("words", applied),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// TopWords returns up to limit words for the topic, highest count first.
func (s *WordStore) TopWords(ctx context.Context, topic string, limit int64) ([]domain.WordCount, error) {
	entries, err := s.client.rdb.ZRevRangeWithScores(ctx, domain.RoomChannel(topic), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading top words for topic %q: %w", topic, err)
	}

	words := make([]domain.WordCount, 0, len(entries))
	for _, e := range entries {
		text, ok := e.Member.(string)
		if !ok {
			continue
		}
		words = append(words, domain.WordCount{Text: text, Value: int64(e.Score)})
	}
	return words, nil
}

// CreateTopic registers a topic and records its creator. The first caller to
// claim a topic becomes its admin; later callers for the same topic get the
// user role. Registration and creator claim run in one transaction so a topic
// can never exist without a creator.
func (s *WordStore) CreateTopic(ctx context.Context, topic, clientID string) (string, error) {
	if err := domain.ValidateTopic(topic); err != nil {
		return "", err
	}

	var added *goredis.IntCmd
	var claimed *goredis.BoolCmd
	_, err := s.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		added = pipe.SAdd(ctx, existingTopicsKey, topic)
		claimed = pipe.SetNX(ctx, topicCreatorKey(topic), clientID, 0)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("creating topic %q: %w", topic, err)
	}

	if added.Val() == 0 || !claimed.Val() {
		// Topic already existed, the caller joins as a regular user.
		return domain.RoleUser, nil
	}

	if err := s.client.rdb.HSet(ctx, topicAdminsKey, topic, clientID).Err(); err != nil {
		return "", fmt.Errorf("recording admin for topic %q: %w", topic, err)
	}

	metrics.TopicsCreated.Inc()
	s.logger.Info("topic created",
		slog.String("topic", topic),
		slog.String("creator", clientID))
	return domain.RoleAdmin, nil
}

// TopicExists reports whether the topic has been created.
func (s *WordStore) TopicExists(ctx context.Context, topic string) (bool, error) {
	exists, err := s.client.rdb.SIsMember(ctx, existingTopicsKey, topic).Result()
	if err != nil {
		return false, fmt.Errorf("checking topic %q: %w", topic, err)
	}
	return exists, nil
}

// ServedRequests returns the number of comment batches applied so far.
func (s *WordStore) ServedRequests(ctx context.Context) (int64, error) {
	count, err := s.client.rdb.Get(ctx, servedRequestsKey).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading served requests: %w", err)
	}
	return count, nil
}

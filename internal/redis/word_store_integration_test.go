package redis

import (
	"context"
	"testing"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordStore_ApplyDeltasAndTopWords(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())
	ctx := context.Background()

	err := store.ApplyDeltas(ctx, "gophers", []domain.WordCount{
		{Text: "hello", Value: 3},
		{Text: "world", Value: 1},
	})
	require.NoError(t, err)

	err = store.ApplyDeltas(ctx, "gophers", []domain.WordCount{
		{Text: "world", Value: 4},
	})
	require.NoError(t, err)

	words, err := store.TopWords(ctx, "gophers", 10)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, domain.WordCount{Text: "world", Value: 5}, words[0])
	assert.Equal(t, domain.WordCount{Text: "hello", Value: 3}, words[1])
}

func TestWordStore_TopWordsRespectsLimit(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())
	ctx := context.Background()

	err := store.ApplyDeltas(ctx, "gophers", []domain.WordCount{
		{Text: "a", Value: 1},
		{Text: "b", Value: 2},
		{Text: "c", Value: 3},
	})
	require.NoError(t, err)

	words, err := store.TopWords(ctx, "gophers", 2)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "c", words[0].Text)
	assert.Equal(t, "b", words[1].Text)
}

func TestWordStore_TopWordsEmptyTopic(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())

	words, err := store.TopWords(context.Background(), "empty", 50)
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestWordStore_ApplyDeltasEmptyBatch(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())
	ctx := context.Background()

	require.NoError(t, store.ApplyDeltas(ctx, "gophers", nil))

	// An empty batch must not count as a served request.
	served, err := store.ServedRequests(ctx)
	require.NoError(t, err)
	assert.Zero(t, served)
}

func TestWordStore_CreateTopic(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())
	ctx := context.Background()

	role, err := store.CreateTopic(ctx, "gophers", "client-one")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)

	exists, err := store.TopicExists(ctx, "gophers")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWordStore_CreateTopicSecondCallerIsUser(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())
	ctx := context.Background()

	role, err := store.CreateTopic(ctx, "gophers", "client-one")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, role)

	role, err = store.CreateTopic(ctx, "gophers", "client-two")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)
}

func TestWordStore_CreateTopicRejectsInvalidName(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())

	_, err := store.CreateTopic(context.Background(), "not valid!", "client-one")
	assert.ErrorIs(t, err, domain.ErrInvalidTopic)
}

func TestWordStore_TopicExistsUnknown(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())

	exists, err := store.TopicExists(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWordStore_ServedRequests(t *testing.T) {
	client := setupTestClient(t)
	store := NewWordStore(client, testLogger())
	ctx := context.Background()

	served, err := store.ServedRequests(ctx)
	require.NoError(t, err)
	assert.Zero(t, served)

	for i := 0; i < 3; i++ {
		err := store.ApplyDeltas(ctx, "gophers", []domain.WordCount{{Text: "hi", Value: 1}})
		require.NoError(t, err)
	}

	served, err = store.ServedRequests(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, served)
}

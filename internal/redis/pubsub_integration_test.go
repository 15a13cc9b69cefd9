package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishAndSubscribe(t *testing.T) {
	client := setupTestClient(t)
	broker := NewBroker(client, testLogger())
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "gophers")
	require.NoError(t, err)
	defer sub.Close()

	err = broker.Publish(ctx, "gophers", []domain.WordCount{{Text: "hello", Value: 2}})
	require.NoError(t, err)

	select {
	case words := <-sub.Events():
		require.Len(t, words, 1)
		assert.Equal(t, domain.WordCount{Text: "hello", Value: 2}, words[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pubsub message")
	}
}

func TestBroker_SubscribeConfirmedBeforeReturn(t *testing.T) {
	client := setupTestClient(t)
	broker := NewBroker(client, testLogger())
	ctx := context.Background()

	// A publish issued right after Subscribe returns must be delivered. This
	// only holds because Subscribe waits for the backend confirmation.
	sub, err := broker.Subscribe(ctx, "gophers")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, "gophers", []domain.WordCount{{Text: "first", Value: 1}}))

	select {
	case words := <-sub.Events():
		assert.Equal(t, "first", words[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("message published after Subscribe returned was missed")
	}
}

func TestBroker_DeliversInPublishOrder(t *testing.T) {
	client := setupTestClient(t)
	broker := NewBroker(client, testLogger())
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "gophers")
	require.NoError(t, err)
	defer sub.Close()

	expected := []string{"one", "two", "three", "four", "five"}
	for _, text := range expected {
		require.NoError(t, broker.Publish(ctx, "gophers", []domain.WordCount{{Text: text, Value: 1}}))
	}

	timeout := time.After(2 * time.Second)
	for _, want := range expected {
		select {
		case words := <-sub.Events():
			assert.Equal(t, want, words[0].Text)
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestBroker_TopicsAreIsolated(t *testing.T) {
	client := setupTestClient(t)
	broker := NewBroker(client, testLogger())
	ctx := context.Background()

	subA, err := broker.Subscribe(ctx, "alpha")
	require.NoError(t, err)
	defer subA.Close()
	subB, err := broker.Subscribe(ctx, "beta")
	require.NoError(t, err)
	defer subB.Close()

	require.NoError(t, broker.Publish(ctx, "alpha", []domain.WordCount{{Text: "only-alpha", Value: 1}}))

	select {
	case words := <-subA.Events():
		assert.Equal(t, "only-alpha", words[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("alpha subscriber timed out")
	}

	select {
	case <-subB.Events():
		t.Fatal("beta subscriber should not have received a message")
	case <-time.After(200 * time.Millisecond):
		// Expected: no message
	}
}

func TestBroker_MalformedPayloadIsSkipped(t *testing.T) {
	client := setupTestClient(t)
	broker := NewBroker(client, testLogger())
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "gophers")
	require.NoError(t, err)
	defer sub.Close()

	// Publish garbage directly on the channel, then a valid batch.
	require.NoError(t, client.rdb.Publish(ctx, domain.RoomChannel("gophers"), "{not json").Err())
	require.NoError(t, broker.Publish(ctx, "gophers", []domain.WordCount{{Text: "ok", Value: 1}}))

	select {
	case words := <-sub.Events():
		assert.Equal(t, "ok", words[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("valid message after malformed one was not delivered")
	}
}

func TestSubscription_Close(t *testing.T) {
	client := setupTestClient(t)
	broker := NewBroker(client, testLogger())

	sub, err := broker.Subscribe(context.Background(), "gophers")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed after Close()")
	}
}

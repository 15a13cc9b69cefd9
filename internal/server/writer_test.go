package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitTimeout() <-chan time.Time {
	return time.After(2 * time.Second)
}

// newQueuedWriter builds a clientWriter with a small queue and no running
// write loop, so enqueue behaviour can be observed directly.
func newQueuedWriter(capacity int) *clientWriter {
	return &clientWriter{
		sendCh: make(chan []byte, capacity),
		done:   make(chan struct{}),
		logger: testLogger(),
	}
}

func drain(cw *clientWriter) []string {
	var out []string
	for {
		select {
		case msg := <-cw.sendCh:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestEnqueue_QueuesInOrder(t *testing.T) {
	cw := newQueuedWriter(4)

	cw.enqueue([]byte("a"))
	cw.enqueue([]byte("b"))
	cw.enqueue([]byte("c"))

	assert.Equal(t, []string{"a", "b", "c"}, drain(cw))
}

func TestEnqueue_DropsOldestOnOverflow(t *testing.T) {
	cw := newQueuedWriter(2)

	cw.enqueue([]byte("a"))
	cw.enqueue([]byte("b"))
	cw.enqueue([]byte("c"))

	// "a" is evicted to make room for "c".
	assert.Equal(t, []string{"b", "c"}, drain(cw))
}

func TestEnqueue_RepeatedOverflowKeepsNewest(t *testing.T) {
	cw := newQueuedWriter(2)

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		cw.enqueue([]byte(msg))
	}

	assert.Equal(t, []string{"d", "e"}, drain(cw))
}

func TestEnqueue_NeverBlocks(t *testing.T) {
	cw := newQueuedWriter(1)

	donech := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			cw.enqueue([]byte("x"))
		}
		close(donech)
	}()

	select {
	case <-donech:
	case <-waitTimeout():
		t.Fatal("enqueue blocked on a full queue")
	}

	require.Len(t, drain(cw), 1)
}

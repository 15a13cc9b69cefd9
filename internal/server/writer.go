package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/Shyamsaitejamandibi/votii/internal/metrics"
	"github.com/Shyamsaitejamandibi/votii/internal/rooms"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	sendQueueSize = 16
	writeWait     = 5 * time.Second
	pingInterval  = 30 * time.Second
)

// clientWriter owns all writes to one WebSocket connection. Frames are queued
// through a bounded channel; when the queue is full the oldest frame is
// dropped so a slow reader only loses intermediate deltas, never its
// connection.
type clientWriter struct {
	conn   *websocket.Conn
	clock  clockwork.Clock
	logger *slog.Logger

	sendCh   chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func newClientWriter(conn *websocket.Conn, clock clockwork.Clock, logger *slog.Logger) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		clock:  clock,
		logger: logger,
		sendCh: make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

// Send queues one delta batch. It never blocks: on a full queue the oldest
// queued frame is discarded to make room, and the discard is counted.
func (cw *clientWriter) Send(u rooms.Update) {
	data, err := json.Marshal(domain.RoomUpdate{Words: u.Words})
	if err != nil {
		cw.logger.Error("failed to marshal room update", slog.String("error", err.Error()))
		return
	}
	cw.enqueue(data)
}

// Seed queues the initial snapshot frame. It shares the update envelope so
// clients fold it the same way as any other batch.
func (cw *clientWriter) Seed(words []domain.WordCount) {
	data, err := json.Marshal(domain.RoomUpdate{Words: words})
	if err != nil {
		cw.logger.Error("failed to marshal snapshot frame", slog.String("error", err.Error()))
		return
	}
	cw.enqueue(data)
}

func (cw *clientWriter) enqueue(data []byte) {
	select {
	case cw.sendCh <- data:
		return
	default:
	}

	// Queue full. Evict the oldest frame, then retry once. If another
	// goroutine won the freed slot, the new frame is the one dropped.
	select {
	case <-cw.sendCh:
		metrics.DeliveriesDropped.Inc()
	default:
	}

	select {
	case cw.sendCh <- data:
	default:
		metrics.DeliveriesDropped.Inc()
	}
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				return
			}
		case <-cw.done:
			return
		}
	}
}

// stop terminates the write loop and closes the connection. Safe to call more
// than once.
func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.done)
		cw.conn.Close()
	})
}

var _ rooms.Outbound = (*clientWriter)(nil)

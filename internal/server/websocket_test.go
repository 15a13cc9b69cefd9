package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTopic(t *testing.T, server *httptest.Server, topic string) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + topic
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *ws.Conn) domain.RoomUpdate {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var update domain.RoomUpdate
	require.NoError(t, json.Unmarshal(msg, &update))
	return update
}

func waitForMembers(t *testing.T, ts *testServer, topic string, expected int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ts.mux.MemberCount(topic) == expected
	}, 2*time.Second, time.Millisecond)
}

func TestWebSocket_SeedThenDeltas(t *testing.T) {
	ts := newTestServer(t)
	doRequest(ts, http.MethodPost, "/api/topics", `{"topic":"gophers","client_id":"alice"}`)
	doRequest(ts, http.MethodPost, "/api/topics/gophers/comments", `{"comment":"hello hello"}`)

	server := httptest.NewServer(ts.srv.echo)
	defer server.Close()

	conn := dialTopic(t, server, "gophers")

	// First frame is the snapshot seed.
	seed := readUpdate(t, conn)
	require.Len(t, seed.Words, 1)
	assert.Equal(t, domain.WordCount{Text: "hello", Value: 2}, seed.Words[0])

	waitForMembers(t, ts, "gophers", 1)

	// A comment submitted while connected arrives as a delta batch.
	doRequest(ts, http.MethodPost, "/api/topics/gophers/comments", `{"comment":"world"}`)

	delta := readUpdate(t, conn)
	require.Len(t, delta.Words, 1)
	assert.Equal(t, domain.WordCount{Text: "world", Value: 1}, delta.Words[0])
}

func TestWebSocket_FanOutToAllViewers(t *testing.T) {
	ts := newTestServer(t)
	doRequest(ts, http.MethodPost, "/api/topics", `{"topic":"gophers","client_id":"alice"}`)

	server := httptest.NewServer(ts.srv.echo)
	defer server.Close()

	conn1 := dialTopic(t, server, "gophers")
	conn2 := dialTopic(t, server, "gophers")

	// Drain the (empty) seed frames.
	assert.Empty(t, readUpdate(t, conn1).Words)
	assert.Empty(t, readUpdate(t, conn2).Words)

	waitForMembers(t, ts, "gophers", 2)

	doRequest(ts, http.MethodPost, "/api/topics/gophers/comments", `{"comment":"shared"}`)

	for _, conn := range []*ws.Conn{conn1, conn2} {
		update := readUpdate(t, conn)
		require.Len(t, update.Words, 1)
		assert.Equal(t, "shared", update.Words[0].Text)
	}
}

func TestWebSocket_UnknownTopicRejected(t *testing.T) {
	ts := newTestServer(t)

	server := httptest.NewServer(ts.srv.echo)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/missing"
	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocket_InvalidTopicRejected(t *testing.T) {
	ts := newTestServer(t)

	server := httptest.NewServer(ts.srv.echo)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/Bad9Topic"
	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocket_DisconnectLeavesRoom(t *testing.T) {
	ts := newTestServer(t)
	doRequest(ts, http.MethodPost, "/api/topics", `{"topic":"gophers","client_id":"alice"}`)

	server := httptest.NewServer(ts.srv.echo)
	defer server.Close()

	conn := dialTopic(t, server, "gophers")
	readUpdate(t, conn)
	waitForMembers(t, ts, "gophers", 1)

	conn.Close()
	waitForMembers(t, ts, "gophers", 0)

	require.Eventually(t, func() bool {
		return ts.mux.RoomCount() == 0
	}, 2*time.Second, time.Millisecond)
}

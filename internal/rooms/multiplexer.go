package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/Shyamsaitejamandibi/votii/internal/metrics"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	commandTimeout   = 5 * time.Second
	subscribeTimeout = 10 * time.Second
	stopTimeout      = 10 * time.Second
)

// Update is one delta batch delivered to a viewer connection.
type Update struct {
	Topic string
	Words []domain.WordCount
}

// Outbound is a connection's non-blocking outbound path. Send must never
// block; implementations queue with a bounded buffer and drop the oldest
// entry on overflow.
type Outbound interface {
	Send(u Update)
}

// --- Command types ---

type muxCmd interface{ isMuxCmd() }

type baseMuxCmd struct{}

func (baseMuxCmd) isMuxCmd() {}

type registerCmd struct {
	baseMuxCmd
	id           uuid.UUID
	out          Outbound
	errorChannel chan error
}

type joinCmd struct {
	baseMuxCmd
	id           uuid.UUID
	topic        string
	errorChannel chan error
}

type leaveCmd struct {
	baseMuxCmd
	id          uuid.UUID
	topic       string
	doneChannel chan struct{}
}

type leaveAllCmd struct {
	baseMuxCmd
	id          uuid.UUID
	doneChannel chan struct{}
}

type subscribeResultCmd struct {
	baseMuxCmd
	topic string
	sub   domain.Subscription
	err   error
}

type deliverCmd struct {
	baseMuxCmd
	topic string
	words []domain.WordCount
}

type memberCountCmd struct {
	baseMuxCmd
	topic        string
	replyChannel chan int
}

type roomCountCmd struct {
	baseMuxCmd
	replyChannel chan int
}

type topicsCmd struct {
	baseMuxCmd
	id           uuid.UUID
	replyChannel chan []string
}

type stopCmd struct {
	baseMuxCmd
}

// --- State ---

type connState struct {
	out    Outbound
	topics map[string]struct{}
}

// room tracks one topic's local members and upstream subscription. While a
// subscribe is in flight, joins queue in pending and are settled when the
// result arrives; membership and sub are only touched from the actor.
type room struct {
	topic       string
	members     map[uuid.UUID]struct{}
	sub         domain.Subscription
	subscribing bool
	pending     []joinCmd
}

func (r *room) removePending(id uuid.UUID, result error) bool {
	for i, j := range r.pending {
		if j.id == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			j.errorChannel <- result
			return true
		}
	}
	return false
}

// Multiplexer owns the room table and connection registry. All mutation goes
// through its actor goroutine.
type Multiplexer struct {
	cmdCh           chan muxCmd
	clock           clockwork.Clock
	broker          domain.Broker
	conns           map[uuid.UUID]*connState
	rooms           map[string]*room
	maxConnsPerRoom int
	quit            chan struct{}
	done            chan struct{}
}

// New creates a multiplexer driving the given broker and starts its actor.
func New(broker domain.Broker, clock clockwork.Clock, maxConnsPerRoom int) *Multiplexer {
	m := &Multiplexer{
		cmdCh:           make(chan muxCmd, 256),
		clock:           clock,
		broker:          broker,
		conns:           make(map[uuid.UUID]*connState),
		rooms:           make(map[string]*room),
		maxConnsPerRoom: maxConnsPerRoom,
		quit:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	go m.run()
	return m
}

// --- Public API ---

// Register adds a connection to the registry. Must be called before Join.
func (m *Multiplexer) Register(id uuid.UUID, out Outbound) error {
	errCh := make(chan error, 1)
	if err := m.send(registerCmd{id: id, out: out, errorChannel: errCh}); err != nil {
		return err
	}
	return m.awaitError(errCh, "register")
}

// Join makes the connection a member of the topic's room. Idempotent. If the
// room is new, Join blocks until the upstream subscribe has settled, so no
// update published after a successful Join can be missed.
func (m *Multiplexer) Join(id uuid.UUID, topic string) error {
	errCh := make(chan error, 1)
	if err := m.send(joinCmd{id: id, topic: topic, errorChannel: errCh}); err != nil {
		return err
	}
	return m.awaitError(errCh, "join")
}

// Leave removes the connection from the topic's room. Idempotent; a no-op if
// the connection is not a member.
func (m *Multiplexer) Leave(id uuid.UUID, topic string) {
	doneCh := make(chan struct{})
	if err := m.send(leaveCmd{id: id, topic: topic, doneChannel: doneCh}); err != nil {
		return
	}
	m.awaitDone(doneCh, "leave")
}

// LeaveAll removes the connection from every room it joined and discards its
// registry entry. Called exactly once on connection teardown; safe to call
// for a connection that never joined anything.
func (m *Multiplexer) LeaveAll(id uuid.UUID) {
	doneCh := make(chan struct{})
	if err := m.send(leaveAllCmd{id: id, doneChannel: doneCh}); err != nil {
		return
	}
	m.awaitDone(doneCh, "leave_all")
}

// MemberCount returns the number of members in a topic's room, or 0 if the
// room does not exist. Returns -1 on timeout.
func (m *Multiplexer) MemberCount(topic string) int {
	replyCh := make(chan int, 1)
	if err := m.send(memberCountCmd{topic: topic, replyChannel: replyCh}); err != nil {
		return -1
	}
	return m.awaitInt(replyCh)
}

// RoomCount returns the number of rooms currently in the table. Returns -1 on
// timeout.
func (m *Multiplexer) RoomCount() int {
	replyCh := make(chan int, 1)
	if err := m.send(roomCountCmd{replyChannel: replyCh}); err != nil {
		return -1
	}
	return m.awaitInt(replyCh)
}

// Topics returns the topics a connection has joined.
func (m *Multiplexer) Topics(id uuid.UUID) []string {
	replyCh := make(chan []string, 1)
	if err := m.send(topicsCmd{id: id, replyChannel: replyCh}); err != nil {
		return nil
	}
	timer := m.clock.NewTimer(commandTimeout)
	defer timer.Stop()
	select {
	case topics := <-replyCh:
		return topics
	case <-timer.Chan():
		return nil
	}
}

// Stop shuts down the multiplexer, closing all upstream subscriptions.
func (m *Multiplexer) Stop() {
	select {
	case m.cmdCh <- stopCmd{}:
	case <-m.done:
		return
	}

	timer := m.clock.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case <-m.done:
		slog.Info("Multiplexer stopped")
	case <-timer.Chan():
		slog.Warn("Multiplexer stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (m *Multiplexer) send(cmd muxCmd) error {
	select {
	case m.cmdCh <- cmd:
		return nil
	case <-m.done:
		return fmt.Errorf("multiplexer stopped")
	}
}

func (m *Multiplexer) awaitError(errCh chan error, op string) error {
	timer := m.clock.NewTimer(commandTimeout)
	defer timer.Stop()
	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("%s command timed out after %v", op, commandTimeout)
	}
}

func (m *Multiplexer) awaitDone(doneCh chan struct{}, op string) {
	timer := m.clock.NewTimer(commandTimeout)
	defer timer.Stop()
	select {
	case <-doneCh:
	case <-timer.Chan():
		slog.Warn("Multiplexer command timed out", "op", op, "timeout", commandTimeout)
	}
}

func (m *Multiplexer) awaitInt(replyCh chan int) int {
	timer := m.clock.NewTimer(commandTimeout)
	defer timer.Stop()
	select {
	case n := <-replyCh:
		return n
	case <-timer.Chan():
		return -1
	}
}

// --- Actor ---

func (m *Multiplexer) run() {
	defer close(m.done)
	for cmd := range m.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			m.handleRegister(c)
		case joinCmd:
			m.handleJoin(c)
		case leaveCmd:
			m.handleLeave(c)
		case leaveAllCmd:
			m.handleLeaveAll(c)
		case subscribeResultCmd:
			m.handleSubscribeResult(c)
		case deliverCmd:
			m.handleDeliver(c)
		case memberCountCmd:
			if r, ok := m.rooms[c.topic]; ok {
				c.replyChannel <- len(r.members)
			} else {
				c.replyChannel <- 0
			}
		case roomCountCmd:
			c.replyChannel <- len(m.rooms)
		case topicsCmd:
			m.handleTopics(c)
		case stopCmd:
			m.handleStop()
			return
		default:
			slog.Warn("Multiplexer received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (m *Multiplexer) handleRegister(c registerCmd) {
	if _, exists := m.conns[c.id]; exists {
		c.errorChannel <- fmt.Errorf("connection %s already registered", c.id)
		return
	}
	m.conns[c.id] = &connState{out: c.out, topics: make(map[string]struct{})}
	metrics.ConnectionsActive.Set(float64(len(m.conns)))
	slog.Debug("Connection registered", "connection_id", c.id.String())
	c.errorChannel <- nil
}

func (m *Multiplexer) handleJoin(c joinCmd) {
	conn, ok := m.conns[c.id]
	if !ok {
		c.errorChannel <- domain.ErrConnectionClosed
		return
	}
	if err := domain.ValidateTopic(c.topic); err != nil {
		c.errorChannel <- err
		return
	}
	if _, joined := conn.topics[c.topic]; joined {
		// Already a member: no subscribe churn, no duplicate delivery.
		c.errorChannel <- nil
		return
	}

	r, exists := m.rooms[c.topic]
	if !exists {
		// First interested connection: the join settles once the upstream
		// subscribe has.
		r = &room{
			topic:       c.topic,
			members:     make(map[uuid.UUID]struct{}),
			subscribing: true,
			pending:     []joinCmd{c},
		}
		m.rooms[c.topic] = r
		metrics.RoomsActive.Set(float64(len(m.rooms)))
		m.startSubscribe(c.topic)
		return
	}

	if r.subscribing {
		for _, p := range r.pending {
			if p.id == c.id {
				c.errorChannel <- nil
				return
			}
		}
		if len(r.members)+len(r.pending) >= m.maxConnsPerRoom {
			c.errorChannel <- domain.ErrRoomFull
			return
		}
		r.pending = append(r.pending, c)
		return
	}

	if len(r.members) >= m.maxConnsPerRoom {
		c.errorChannel <- domain.ErrRoomFull
		return
	}

	r.members[c.id] = struct{}{}
	conn.topics[c.topic] = struct{}{}

	if r.sub == nil {
		// An earlier subscribe failed; fresh interest retries it. The join
		// itself completes locally per the upstream-unavailable policy.
		r.subscribing = true
		m.startSubscribe(c.topic)
	}
	c.errorChannel <- nil
}

func (m *Multiplexer) handleSubscribeResult(c subscribeResultCmd) {
	r, ok := m.rooms[c.topic]
	if !ok {
		// The room entry outlives any in-flight subscribe, so this only
		// happens after Stop. Release the subscription if one was opened.
		if c.err == nil && c.sub != nil {
			m.closeSubscription(c.topic, c.sub)
		}
		return
	}

	r.subscribing = false
	pending := r.pending
	r.pending = nil

	for _, j := range pending {
		conn, registered := m.conns[j.id]
		if !registered {
			j.errorChannel <- domain.ErrConnectionClosed
			continue
		}
		if len(r.members) >= m.maxConnsPerRoom {
			j.errorChannel <- domain.ErrRoomFull
			continue
		}
		r.members[j.id] = struct{}{}
		conn.topics[j.topic] = struct{}{}
		j.errorChannel <- nil
	}

	if c.err != nil {
		metrics.SubscribesTotal.WithLabelValues("error").Inc()
		slog.Warn("Upstream subscribe failed, will retry on next join",
			"topic", c.topic, "error", c.err)
		if len(r.members) == 0 {
			delete(m.rooms, c.topic)
			metrics.RoomsActive.Set(float64(len(m.rooms)))
		}
		return
	}
	metrics.SubscribesTotal.WithLabelValues("success").Inc()

	if len(r.members) == 0 {
		// Everyone left while the subscribe was in flight. The subscribe was
		// still awaited to completion, so the unsubscribe cannot overtake it.
		delete(m.rooms, c.topic)
		metrics.RoomsActive.Set(float64(len(m.rooms)))
		m.closeSubscription(c.topic, c.sub)
		return
	}

	r.sub = c.sub
	metrics.UpstreamSubscriptions.Inc()
	slog.Info("Subscribed to topic", "topic", c.topic, "members", len(r.members))
	go m.pump(c.topic, c.sub)
}

func (m *Multiplexer) handleLeave(c leaveCmd) {
	defer close(c.doneChannel)

	conn, ok := m.conns[c.id]
	if !ok {
		return
	}

	if _, joined := conn.topics[c.topic]; !joined {
		// Not a member, but a join may still be pending for this topic.
		if r := m.rooms[c.topic]; r != nil && r.subscribing {
			r.removePending(c.id, nil)
		}
		return
	}

	r := m.rooms[c.topic]
	if r == nil {
		panic(fmt.Sprintf("rooms: connection %s joined to %q but room missing", c.id, c.topic))
	}
	if _, member := r.members[c.id]; !member {
		panic(fmt.Sprintf("rooms: membership out of sync for connection %s topic %q", c.id, c.topic))
	}

	delete(conn.topics, c.topic)
	delete(r.members, c.id)
	m.destroyRoomIfEmpty(r)
}

func (m *Multiplexer) handleLeaveAll(c leaveAllCmd) {
	defer close(c.doneChannel)

	conn, ok := m.conns[c.id]
	if !ok {
		return
	}
	delete(m.conns, c.id)
	metrics.ConnectionsActive.Set(float64(len(m.conns)))

	for topic := range conn.topics {
		r := m.rooms[topic]
		if r == nil {
			panic(fmt.Sprintf("rooms: connection %s joined to %q but room missing", c.id, topic))
		}
		delete(r.members, c.id)
		m.destroyRoomIfEmpty(r)
	}

	// Settle any joins still waiting on an in-flight subscribe.
	for _, r := range m.rooms {
		if r.subscribing {
			r.removePending(c.id, domain.ErrConnectionClosed)
		}
	}

	slog.Debug("Connection left all rooms", "connection_id", c.id.String())
}

// destroyRoomIfEmpty tears the room down when its last member leaves. A room
// with a subscribe still in flight stays in the table until the result
// arrives; handleSubscribeResult finishes the teardown then.
func (m *Multiplexer) destroyRoomIfEmpty(r *room) {
	if len(r.members) > 0 || r.subscribing {
		return
	}
	delete(m.rooms, r.topic)
	metrics.RoomsActive.Set(float64(len(m.rooms)))
	if r.sub != nil {
		metrics.UpstreamSubscriptions.Dec()
		m.closeSubscription(r.topic, r.sub)
		r.sub = nil
	}
	slog.Info("Room destroyed", "topic", r.topic)
}

func (m *Multiplexer) handleDeliver(c deliverCmd) {
	metrics.BatchesReceived.Inc()

	r, ok := m.rooms[c.topic]
	if !ok {
		// Last member left while the batch was in flight.
		return
	}

	u := Update{Topic: c.topic, Words: c.words}
	for id := range r.members {
		conn, ok := m.conns[id]
		if !ok {
			panic(fmt.Sprintf("rooms: member %s of %q not in registry", id, c.topic))
		}
		conn.out.Send(u)
		metrics.DeliveriesTotal.Inc()
	}
}

func (m *Multiplexer) handleTopics(c topicsCmd) {
	conn, ok := m.conns[c.id]
	if !ok {
		c.replyChannel <- nil
		return
	}
	topics := make([]string, 0, len(conn.topics))
	for topic := range conn.topics {
		topics = append(topics, topic)
	}
	c.replyChannel <- topics
}

func (m *Multiplexer) handleStop() {
	close(m.quit)

	for _, r := range m.rooms {
		for _, j := range r.pending {
			j.errorChannel <- fmt.Errorf("multiplexer stopped")
		}
		r.pending = nil
		if r.sub != nil {
			metrics.UpstreamSubscriptions.Dec()
			m.closeSubscription(r.topic, r.sub)
		}
	}
	m.rooms = make(map[string]*room)
	m.conns = make(map[uuid.UUID]*connState)
	metrics.RoomsActive.Set(0)
	metrics.ConnectionsActive.Set(0)
}

// startSubscribe opens the topic's broadcast channel off the actor goroutine
// and feeds the result back in as a command.
func (m *Multiplexer) startSubscribe(topic string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		defer cancel()

		sub, err := m.broker.Subscribe(ctx, topic)
		select {
		case m.cmdCh <- subscribeResultCmd{topic: topic, sub: sub, err: err}:
		case <-m.quit:
			if err == nil && sub != nil {
				_ = sub.Close()
			}
		}
	}()
}

// closeSubscription releases an upstream subscription best-effort. The room
// entry is already gone by the time this runs, so a failure only costs a
// retried subscribe on the topic's next join.
func (m *Multiplexer) closeSubscription(topic string, sub domain.Subscription) {
	go func() {
		if err := sub.Close(); err != nil {
			metrics.UnsubscribesTotal.WithLabelValues("error").Inc()
			slog.Warn("Upstream unsubscribe failed", "topic", topic, "error", err)
			return
		}
		metrics.UnsubscribesTotal.WithLabelValues("success").Inc()
		slog.Info("Unsubscribed from topic", "topic", topic)
	}()
}

// pump forwards one subscription's event stream into the actor. One pump per
// active subscription keeps per-topic delivery in publish order.
func (m *Multiplexer) pump(topic string, sub domain.Subscription) {
	for words := range sub.Events() {
		select {
		case m.cmdCh <- deliverCmd{topic: topic, words: words}:
		case <-m.quit:
			return
		}
	}
}

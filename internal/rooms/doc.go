// Package rooms multiplexes many viewer connections onto a shared set of
// broadcast subscriptions. A room exists per topic with at least one
// interested connection; the upstream subscription is opened when the first
// member joins and torn down when the last member leaves. All bookkeeping is
// serialized through a single actor goroutine, so the 0->1 and 1->0
// reference-count transitions for a topic can never race.
package rooms

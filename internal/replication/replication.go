// Package replication implements the mesh's replication transport external
// contract: best-effort, at-least-once delivery of CRDT
// deltas for the capability graph, revocation frontier, and usage counters.
// A transport never blocks a writer on delivery and never guarantees
// ordering across zones; CRDT merge (pkg/crdt) absorbs duplicate or
// reordered delivery.
package replication

import "context"

// Delta is one opaque CRDT update destined for every other node replicating
// Zone. Payload is the sending node's canonical encoding of the update
// (e.g. an LWW-map Set, an OR-set tag add); this package never interprets
// it — only pkg/crdt does, on the receiving side.
type Delta struct {
	Zone      string
	Kind      string // e.g. "capability_graph", "revocation_head", "usage_counter"
	Key       string
	Payload   []byte
	Actor     string
	Timestamp uint64
}

// Transport broadcasts and receives CRDT deltas across mesh nodes.
// Implementations provide best-effort, at-least-once delivery: a delivered
// Delta MUST eventually reach every other live node subscribed to Zone, but
// may be delivered more than once or out of order.
type Transport interface {
	// Publish broadcasts d to every other node subscribed to d.Zone.
	// Publish does not block on acknowledgement from any receiver.
	Publish(ctx context.Context, d Delta) error

	// Subscribe delivers deltas for zone to handler until ctx is cancelled.
	// A Delta is considered delivered, and MUST NOT be redelivered by this
	// call, only once handler returns a nil error; a non-nil error leaves
	// it eligible for redelivery, preserving at-least-once semantics.
	Subscribe(ctx context.Context, zone string, handler func(Delta) error) error
}

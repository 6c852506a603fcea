package consensus

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MaxExternalizedHistory bounds how many past slots Node keeps fully
// materialized; older ones are evicted from history (but the node's
// progress past them is never revisited).
const MaxExternalizedHistory = 10

// SeenMessageCacheSize bounds the sender-agnostic message dedup cache. Node
// only ever Adds a digest once and Contains-checks it afterward, so the
// underlying LRU's recency bookkeeping is never triggered by a repeat visit;
// in practice this makes it behave as a plain insertion-ordered (FIFO)
// dedup window rather than a true recency-based cache.
const SeenMessageCacheSize = 1000

// ExternalizedSlot is one completed slot kept in Node's bounded history.
type ExternalizedSlot[V Value] struct {
	Index  SlotIndex
	Values []V
}

// Node drives one participant's slots forward as messages arrive, handling
// slot advancement, message dedup, and bounded history -- the parts of the
// protocol original_source's node.rs keeps outside of Slot itself.
type Node[V Value] struct {
	id NodeID
	q  QuorumSet

	validate ValidityFn[V]
	combine  CombineFn[V]
	sink     MetricsSink

	// RejectIncompatibleExternalize governs a path the original source left
	// commented out: whether to refuse to process further messages from a
	// peer once that peer has externalized a value incompatible with our
	// own externalized value for the same slot. Default false preserves the
	// original's (disabled) behavior; set true to enable the stricter
	// check. See DESIGN.md for the discussion this resolves.
	RejectIncompatibleExternalize bool

	current SlotIndex
	slot    *Slot[V]

	history []ExternalizedSlot[V]

	seen *lru.Cache[Digest, struct{}]
}

// NewNode constructs a Node starting at slot 1, matching the teacher's
// convention (ilya-coinkit/currency.TransactionQueue starts its slot
// counter at 1, not 0).
func NewNode[V Value](id NodeID, q QuorumSet, validate ValidityFn[V], combine CombineFn[V], sink MetricsSink) (*Node[V], error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	seen, err := lru.New[Digest, struct{}](SeenMessageCacheSize)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = noopSink{}
	}
	n := &Node[V]{
		id:       id,
		q:        q,
		validate: validate,
		combine:  combine,
		sink:     sink,
		current:  1,
		seen:     seen,
	}
	n.slot = NewSlot[V](id, q, n.current, validate, combine, sink)
	return n, nil
}

func (n *Node[V]) ID() NodeID           { return n.id }
func (n *Node[V]) QuorumSet() QuorumSet { return n.q }
func (n *Node[V]) CurrentSlot() SlotIndex { return n.current }

// Nominate proposes values for the current slot, filtering out empty or
// invalid ones before handing them to the slot's nomination vote set.
func (n *Node[V]) Nominate(values []V) {
	if len(values) == 0 {
		return
	}
	n.slot.ProposeValues(values)
	n.externalizeIfDone()
}

// Handle processes a message addressed to this node's current (or a
// recent/future, within reason) slot. It rejects self-sent messages,
// dedups by digest, and routes stale-slot messages into history lookups
// rather than the live slot.
func (n *Node[V]) Handle(m *Msg[V]) error {
	if m.SenderID == n.id {
		return ErrSelfMessage
	}
	digest := DigestMsg(m)
	if _, ok := n.seen.Get(digest); ok {
		return nil
	}
	n.seen.Add(digest, struct{}{})

	if n.RejectIncompatibleExternalize {
		if ext, ok := n.findHistory(m.Slot); ok {
			if extTopic, isExt := m.Topic.(ExternalizeTopic[V]); isExt {
				if !equalValueLists(extTopic.C.X, ext.Values) {
					return fmt.Errorf("consensus: peer %s externalized a value incompatible with our slot %d", m.SenderID, m.Slot)
				}
			}
		}
	}

	if m.Slot < n.current {
		// Message is about a slot we've already finalized; nothing further
		// to do with it, but it is not an error (a straggling resend).
		return nil
	}
	if m.Slot > n.current {
		return ErrFutureSlot
	}

	if err := n.slot.Handle(m); err != nil {
		return err
	}
	n.externalizeIfDone()
	return nil
}

func (n *Node[V]) externalizeIfDone() {
	values, ok := n.slot.Externalized()
	if !ok {
		return
	}
	for _, v := range values {
		if err := n.validate(v); err != nil {
			// A confirmed-committed value that fails our own validity
			// function indicates either a bug in validate or a quorum
			// failure upstream; either way we must not silently accept it.
			return
		}
	}
	n.pushHistory(ExternalizedSlot[V]{Index: n.current, Values: values})
	n.sink.Observe(n.slot.Metrics())
	n.current++
	n.slot = NewSlot[V](n.id, n.q, n.current, n.validate, n.combine, n.sink)
}

func (n *Node[V]) pushHistory(es ExternalizedSlot[V]) {
	n.history = append(n.history, es)
	if len(n.history) > MaxExternalizedHistory {
		n.history = n.history[len(n.history)-MaxExternalizedHistory:]
	}
}

func (n *Node[V]) findHistory(idx SlotIndex) (ExternalizedSlot[V], bool) {
	for _, es := range n.history {
		if es.Index == idx {
			return es, true
		}
	}
	return ExternalizedSlot[V]{}, false
}

// History returns the bounded window of recently externalized slots, oldest
// first.
func (n *Node[V]) History() []ExternalizedSlot[V] {
	out := make([]ExternalizedSlot[V], len(n.history))
	copy(out, n.history)
	return out
}

// OutgoingMessage returns this node's current statement for its live slot,
// or nil if it has nothing to say yet.
func (n *Node[V]) OutgoingMessage() *Msg[V] {
	m := n.slot.Message()
	if m != nil {
		n.sink.MessageSent(m.Phase())
	}
	return m
}

// CatchUpMessage returns the hybrid nomination+ballot statement used to
// bring a lagging peer's nomination view up to date without waiting for a
// fresh round.
func (n *Node[V]) CatchUpMessage() *Msg[V] {
	return n.slot.CatchUpMessage()
}

// HandleTimeout forwards a liveness timeout to the live slot.
func (n *Node[V]) HandleTimeout() {
	n.slot.HandleTimeout()
}

// Metrics snapshots the live slot's state.
func (n *Node[V]) Metrics() SlotMetrics {
	return n.slot.Metrics()
}

// ResetSlotIndex discards the live slot's in-progress state and starts a
// fresh one at index, used by tests and by recovery paths that need to force
// a node back onto a particular slot (e.g. after restoring from a snapshot).
// It does not touch history.
func (n *Node[V]) ResetSlotIndex(index SlotIndex) {
	n.current = index
	n.slot = NewSlot[V](n.id, n.q, index, n.validate, n.combine, n.sink)
}

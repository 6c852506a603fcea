package scptest

import (
	"fmt"

	"github.com/rjwalters/fbascp/consensus"
)

// Network is an in-memory cluster of Nodes wired to each other's quorum
// sets, used the way silberman-coinkit/network/node_test.go's
// sendNodeToNodeMessages + nodeFuzzTest helpers drive multi-node rounds: no
// real transport, just direct Handle calls routed through a codec round trip
// so bugs that only manifest after serialization still surface.
type Network struct {
	Nodes map[consensus.NodeID]*consensus.Node[Value]
	codec consensus.JSONCodec[Value]
}

// NewNetwork constructs one Node per entry in quorums, all sharing the same
// validity/combine functions and the default no-op metrics sink.
func NewNetwork(quorums map[consensus.NodeID]consensus.QuorumSet) (*Network, error) {
	return NewNetworkWithSinks(quorums, nil)
}

// NewNetworkWithSinks is NewNetwork with an optional per-node MetricsSink,
// used by cmd/fedvoted to route each node's metrics into its own
// prometheus collector instead of the default no-op sink. A nil sinks map,
// or a missing entry within it, falls back to Node's own default.
func NewNetworkWithSinks(quorums map[consensus.NodeID]consensus.QuorumSet, sinks map[consensus.NodeID]consensus.MetricsSink) (*Network, error) {
	nodes := make(map[consensus.NodeID]*consensus.Node[Value], len(quorums))
	for id, qs := range quorums {
		n, err := consensus.NewNode[Value](id, qs, TrivialValidity, TrivialCombine, sinks[id])
		if err != nil {
			return nil, fmt.Errorf("scptest: building node %s: %w", id, err)
		}
		nodes[id] = n
	}
	return &Network{
		Nodes: nodes,
		codec: consensus.JSONCodec[Value]{NewValue: func() Value { return Value(0) }},
	}, nil
}

// Broadcast delivers every node's current outgoing message to every other
// node, round-tripping each through the JSON codec the way a real transport
// would serialize it. It returns the number of messages actually delivered
// (a zero return means the network has gone quiet, a useful convergence
// signal for RunUntilConverged).
func (net *Network) Broadcast() (int, error) {
	type outgoing struct {
		from consensus.NodeID
		msg  *consensus.Msg[Value]
	}
	var pending []outgoing
	for id, n := range net.Nodes {
		if m := n.OutgoingMessage(); m != nil {
			pending = append(pending, outgoing{from: id, msg: m})
		}
	}

	delivered := 0
	for _, o := range pending {
		wire, err := consensus.EncodeThenDecode[Value](net.codec, o.msg)
		if err != nil {
			return delivered, fmt.Errorf("scptest: round-tripping message from %s: %w", o.from, err)
		}
		for id, n := range net.Nodes {
			if id == o.from {
				continue
			}
			if err := n.Handle(wire); err != nil && err != consensus.ErrSelfMessage {
				return delivered, fmt.Errorf("scptest: %s handling message from %s: %w", id, o.from, err)
			}
			delivered++
		}
	}
	return delivered, nil
}

// RunUntilConverged broadcasts repeatedly until every node has externalized
// at least one slot, or maxRounds is exhausted without convergence (in
// which case it returns false, matching silberman-coinkit's node_test.go
// convention of failing the test with t.Fatal on a non-converging cluster
// rather than looping forever).
func (net *Network) RunUntilConverged(maxRounds int) bool {
	for round := 0; round < maxRounds; round++ {
		if net.allExternalizedOnce() {
			return true
		}
		if _, err := net.Broadcast(); err != nil {
			return false
		}
	}
	return net.allExternalizedOnce()
}

func (net *Network) allExternalizedOnce() bool {
	for _, n := range net.Nodes {
		if len(n.History()) == 0 {
			return false
		}
	}
	return true
}

// ExternalizedValues returns, per node, the value list of its first
// externalized slot, useful for asserting every node converged on the same
// value.
func (net *Network) ExternalizedValues() map[consensus.NodeID][]Value {
	out := make(map[consensus.NodeID][]Value, len(net.Nodes))
	for id, n := range net.Nodes {
		hist := n.History()
		if len(hist) > 0 {
			out[id] = hist[0].Values
		}
	}
	return out
}

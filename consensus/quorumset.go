package consensus

import (
	"fmt"
	"strings"
)

// NodeID identifies a participant. Node identity and message authenticity
// are handled above this package (see package identity); the engine treats
// NodeID as an opaque, comparable, totally ordered label.
type NodeID string

// QuorumSetMember is either a direct node reference or a nested QuorumSet.
// Exactly one of Node / Inner is meaningful; IsNode reports which.
type QuorumSetMember struct {
	Node  NodeID
	Inner *QuorumSet
}

func NodeMember(id NodeID) QuorumSetMember {
	return QuorumSetMember{Node: id}
}

func InnerMember(qs QuorumSet) QuorumSetMember {
	return QuorumSetMember{Inner: &qs}
}

func (m QuorumSetMember) IsNode() bool {
	return m.Inner == nil
}

// QuorumSet is a recursive threshold structure: a slice is satisfied when at
// least Threshold of its Members are satisfied, where a node member is
// satisfied by the presence of (an accepted vote from) that node, and an
// inner-set member is satisfied when that nested QuorumSet is itself
// satisfied, recursively.
type QuorumSet struct {
	Threshold uint32
	Members   []QuorumSetMember
}

// Validate checks structural well-formedness: threshold must be reachable
// (1 <= Threshold <= len(Members)), and every nested inner set must itself be
// valid. An empty member list with Threshold 0 is allowed and denotes a
// vacuously-satisfied set (used by tests and by NewEmptyQuorumSet).
func (qs QuorumSet) Validate() error {
	if len(qs.Members) == 0 {
		if qs.Threshold != 0 {
			return fmt.Errorf("consensus: empty quorum set must have threshold 0, got %d", qs.Threshold)
		}
		return nil
	}
	if qs.Threshold == 0 || int(qs.Threshold) > len(qs.Members) {
		return fmt.Errorf("consensus: threshold %d out of range for %d members", qs.Threshold, len(qs.Members))
	}
	seen := make(map[NodeID]bool)
	for _, m := range qs.Members {
		if m.IsNode() {
			if seen[m.Node] {
				return fmt.Errorf("consensus: duplicate node %q in quorum set", m.Node)
			}
			seen[m.Node] = true
			continue
		}
		if err := m.Inner.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NodeIDs flattens every node reference appearing anywhere in the recursive
// structure, in declaration order, without deduplication removed (duplicates
// across nesting levels are legitimate: the same peer can appear in more than
// one inner set).
func (qs QuorumSet) NodeIDs() []NodeID {
	var ids []NodeID
	for _, m := range qs.Members {
		if m.IsNode() {
			ids = append(ids, m.Node)
		} else {
			ids = append(ids, m.Inner.NodeIDs()...)
		}
	}
	return ids
}

func (qs QuorumSet) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "([%d]", qs.Threshold)
	for _, m := range qs.Members {
		b.WriteByte(',')
		if m.IsNode() {
			b.WriteString(string(m.Node))
		} else {
			b.WriteString(m.Inner.String())
		}
	}
	b.WriteByte(')')
	return b.String()
}

package consensus

// FindQuorum searches for a quorum containing localID such that every
// member's latest message (as recorded in msgs) satisfies pred, narrowing
// pred along the way. It walks the quorum-set tree in declaration order,
// taking the first `threshold` satisfying members at each level rather than
// searching for a maximal quorum: this makes the search deterministic and
// cheap, at the cost of occasionally missing a quorum that a different
// choice of members would have revealed. That tradeoff matches the
// traversal rule in §4.1 ("members visited in declaration order; result is
// the first satisfying set encountered").
//
// localQ is localID's own quorum set. msgs must contain, for every NodeID
// the search might need to recurse through, that node's latest message (its
// Msg.SenderQ supplies the node's own quorum set for the recursive check).
// If no quorum is found, FindQuorum returns ({localID}, pred) unchanged, per
// the convention that the local node alone is never itself a quorum.
func FindQuorum[V Value, R any](
	localID NodeID,
	localQ QuorumSet,
	msgs map[NodeID]*Msg[V],
	pred Predicate[V, R],
) (map[NodeID]bool, Predicate[V, R]) {
	nodeSet := map[NodeID]bool{localID: true}
	curPred := pred
	frontier := []NodeID{localID}

	for len(frontier) > 0 {
		n := frontier[0]
		frontier = frontier[1:]

		qs := localQ
		if n != localID {
			msg, ok := msgs[n]
			if !ok {
				return map[NodeID]bool{localID: true}, pred
			}
			qs = msg.SenderQ
		}

		ok, newMembers, nextPred := traverseForQuorum(qs, msgs, curPred, nodeSet, localID)
		if !ok {
			return map[NodeID]bool{localID: true}, pred
		}
		curPred = nextPred
		for m := range newMembers {
			if !nodeSet[m] {
				nodeSet[m] = true
				frontier = append(frontier, m)
			}
		}
	}
	return nodeSet, curPred
}

// traverseForQuorum walks qs.Members in order, accumulating satisfied
// members until Threshold is reached (short-circuiting, matching the
// "first satisfying set" rule), or returns ok=false if the full member list
// cannot reach Threshold.
func traverseForQuorum[V Value, R any](
	qs QuorumSet,
	msgs map[NodeID]*Msg[V],
	pred Predicate[V, R],
	nodeSet map[NodeID]bool,
	localID NodeID,
) (ok bool, newMembers map[NodeID]bool, next Predicate[V, R]) {
	newMembers = make(map[NodeID]bool)
	satisfied := uint32(0)
	cur := pred

	for _, m := range qs.Members {
		if satisfied >= qs.Threshold {
			break
		}
		if m.IsNode() {
			switch {
			case m.Node == localID || nodeSet[m.Node]:
				satisfied++
			default:
				msg, exists := msgs[m.Node]
				if !exists {
					continue
				}
				narrowed, testOK := cur.Test(msg)
				if !testOK {
					continue
				}
				cur = narrowed
				satisfied++
				newMembers[m.Node] = true
			}
			continue
		}
		innerOK, innerMembers, innerPred := traverseForQuorum(*m.Inner, msgs, cur, nodeSet, localID)
		if innerOK {
			cur = innerPred
			satisfied++
			for id := range innerMembers {
				newMembers[id] = true
			}
		}
	}
	return satisfied >= qs.Threshold, newMembers, cur
}

// FindBlockingSet searches localQ (the local node's own quorum set, no
// fixpoint across peers' quorum sets required: v-blocking is purely a
// property of the local tree) for a v-blocking set: a set of nodes whose
// messages, if removed from consideration, make it impossible for localQ's
// threshold to be met at some level of the recursive structure.
//
// At each level with `n` members and threshold `t`, a set of size greater
// than n-t suffices to block that level (the remaining n-|B| members can no
// longer reach t even if all of them are satisfiable). An inner set counts
// as a single blocked "slot" toward its parent's n-t bound once it is itself
// blocked, recursively.
func FindBlockingSet[V Value, R any](
	localQ QuorumSet,
	msgs map[NodeID]*Msg[V],
	pred Predicate[V, R],
) (map[NodeID]bool, Predicate[V, R]) {
	ok, members, next := traverseForBlocking(localQ, msgs, pred)
	if !ok {
		return map[NodeID]bool{}, pred
	}
	return members, next
}

func traverseForBlocking[V Value, R any](
	qs QuorumSet,
	msgs map[NodeID]*Msg[V],
	pred Predicate[V, R],
) (ok bool, members map[NodeID]bool, next Predicate[V, R]) {
	members = make(map[NodeID]bool)
	if len(qs.Members) == 0 {
		return false, members, pred
	}
	needed := uint32(len(qs.Members)) - qs.Threshold + 1
	blocked := uint32(0)
	cur := pred

	for _, m := range qs.Members {
		if blocked >= needed {
			break
		}
		if m.IsNode() {
			msg, exists := msgs[m.Node]
			if !exists {
				continue
			}
			narrowed, testOK := cur.Test(msg)
			if !testOK {
				continue
			}
			cur = narrowed
			blocked++
			members[m.Node] = true
			continue
		}
		innerOK, innerMembers, innerPred := traverseForBlocking(*m.Inner, msgs, cur)
		if innerOK {
			cur = innerPred
			blocked++
			for id := range innerMembers {
				members[id] = true
			}
		}
	}
	return blocked >= needed, members, cur
}

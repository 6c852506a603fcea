package consensus

import "testing"

// testBallotValue is a trivial Value used only within this package's tests.
type testBallotValue int

func (v testBallotValue) Less(other Value) bool  { return v < other.(testBallotValue) }
func (v testBallotValue) Equal(other Value) bool { o, ok := other.(testBallotValue); return ok && v == o }
func (v testBallotValue) Bytes() []byte          { return []byte{byte(v)} }

func ballot1() Ballot[testBallotValue] { return Ballot[testBallotValue]{N: 1, X: []testBallotValue{1}} }
func ballot2() Ballot[testBallotValue] { return Ballot[testBallotValue]{N: 2, X: []testBallotValue{2}} }
func ballot3() Ballot[testBallotValue] { return Ballot[testBallotValue]{N: 3, X: []testBallotValue{3}} }

func prepareMsg(sender NodeID, b Ballot[testBallotValue]) *Msg[testBallotValue] {
	return &Msg[testBallotValue]{
		SenderID: sender,
		Slot:     1,
		Topic:    PrepareTopic[testBallotValue]{B: b},
	}
}

// TestFindQuorumAcceptsFirstSatisfyingMembers replicates
// predicates.rs::test_ballot_set_predicate_quorum: a local quorum set of
// threshold 2 over {2,3,4,5}; nodes 2 and 3 vote ballot_1, nodes 4 and 5
// vote ballot_2; each of 2..5 in turn trusts {1} at threshold 1. The search
// should settle on {1,2,3} with the predicate narrowed to {ballot_1}.
func TestFindQuorumAcceptsFirstSatisfyingMembers(t *testing.T) {
	local := NodeID("1")
	localQ := QuorumSet{Threshold: 2, Members: []QuorumSetMember{
		NodeMember("2"), NodeMember("3"), NodeMember("4"), NodeMember("5"),
	}}
	peerQ := func(trusted NodeID) QuorumSet {
		return QuorumSet{Threshold: 1, Members: []QuorumSetMember{NodeMember(trusted)}}
	}

	msgs := map[NodeID]*Msg[testBallotValue]{
		"2": {SenderID: "2", Slot: 1, SenderQ: peerQ("1"), Topic: PrepareTopic[testBallotValue]{B: ballot1()}},
		"3": {SenderID: "3", Slot: 1, SenderQ: peerQ("1"), Topic: PrepareTopic[testBallotValue]{B: ballot1()}},
		"4": {SenderID: "4", Slot: 1, SenderQ: peerQ("1"), Topic: PrepareTopic[testBallotValue]{B: ballot2()}},
		"5": {SenderID: "5", Slot: 1, SenderQ: peerQ("1"), Topic: PrepareTopic[testBallotValue]{B: ballot2()}},
	}

	candidates := NewBallotSet[testBallotValue](ballot1(), ballot3())
	pred := NewVotesOrAcceptsPreparedPredicate[testBallotValue](candidates)

	nodes, result := FindQuorum[testBallotValue, *BallotSet[testBallotValue]](local, localQ, msgs, pred)

	wantNodes := map[NodeID]bool{"1": true, "2": true, "3": true}
	if len(nodes) != len(wantNodes) {
		t.Fatalf("got node set %v, want %v", nodes, wantNodes)
	}
	for id := range wantNodes {
		if !nodes[id] {
			t.Errorf("expected node %s in quorum, got %v", id, nodes)
		}
	}

	got := result.Result().Values()
	if len(got) != 1 || !got[0].Equal(ballot1()) {
		t.Errorf("expected narrowed result {ballot_1}, got %v", got)
	}
}

// TestFindBlockingSetRecursesThroughInnerSets replicates
// predicates.rs::test_ballot_set_predicate_blocking_set: a local quorum set
// of two inner sets, each threshold 2 over 3 members; nodes 2 and 3 (both
// inside the first inner set) vote ballot_1, which is enough to block that
// inner set and therefore the outer set.
func TestFindBlockingSetRecursesThroughInnerSets(t *testing.T) {
	innerA := QuorumSet{Threshold: 2, Members: []QuorumSetMember{
		NodeMember("2"), NodeMember("3"), NodeMember("4"),
	}}
	innerB := QuorumSet{Threshold: 2, Members: []QuorumSetMember{
		NodeMember("5"), NodeMember("6"), NodeMember("7"),
	}}
	localQ := QuorumSet{Threshold: 2, Members: []QuorumSetMember{
		InnerMember(innerA), InnerMember(innerB),
	}}

	msgs := map[NodeID]*Msg[testBallotValue]{
		"2": prepareMsg("2", ballot1()),
		"3": prepareMsg("3", ballot1()),
	}

	candidates := NewBallotSet[testBallotValue](ballot1(), ballot3())
	pred := NewVotesOrAcceptsPreparedPredicate[testBallotValue](candidates)

	nodes, result := FindBlockingSet[testBallotValue, *BallotSet[testBallotValue]](localQ, msgs, pred)

	want := map[NodeID]bool{"2": true, "3": true}
	if len(nodes) != len(want) {
		t.Fatalf("got blocking set %v, want %v", nodes, want)
	}
	for id := range want {
		if !nodes[id] {
			t.Errorf("expected node %s in blocking set, got %v", id, nodes)
		}
	}

	got := result.Result().Values()
	if len(got) != 1 || !got[0].Equal(ballot1()) {
		t.Errorf("expected narrowed result {ballot_1}, got %v", got)
	}
}

// TestFindQuorumFailsWithoutEnoughVotes checks the "no quorum found"
// convention: with only one of two required peers voting, FindQuorum must
// fall back to {local} and leave the predicate untouched.
func TestFindQuorumFailsWithoutEnoughVotes(t *testing.T) {
	local := NodeID("1")
	localQ := QuorumSet{Threshold: 2, Members: []QuorumSetMember{NodeMember("2"), NodeMember("3")}}
	msgs := map[NodeID]*Msg[testBallotValue]{
		"2": prepareMsg("2", ballot1()),
	}
	pred := FuncPredicate[testBallotValue]{Fn: func(m *Msg[testBallotValue]) bool {
		return votesOrAcceptsPrepared(m, ballot1())
	}}

	nodes, _ := FindQuorum[testBallotValue, struct{}](local, localQ, msgs, pred)
	if len(nodes) != 1 || !nodes[local] {
		t.Fatalf("expected fallback to {local} alone, got %v", nodes)
	}
}

func TestQuorumSetValidate(t *testing.T) {
	cases := []struct {
		name string
		qs   QuorumSet
		ok   bool
	}{
		{"empty is valid", QuorumSet{}, true},
		{"zero threshold with members is invalid", QuorumSet{Threshold: 0, Members: []QuorumSetMember{NodeMember("a")}}, false},
		{"threshold exceeds members", QuorumSet{Threshold: 3, Members: []QuorumSetMember{NodeMember("a"), NodeMember("b")}}, false},
		{"duplicate direct node", QuorumSet{Threshold: 1, Members: []QuorumSetMember{NodeMember("a"), NodeMember("a")}}, false},
		{"valid nested", QuorumSet{Threshold: 1, Members: []QuorumSetMember{
			InnerMember(QuorumSet{Threshold: 1, Members: []QuorumSetMember{NodeMember("a")}}),
		}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.qs.Validate()
			if (err == nil) != c.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, c.ok)
			}
		})
	}
}

package consensus

import "testing"

func neverInvalid(testBallotValue) error { return nil }

func identityCombine(candidates []testBallotValue) []testBallotValue {
	out := make([]testBallotValue, len(candidates))
	copy(out, candidates)
	return out
}

func twoNodeQuorums() (local QuorumSet, peer QuorumSet) {
	local = QuorumSet{Threshold: 1, Members: []QuorumSetMember{NodeMember("2")}}
	peer = QuorumSet{Threshold: 1, Members: []QuorumSetMember{NodeMember("1")}}
	return
}

// TestSlotBasicTwoNodeConsensus replicates the two-node consensus scenario
// from the original Rust test suite: a peer that has already voted,
// accepted, prepared, and committed a value converges our slot to the same
// externalized value after three messages (Nominate, Prepare, Commit), with
// no separate Externalize message required once the commit quorum forms.
func TestSlotBasicTwoNodeConsensus(t *testing.T) {
	localQ, peerQ := twoNodeQuorums()
	s := NewSlot[testBallotValue]("1", localQ, 1, neverInvalid, identityCombine, nil)

	s.ProposeValues([]testBallotValue{100})
	if s.Phase() != PhaseNominate {
		t.Fatalf("expected to remain in Nominate before hearing from the peer, got %s", s.Phase())
	}

	b := Ballot[testBallotValue]{N: 1, X: []testBallotValue{100}}

	nominate := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 1,
		Topic: NominateTopic[testBallotValue]{X: NewValueSet[testBallotValue](100), Y: NewValueSet[testBallotValue](100)}}
	if err := s.Handle(nominate); err != nil {
		t.Fatalf("Handle(nominate): %v", err)
	}
	if s.Phase() != PhasePrepare {
		t.Fatalf("expected Prepare phase after nomination confirmed, got %s", s.Phase())
	}

	prepare := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 1,
		Topic: PrepareTopic[testBallotValue]{B: b, P: b, CN: 1, HN: 1}}
	if err := s.Handle(prepare); err != nil {
		t.Fatalf("Handle(prepare): %v", err)
	}
	if s.Phase() != PhaseCommit {
		t.Fatalf("expected Commit phase after prepare quorum forms, got %s", s.Phase())
	}

	commit := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 1,
		Topic: CommitTopic[testBallotValue]{B: b, PN: 1, CN: 1, HN: 1}}
	if err := s.Handle(commit); err != nil {
		t.Fatalf("Handle(commit): %v", err)
	}

	if !s.Done() {
		t.Fatalf("expected slot to be done after commit quorum forms, phase=%s", s.Phase())
	}
	values, ok := s.Externalized()
	if !ok || len(values) != 1 || values[0] != 100 {
		t.Fatalf("expected externalized [100], got %v (ok=%v)", values, ok)
	}

	msg := s.Message()
	if msg == nil {
		t.Fatal("expected a non-nil outgoing message once externalized")
	}
	ext, ok := msg.Topic.(ExternalizeTopic[testBallotValue])
	if !ok {
		t.Fatalf("expected ExternalizeTopic, got %T", msg.Topic)
	}
	if ext.HN != Infinity {
		t.Errorf("expected HN=Infinity once fully externalized, got %d", ext.HN)
	}
}

// TestSlotIgnoresStaleResend checks the "messages only move forward"
// invariant: a message regressing to an earlier phase than one already seen
// from the same sender is ignored rather than rolling state backward.
func TestSlotIgnoresStaleResend(t *testing.T) {
	localQ, peerQ := twoNodeQuorums()
	s := NewSlot[testBallotValue]("1", localQ, 1, neverInvalid, identityCombine, nil)
	s.ProposeValues([]testBallotValue{100})

	b := Ballot[testBallotValue]{N: 1, X: []testBallotValue{100}}
	prepare := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 1,
		Topic: PrepareTopic[testBallotValue]{B: b, P: b, CN: 1, HN: 1}}
	nominate := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 1,
		Topic: NominateTopic[testBallotValue]{X: NewValueSet[testBallotValue](100), Y: NewValueSet[testBallotValue](100)}}

	if err := s.Handle(prepare); err != nil {
		t.Fatalf("Handle(prepare): %v", err)
	}
	phaseAfterPrepare := s.Phase()

	if err := s.Handle(nominate); err != nil {
		t.Fatalf("Handle(stale nominate): %v", err)
	}
	if s.Phase() != phaseAfterPrepare {
		t.Errorf("expected stale nominate resend to be ignored, phase moved from %s to %s", phaseAfterPrepare, s.Phase())
	}
}

func TestSlotHandleTimeoutBumpsBallotCounterDuringPrepare(t *testing.T) {
	localQ, _ := twoNodeQuorums()
	s := NewSlot[testBallotValue]("1", localQ, 1, neverInvalid, identityCombine, nil)
	s.ProposeValues([]testBallotValue{100})

	nominate := &Msg[testBallotValue]{SenderID: "2", SenderQ: QuorumSet{Threshold: 1, Members: []QuorumSetMember{NodeMember("1")}}, Slot: 1,
		Topic: NominateTopic[testBallotValue]{X: NewValueSet[testBallotValue](100), Y: NewValueSet[testBallotValue](100)}}
	if err := s.Handle(nominate); err != nil {
		t.Fatalf("Handle(nominate): %v", err)
	}
	if s.Phase() != PhasePrepare {
		t.Fatalf("expected Prepare phase, got %s", s.Phase())
	}

	before := s.Metrics().BallotCounter
	s.HandleTimeout()
	after := s.Metrics().BallotCounter
	if after != before+1 {
		t.Errorf("expected ballot counter to bump by 1 on timeout, got %d -> %d", before, after)
	}

	s.phase = PhaseCommit
	before = s.Metrics().BallotCounter
	s.HandleTimeout()
	if s.Metrics().BallotCounter != before {
		t.Errorf("expected HandleTimeout to be a no-op outside Prepare, counter changed %d -> %d", before, s.Metrics().BallotCounter)
	}
}

func TestSlotRejectsMessageForWrongSlot(t *testing.T) {
	localQ, peerQ := twoNodeQuorums()
	s := NewSlot[testBallotValue]("1", localQ, 5, neverInvalid, identityCombine, nil)

	stale := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 4,
		Topic: NominateTopic[testBallotValue]{X: NewValueSet[testBallotValue](1), Y: NewValueSet[testBallotValue]()}}
	if err := s.Handle(stale); err != ErrStaleSlot {
		t.Errorf("expected ErrStaleSlot, got %v", err)
	}

	future := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 6,
		Topic: NominateTopic[testBallotValue]{X: NewValueSet[testBallotValue](1), Y: NewValueSet[testBallotValue]()}}
	if err := s.Handle(future); err != ErrFutureSlot {
		t.Errorf("expected ErrFutureSlot, got %v", err)
	}
}

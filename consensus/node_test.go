package consensus

import "testing"

func TestNodeRejectsSelfMessages(t *testing.T) {
	localQ, _ := twoNodeQuorums()
	n, err := NewNode[testBallotValue]("1", localQ, neverInvalid, identityCombine, nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	selfMsg := &Msg[testBallotValue]{SenderID: "1", Slot: 1,
		Topic: NominateTopic[testBallotValue]{X: NewValueSet[testBallotValue](1), Y: NewValueSet[testBallotValue]()}}
	if err := n.Handle(selfMsg); err != ErrSelfMessage {
		t.Errorf("expected ErrSelfMessage, got %v", err)
	}
}

func TestNodeDedupsRepeatedMessages(t *testing.T) {
	localQ, peerQ := twoNodeQuorums()
	n, err := NewNode[testBallotValue]("1", localQ, neverInvalid, identityCombine, nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	msg := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 1,
		Topic: NominateTopic[testBallotValue]{X: NewValueSet[testBallotValue](100), Y: NewValueSet[testBallotValue](100)}}

	if err := n.Handle(msg); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	phaseAfterFirst := n.slot.Phase()

	if err := n.Handle(msg); err != nil {
		t.Fatalf("duplicate Handle should be a silent no-op, got: %v", err)
	}
	if n.slot.Phase() != phaseAfterFirst {
		t.Errorf("expected duplicate message to be deduped, phase moved from %s to %s", phaseAfterFirst, n.slot.Phase())
	}
}

func TestNodeExternalizesAndAdvancesSlot(t *testing.T) {
	localQ, peerQ := twoNodeQuorums()
	n, err := NewNode[testBallotValue]("1", localQ, neverInvalid, identityCombine, nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	n.Nominate([]testBallotValue{100})

	b := Ballot[testBallotValue]{N: 1, X: []testBallotValue{100}}
	msgs := []*Msg[testBallotValue]{
		{SenderID: "2", SenderQ: peerQ, Slot: 1, Topic: NominateTopic[testBallotValue]{
			X: NewValueSet[testBallotValue](100), Y: NewValueSet[testBallotValue](100)}},
		{SenderID: "2", SenderQ: peerQ, Slot: 1, Topic: PrepareTopic[testBallotValue]{B: b, P: b, CN: 1, HN: 1}},
		{SenderID: "2", SenderQ: peerQ, Slot: 1, Topic: CommitTopic[testBallotValue]{B: b, PN: 1, CN: 1, HN: 1}},
	}
	for _, m := range msgs {
		if err := n.Handle(m); err != nil {
			t.Fatalf("Handle(%v): %v", m, err)
		}
	}

	if n.CurrentSlot() != 2 {
		t.Fatalf("expected node to advance to slot 2 after externalizing slot 1, got %d", n.CurrentSlot())
	}
	history := n.History()
	if len(history) != 1 || history[0].Index != 1 || len(history[0].Values) != 1 || history[0].Values[0] != 100 {
		t.Fatalf("expected history entry for slot 1 with value 100, got %+v", history)
	}
}

func TestNodeResetSlotIndexStartsFreshSlot(t *testing.T) {
	localQ, _ := twoNodeQuorums()
	n, err := NewNode[testBallotValue]("1", localQ, neverInvalid, identityCombine, nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	n.Nominate([]testBallotValue{100})
	if n.slot.votes.Len() == 0 {
		t.Fatal("expected the live slot to have votes before reset")
	}

	n.ResetSlotIndex(10)
	if n.CurrentSlot() != 10 {
		t.Fatalf("expected CurrentSlot() == 10 after reset, got %d", n.CurrentSlot())
	}
	if n.slot.votes.Len() != 0 || n.slot.Phase() != PhaseNominate {
		t.Fatalf("expected a fresh slot after reset, got votes=%d phase=%s", n.slot.votes.Len(), n.slot.Phase())
	}
}

func TestNodeHistoryIsBounded(t *testing.T) {
	localQ, _ := twoNodeQuorums()
	n, err := NewNode[testBallotValue]("1", localQ, neverInvalid, identityCombine, nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	for i := 0; i < MaxExternalizedHistory+5; i++ {
		n.pushHistory(ExternalizedSlot[testBallotValue]{Index: SlotIndex(i), Values: []testBallotValue{testBallotValue(i)}})
	}
	history := n.History()
	if len(history) != MaxExternalizedHistory {
		t.Fatalf("expected history bounded to %d entries, got %d", MaxExternalizedHistory, len(history))
	}
	if history[0].Index != 5 {
		t.Errorf("expected oldest retained entry to be index 5, got %d", history[0].Index)
	}
}

func TestNodeRejectsIncompatibleExternalizeWhenConfigured(t *testing.T) {
	localQ, peerQ := twoNodeQuorums()
	n, err := NewNode[testBallotValue]("1", localQ, neverInvalid, identityCombine, nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	n.RejectIncompatibleExternalize = true
	n.pushHistory(ExternalizedSlot[testBallotValue]{Index: 1, Values: []testBallotValue{100}})

	incompatible := &Msg[testBallotValue]{SenderID: "2", SenderQ: peerQ, Slot: 1,
		Topic: ExternalizeTopic[testBallotValue]{C: Ballot[testBallotValue]{N: 1, X: []testBallotValue{200}}, HN: Infinity}}
	if err := n.Handle(incompatible); err == nil {
		t.Error("expected an error for a peer externalizing an incompatible value")
	}
}

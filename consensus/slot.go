package consensus

import "sort"

// ValidityFn decides whether a value is acceptable to externalize. It must
// be deterministic and side-effect free; the engine calls it before
// admitting a proposed value into the nomination vote set, and again (per
// §7) before trusting an externalized value.
type ValidityFn[V Value] func(V) error

// CombineFn reduces a set of confirmed-nominated candidate values down to
// the single ordered value list a ballot will vote on. The trivial
// implementation (used by scptest fixtures) just sorts and returns the
// candidates unchanged.
type CombineFn[V Value] func(candidates []V) []V

// Slot runs the federated-voting state machine for one slot index: the
// nomination protocol (§4.1) feeding into the ballot protocol (§4.2/4.3).
// It holds no network state of its own -- Handle/Message are pure functions
// of the messages it has seen -- so it is safe to drive from tests without a
// Node or a transport.
type Slot[V Value] struct {
	localID NodeID
	localQ  QuorumSet
	index   SlotIndex
	validate ValidityFn[V]
	combine  CombineFn[V]
	sink     MetricsSink

	// Nomination state (§4.1): votes (x), accepted (y), confirmed
	// candidates (z). nominationUniverse is every value ever seen voted or
	// accepted by any peer, the candidate pool maybeAdvanceNomination walks.
	votes              *ValueSet[V]
	accepted           *ValueSet[V]
	candidates         *ValueSet[V]
	nominationUniverse *ValueSet[V]

	// Ballot state (§4.2/4.3), field names matching the teacher's
	// BallotState (b, p, p', cn, hn) generalized to the recursive quorum
	// search instead of a flat MeetsQuorum check.
	phase         Phase
	ballot        Ballot[V]
	prepared      Ballot[V]
	preparedPrime Ballot[V]
	cn, hn        uint32

	commit   Ballot[V]
	commitPN uint32

	acceptedPrepared  *BallotSet[V]
	ballotUniverse    *BallotSet[V]

	msgs map[NodeID]*Msg[V]

	externalized []V
	done         bool
}

// NewSlot constructs a Slot with no messages yet seen. sink may be nil.
func NewSlot[V Value](
	localID NodeID,
	localQ QuorumSet,
	index SlotIndex,
	validate ValidityFn[V],
	combine CombineFn[V],
	sink MetricsSink,
) *Slot[V] {
	if sink == nil {
		sink = noopSink{}
	}
	return &Slot[V]{
		localID:            localID,
		localQ:              localQ,
		index:               index,
		validate:            validate,
		combine:             combine,
		sink:                sink,
		votes:               NewValueSet[V](),
		accepted:            NewValueSet[V](),
		candidates:          NewValueSet[V](),
		nominationUniverse:  NewValueSet[V](),
		phase:               PhaseNominate,
		acceptedPrepared:    NewBallotSet[V](),
		ballotUniverse:      NewBallotSet[V](),
		msgs:                make(map[NodeID]*Msg[V]),
	}
}

func (s *Slot[V]) Index() SlotIndex { return s.index }
func (s *Slot[V]) Phase() Phase     { return s.phase }
func (s *Slot[V]) Done() bool       { return s.done }

// Externalized returns the slot's final value list, if any.
func (s *Slot[V]) Externalized() ([]V, bool) {
	if !s.done {
		return nil, false
	}
	return s.externalized, true
}

// Metrics snapshots the slot's current state for observability (§2, C9).
func (s *Slot[V]) Metrics() SlotMetrics {
	return SlotMetrics{
		SlotIndex:     s.index,
		Phase:         s.phase,
		BallotCounter: s.ballot.N,
		CN:            s.cn,
		HN:            s.hn,
		NominateCount: s.votes.Len() + s.accepted.Len(),
		BallotCount:   s.ballotUniverse.Len(),
	}
}

// ProposeValues adds values this node wants to nominate, after filtering out
// anything that fails validate. Invalid values are silently dropped, as
// nomination is advisory: peers will reject them again independently.
func (s *Slot[V]) ProposeValues(values []V) {
	if s.phase != PhaseNominate {
		return
	}
	changed := false
	for _, v := range values {
		if err := s.validate(v); err != nil {
			continue
		}
		if !s.votes.Contains(v) {
			s.votes.Add(v)
			s.nominationUniverse.Add(v)
			changed = true
		}
	}
	if changed {
		s.maybeAdvanceNomination()
	}
}

// Handle ingests one peer message, updates internal state, and drives the
// state machine forward as far as the accumulated messages allow. It is the
// generalization of the teacher's NominationState.Handle / BallotState.Handle
// / ChainState.Handle, merged into a single entry point per the unified Msg
// type (§6).
func (s *Slot[V]) Handle(m *Msg[V]) error {
	if m.Slot != s.index {
		if m.Slot < s.index {
			return ErrStaleSlot
		}
		return ErrFutureSlot
	}
	if prev, ok := s.msgs[m.SenderID]; ok && m.Phase() < prev.Phase() {
		// Stale resend from a sender we've already heard more from; the
		// "messages only move forward" invariant (§4.4) means we just
		// ignore it rather than regressing our view of that peer.
		return nil
	}
	s.msgs[m.SenderID] = m
	s.sink.MessageReceived(m.Phase())

	switch t := m.Topic.(type) {
	case NominateTopic[V]:
		s.ingestNomination(t.X, t.Y)
	case NominatePrepareTopic[V]:
		s.ingestNomination(t.Nominate.X, t.Nominate.Y)
		s.ingestBallots(t.B, t.P, t.PPrime)
	case PrepareTopic[V]:
		s.ingestBallots(t.B, t.P, t.PPrime)
	case CommitTopic[V]:
		s.ingestBallots(t.B)
	case ExternalizeTopic[V]:
		s.ingestBallots(t.C)
	}

	s.advance()
	s.AssertValid()
	return nil
}

func (s *Slot[V]) ingestNomination(x, y *ValueSet[V]) {
	for _, v := range x.Values() {
		s.nominationUniverse.Add(v)
	}
	for _, v := range y.Values() {
		s.nominationUniverse.Add(v)
	}
}

func (s *Slot[V]) ingestBallots(ballots ...Ballot[V]) {
	for _, b := range ballots {
		if !b.IsNull() {
			s.ballotUniverse.Add(b)
		}
	}
}

// advance runs every "maybe" transition in order, matching the sequencing
// the teacher's BallotState.Handle documents: accept, then confirm, at each
// layer, before moving to the next.
func (s *Slot[V]) advance() {
	s.maybeAdvanceNomination()
	if s.phase == PhaseNominate {
		return
	}

	for _, b := range s.orderedCandidateBallots() {
		s.maybeAcceptAsPrepared(b)
	}
	s.maybeConfirmAsPrepared()

	for _, b := range s.orderedCandidateBallots() {
		s.maybeAcceptAsCommitted(b)
	}
	s.maybeConfirmAsCommitted()
}

func (s *Slot[V]) orderedCandidateBallots() []Ballot[V] {
	all := append(s.ballotUniverse.Values(), s.ballot)
	sort.Slice(all, func(i, j int) bool { return all[i].Compare(all[j]) < 0 })
	out := all[:0:0]
	var last Ballot[V]
	for i, b := range all {
		if i > 0 && b.Equal(last) {
			continue
		}
		out = append(out, b)
		last = b
	}
	return out
}

// --- Nomination protocol (§4.1) ---

func (s *Slot[V]) maybeAdvanceNomination() {
	if s.phase != PhaseNominate {
		return
	}
	for _, v := range s.nominationUniverse.Values() {
		if s.accepted.Contains(v) {
			continue
		}
		if s.isAccepted(v) {
			s.accepted.Add(v)
		}
	}
	for _, v := range s.accepted.Values() {
		if s.candidates.Contains(v) {
			continue
		}
		if s.isConfirmed(v) {
			s.candidates.Add(v)
		}
	}
	if s.candidates.Len() > 0 {
		s.beginBalloting()
	}
}

func (s *Slot[V]) isAccepted(v V) bool {
	target := v
	quorumPred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return votesOrAcceptsNominated(m, target) }}
	if nodes, _ := FindQuorum[V, struct{}](s.localID, s.localQ, s.msgs, quorumPred); len(nodes) > 1 {
		return true
	}
	blockPred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return acceptsNominated(m, target) }}
	nodes, _ := FindBlockingSet[V, struct{}](s.localQ, s.msgs, blockPred)
	return len(nodes) > 0
}

func (s *Slot[V]) isConfirmed(v V) bool {
	target := v
	pred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return acceptsNominated(m, target) }}
	nodes, _ := FindQuorum[V, struct{}](s.localID, s.localQ, s.msgs, pred)
	return len(nodes) > 1
}

func (s *Slot[V]) beginBalloting() {
	s.phase = PhasePrepare
	s.ballot = Ballot[V]{N: 1, X: s.combine(s.candidates.Values())}
}

// --- Ballot protocol (§4.2/§4.3) ---

func (s *Slot[V]) maybeAcceptAsPrepared(b Ballot[V]) {
	if b.IsNull() || s.acceptedPrepared.Contains(b) {
		return
	}
	target := b
	quorumPred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return votesOrAcceptsPrepared(m, target) }}
	accepted := false
	if nodes, _ := FindQuorum[V, struct{}](s.localID, s.localQ, s.msgs, quorumPred); len(nodes) > 1 {
		accepted = true
	} else {
		blockPred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return acceptsPrepared(m, target) }}
		if nodes, _ := FindBlockingSet[V, struct{}](s.localQ, s.msgs, blockPred); len(nodes) > 0 {
			accepted = true
		}
	}
	if !accepted {
		return
	}
	s.acceptedPrepared.Add(b)
	s.promotePrepared(b)
}

func (s *Slot[V]) promotePrepared(b Ballot[V]) {
	switch {
	case s.prepared.IsNull():
		s.prepared = b
	case b.Compare(s.prepared) > 0:
		if !b.Compatible(s.prepared) {
			s.preparedPrime = s.prepared
		}
		s.prepared = b
	case !b.Compatible(s.prepared) && (s.preparedPrime.IsNull() || b.Compare(s.preparedPrime) > 0):
		s.preparedPrime = b
	}
}

// maybeConfirmAsPrepared checks whether a quorum has accepted s.prepared,
// which lets this node start voting to commit it. This implementation
// confirms a single ballot counter rather than ratcheting a maximal
// contiguous range the way upstream Stellar's optimization does (documented
// as a deliberate simplification in DESIGN.md); it never confirms something
// unconfirmed, so it costs liveness, not safety.
func (s *Slot[V]) maybeConfirmAsPrepared() {
	if s.prepared.IsNull() {
		return
	}
	candidate := s.prepared
	pred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return acceptsPrepared(m, candidate) }}
	nodes, _ := FindQuorum[V, struct{}](s.localID, s.localQ, s.msgs, pred)
	if len(nodes) <= 1 {
		return
	}
	if s.cn == 0 || candidate.N < s.cn {
		s.cn = candidate.N
	}
	if candidate.N > s.hn {
		s.hn = candidate.N
	}
}

func (s *Slot[V]) maybeAcceptAsCommitted(b Ballot[V]) {
	if b.IsNull() || s.phase != PhasePrepare || s.cn == 0 || !b.Compatible(s.ballot) {
		return
	}
	target := b
	quorumPred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return votesOrAcceptsCommits(m, target) }}
	accepted := false
	if nodes, _ := FindQuorum[V, struct{}](s.localID, s.localQ, s.msgs, quorumPred); len(nodes) > 1 {
		accepted = true
	} else {
		blockPred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return acceptsCommits(m, target) }}
		if nodes, _ := FindBlockingSet[V, struct{}](s.localQ, s.msgs, blockPred); len(nodes) > 0 {
			accepted = true
		}
	}
	if !accepted {
		return
	}
	s.phase = PhaseCommit
	s.commit = b
	if b.N > s.commitPN {
		s.commitPN = b.N
	}
}

func (s *Slot[V]) maybeConfirmAsCommitted() {
	if s.phase != PhaseCommit {
		return
	}
	target := s.commit
	pred := FuncPredicate[V]{Fn: func(m *Msg[V]) bool { return acceptsCommits(m, target) }}
	nodes, _ := FindQuorum[V, struct{}](s.localID, s.localQ, s.msgs, pred)
	if len(nodes) <= 1 {
		return
	}
	s.phase = PhaseExternalize
	s.externalized = s.commit.X
	s.done = true
}

// HandleTimeout bumps the ballot counter when no progress has been made for
// a round, mirroring the teacher's ChainState.HandleTimerTick. It is a
// liveness mechanism only: it never changes what has already been accepted
// or confirmed.
func (s *Slot[V]) HandleTimeout() {
	if s.phase != PhasePrepare {
		return
	}
	s.ballot.N++
}

// Message builds this slot's current statement, or nil if it has nothing to
// say yet (Nominate phase before any value has been proposed). Unlike the
// teacher's mutating Message() helpers, this is a pure read: calling it
// twice without an intervening Handle/ProposeValues returns an identical
// message, which is what lets a transport safely resend it.
func (s *Slot[V]) Message() *Msg[V] {
	switch s.phase {
	case PhaseNominate:
		if s.votes.Len() == 0 {
			return nil
		}
		return &Msg[V]{SenderID: s.localID, SenderQ: s.localQ, Slot: s.index,
			Topic: NominateTopic[V]{X: s.votes, Y: s.accepted}}
	case PhasePrepare:
		return &Msg[V]{SenderID: s.localID, SenderQ: s.localQ, Slot: s.index,
			Topic: PrepareTopic[V]{B: s.ballot, P: s.prepared, PPrime: s.preparedPrime, CN: s.cn, HN: s.hn}}
	case PhaseCommit:
		return &Msg[V]{SenderID: s.localID, SenderQ: s.localQ, Slot: s.index,
			Topic: CommitTopic[V]{B: s.commit, PN: s.commitPN, CN: s.cn, HN: s.hn}}
	case PhaseExternalize:
		return &Msg[V]{SenderID: s.localID, SenderQ: s.localQ, Slot: s.index,
			Topic: ExternalizeTopic[V]{C: s.commit, HN: Infinity}}
	}
	return nil
}

// CatchUpMessage builds the hybrid NominatePrepareTopic statement for a peer
// that is known to have fallen behind in the nomination protocol while this
// node has already moved into balloting, mirroring the teacher's
// Chain.OutgoingMessages re-sending a prior Externalize for catchup.
func (s *Slot[V]) CatchUpMessage() *Msg[V] {
	if s.phase != PhasePrepare {
		return s.Message()
	}
	return &Msg[V]{SenderID: s.localID, SenderQ: s.localQ, Slot: s.index,
		Topic: NominatePrepareTopic[V]{
			Nominate: NominateTopic[V]{X: s.votes, Y: s.accepted},
			B:        s.ballot, P: s.prepared, PPrime: s.preparedPrime, CN: s.cn, HN: s.hn,
		}}
}

package consensus

import "fmt"

// SlotIndex numbers slots. Slots advance monotonically as the chain of
// externalized values grows.
type SlotIndex uint64

// Topic carries the phase-specific payload of a Msg. There are exactly five
// concrete topics, mirroring the five states of a node's statement: Nominate,
// NominatePrepare (the hybrid statement a node sends once it has both an
// accepted nomination and an opinion on a ballot), Prepare, Commit and
// Externalize. Topic is a closed sum type: isTopic is unexported so no type
// outside this package can implement it.
type Topic[V Value] interface {
	isTopic()
	phase() Phase
}

// Phase orders the five topics for the "messages only move forward"
// invariant (§4.4): a node's rebroadcast message for a slot must never
// regress to an earlier phase than one already seen from that sender.
type Phase int

const (
	PhaseNominate Phase = iota
	PhaseNominatePrepare
	PhasePrepare
	PhaseCommit
	PhaseExternalize
)

func (p Phase) String() string {
	switch p {
	case PhaseNominate:
		return "NOMINATE"
	case PhaseNominatePrepare:
		return "NOMINATE_PREPARE"
	case PhasePrepare:
		return "PREPARE"
	case PhaseCommit:
		return "COMMIT"
	case PhaseExternalize:
		return "EXTERNALIZE"
	default:
		return "UNKNOWN"
	}
}

// NominateTopic is a federated-voting statement over the nomination protocol:
// X is voted values, Y is accepted values.
type NominateTopic[V Value] struct {
	X, Y *ValueSet[V]
}

func (NominateTopic[V]) isTopic()     {}
func (NominateTopic[V]) phase() Phase { return PhaseNominate }

func (t NominateTopic[V]) String() string {
	return fmt.Sprintf("Nominate(X=%s,Y=%s)", t.X, t.Y)
}

// NominatePrepareTopic is sent once a node has transitioned into the
// balloting protocol but still wants to report its nomination state to
// peers that have not yet caught up; it carries both the nomination
// statement and the ballot statement in a single message.
type NominatePrepareTopic[V Value] struct {
	Nominate NominateTopic[V]
	B        Ballot[V]
	P, PPrime Ballot[V]
	CN, HN   uint32
}

func (NominatePrepareTopic[V]) isTopic()     {}
func (NominatePrepareTopic[V]) phase() Phase { return PhaseNominatePrepare }

func (t NominatePrepareTopic[V]) String() string {
	return fmt.Sprintf("NominatePrepare(%s,b=%s,p=%s,p'=%s,cn=%d,hn=%d)",
		t.Nominate, t.B, t.P, t.PPrime, t.CN, t.HN)
}

// PrepareTopic is the core balloting statement: b is the current ballot, p
// and p' are the two highest accepted-as-prepared ballots (p' may be null),
// and [cn,hn] bound the confirmed-prepared range (cn=0 means nothing
// confirmed yet).
type PrepareTopic[V Value] struct {
	B         Ballot[V]
	P, PPrime Ballot[V]
	CN, HN    uint32
}

func (PrepareTopic[V]) isTopic()     {}
func (PrepareTopic[V]) phase() Phase { return PhasePrepare }

func (t PrepareTopic[V]) String() string {
	return fmt.Sprintf("Prepare(b=%s,p=%s,p'=%s,cn=%d,hn=%d)", t.B, t.P, t.PPrime, t.CN, t.HN)
}

// CommitTopic announces that the sender has accepted commit for ballot B at
// counter PN, with a confirmed-prepared range [cn,hn].
type CommitTopic[V Value] struct {
	B          Ballot[V]
	PN, CN, HN uint32
}

func (CommitTopic[V]) isTopic()     {}
func (CommitTopic[V]) phase() Phase { return PhaseCommit }

func (t CommitTopic[V]) String() string {
	return fmt.Sprintf("Commit(b=%s,pn=%d,cn=%d,hn=%d)", t.B, t.PN, t.CN, t.HN)
}

// ExternalizeTopic announces that the sender has confirmed commit: C is the
// committed ballot, and HN is the highest ballot counter known compatible
// with C (HN=Infinity once the sender itself has fully externalized).
type ExternalizeTopic[V Value] struct {
	C  Ballot[V]
	HN uint32
}

func (ExternalizeTopic[V]) isTopic()     {}
func (ExternalizeTopic[V]) phase() Phase { return PhaseExternalize }

func (t ExternalizeTopic[V]) String() string {
	return fmt.Sprintf("Externalize(c=%s,hn=%d)", t.C, t.HN)
}

// Msg is a single node's statement about a slot: an envelope carrying the
// sender's identity, the quorum set it was signed against, the slot it
// concerns, and the phase-specific Topic payload.
type Msg[V Value] struct {
	SenderID  NodeID
	SenderQ   QuorumSet
	Slot      SlotIndex
	Topic     Topic[V]
}

func (m *Msg[V]) Phase() Phase {
	return m.Topic.phase()
}

func (m *Msg[V]) String() string {
	return fmt.Sprintf("Msg{slot=%d,from=%s,%v}", m.Slot, m.SenderID, m.Topic)
}

// votesOrAcceptsNominated reports whether the message indicates the sender
// votes for or accepts v as nominated.
func votesOrAcceptsNominated[V Value](m *Msg[V], v V) bool {
	switch t := m.Topic.(type) {
	case NominateTopic[V]:
		return t.X.Contains(v) || t.Y.Contains(v)
	case NominatePrepareTopic[V]:
		return t.Nominate.X.Contains(v) || t.Nominate.Y.Contains(v)
	default:
		// Once in Prepare/Commit/Externalize, the sender has already
		// fixed its nomination set to whatever it put in its ballot's X.
		return ballotValueContains(m, v)
	}
}

// acceptsNominated reports whether the sender has *accepted* (not merely
// voted for) v as nominated.
func acceptsNominated[V Value](m *Msg[V], v V) bool {
	switch t := m.Topic.(type) {
	case NominateTopic[V]:
		return t.Y.Contains(v)
	case NominatePrepareTopic[V]:
		return t.Nominate.Y.Contains(v)
	default:
		return ballotValueContains(m, v)
	}
}

// ballotValueContains reports whether v appears in the value list of
// whichever ballot the sender's current phase centers on.
func ballotValueContains[V Value](m *Msg[V], v V) bool {
	switch t := m.Topic.(type) {
	case PrepareTopic[V]:
		return containsValue(t.B.X, v)
	case CommitTopic[V]:
		return containsValue(t.B.X, v)
	case ExternalizeTopic[V]:
		return containsValue(t.C.X, v)
	}
	return false
}

func containsValue[V Value](xs []V, v V) bool {
	for _, x := range xs {
		if x.Equal(v) {
			return true
		}
	}
	return false
}

// votesOrAcceptsPrepared reports whether the sender has b "on the table" as
// prepared in any capacity: voted for as its current ballot b, or promoted to
// p or p'.
func votesOrAcceptsPrepared[V Value](m *Msg[V], b Ballot[V]) bool {
	switch t := m.Topic.(type) {
	case NominatePrepareTopic[V]:
		return b.Equal(t.B) || b.Equal(t.P) || b.Equal(t.PPrime)
	case PrepareTopic[V]:
		return b.Equal(t.B) || b.Equal(t.P) || b.Equal(t.PPrime)
	case CommitTopic[V]:
		// Committing at pn implies every compatible ballot up to pn is
		// settled as prepared.
		return b.Compatible(t.B) && b.N <= t.PN
	case ExternalizeTopic[V]:
		return b.Compatible(t.C)
	}
	return false
}

// acceptsPrepared reports whether the sender has specifically promoted b to
// p or p' (as opposed to merely still voting for it as the current ballot).
func acceptsPrepared[V Value](m *Msg[V], b Ballot[V]) bool {
	switch t := m.Topic.(type) {
	case NominatePrepareTopic[V]:
		return b.Equal(t.P) || b.Equal(t.PPrime)
	case PrepareTopic[V]:
		return b.Equal(t.P) || b.Equal(t.PPrime)
	case CommitTopic[V]:
		return b.Compatible(t.B) && b.N <= t.PN
	case ExternalizeTopic[V]:
		return b.Compatible(t.C)
	}
	return false
}

// votesOrAcceptsCommits reports whether the sender votes to commit or has
// accepted commit for b. A Prepare/NominatePrepare message's [cn,hn] is the
// range of ballot counters the sender votes to commit; a Commit or
// Externalize message means the sender has gone further and accepted it.
func votesOrAcceptsCommits[V Value](m *Msg[V], b Ballot[V]) bool {
	switch t := m.Topic.(type) {
	case NominatePrepareTopic[V]:
		return b.Compatible(t.B) && t.CN != 0 && t.CN <= b.N && b.N <= t.HN
	case PrepareTopic[V]:
		return b.Compatible(t.B) && t.CN != 0 && t.CN <= b.N && b.N <= t.HN
	default:
		return acceptsCommits(m, b)
	}
}

// acceptsCommits reports whether the sender has accepted commit for b, i.e.
// has moved to Commit or Externalize with a range covering b's counter.
func acceptsCommits[V Value](m *Msg[V], b Ballot[V]) bool {
	switch t := m.Topic.(type) {
	case CommitTopic[V]:
		return b.Compatible(t.B) && t.CN <= b.N && b.N <= t.HN
	case ExternalizeTopic[V]:
		return b.Compatible(t.C) && b.N >= t.C.N
	}
	return false
}

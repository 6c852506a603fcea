package consensus

// Predicate is the stateful-predicate framework described in §4.1: Test
// consumes a peer's message and either returns a narrowed predicate (the
// search continues down this path) or rejects the message, in which case the
// message does not count toward a quorum or blocking set. Result extracts
// whatever the predicate has accumulated once a search concludes.
//
// Predicate itself is immutable: Test never mutates the receiver, it returns
// a new predicate value representing the narrowed state. This makes the
// search in search.go safe to backtrack without bookkeeping.
type Predicate[V Value, R any] interface {
	Test(m *Msg[V]) (Predicate[V, R], bool)
	Result() R
}

// FuncPredicate adapts a plain test function into a Predicate with no
// narrowing state, for callers that just want a yes/no membership test (e.g.
// "does this node vote for value v").
type FuncPredicate[V Value] struct {
	Fn func(m *Msg[V]) bool
}

func (p FuncPredicate[V]) Test(m *Msg[V]) (Predicate[V, struct{}], bool) {
	if p.Fn(m) {
		return p, true
	}
	return p, false
}

func (p FuncPredicate[V]) Result() struct{} { return struct{}{} }

// ValueSetPredicate narrows a candidate set of values to those that each
// successive message still votes for or accepts, via TestFn. Once Values is
// empty, the predicate can never succeed again, matching the teacher's
// pattern of treating an empty intersection as "nothing left to agree on."
type ValueSetPredicate[V Value] struct {
	Values *ValueSet[V]
	TestFn func(m *Msg[V], values *ValueSet[V]) *ValueSet[V]
}

func (p ValueSetPredicate[V]) Test(m *Msg[V]) (Predicate[V, *ValueSet[V]], bool) {
	narrowed := p.TestFn(m, p.Values)
	if narrowed == nil || narrowed.Len() == 0 {
		return p, false
	}
	return ValueSetPredicate[V]{Values: narrowed, TestFn: p.TestFn}, true
}

func (p ValueSetPredicate[V]) Result() *ValueSet[V] { return p.Values }

// NewVotesOrAcceptsNominatedPredicate builds a ValueSetPredicate that narrows
// to the values of Values still voted for or accepted by each message seen.
func NewVotesOrAcceptsNominatedPredicate[V Value](values *ValueSet[V]) ValueSetPredicate[V] {
	return ValueSetPredicate[V]{
		Values: values,
		TestFn: func(m *Msg[V], cur *ValueSet[V]) *ValueSet[V] {
			out := NewValueSet[V]()
			for _, v := range cur.Values() {
				if votesOrAcceptsNominated(m, v) {
					out.Add(v)
				}
			}
			return out
		},
	}
}

// NewAcceptsNominatedPredicate is the Y-only (accepted, not merely voted)
// variant, used to decide when a value is confirmed nominated.
func NewAcceptsNominatedPredicate[V Value](values *ValueSet[V]) ValueSetPredicate[V] {
	return ValueSetPredicate[V]{
		Values: values,
		TestFn: func(m *Msg[V], cur *ValueSet[V]) *ValueSet[V] {
			out := NewValueSet[V]()
			for _, v := range cur.Values() {
				if acceptsNominated(m, v) {
					out.Add(v)
				}
			}
			return out
		},
	}
}

// BallotSetPredicate narrows a candidate set of ballots to those still voted
// for or accepted (as prepared, depending on TestFn) by each message.
type BallotSetPredicate[V Value] struct {
	Ballots *BallotSet[V]
	TestFn  func(m *Msg[V], ballots *BallotSet[V]) *BallotSet[V]
}

func (p BallotSetPredicate[V]) Test(m *Msg[V]) (Predicate[V, *BallotSet[V]], bool) {
	narrowed := p.TestFn(m, p.Ballots)
	if narrowed == nil || narrowed.Len() == 0 {
		return p, false
	}
	return BallotSetPredicate[V]{Ballots: narrowed, TestFn: p.TestFn}, true
}

func (p BallotSetPredicate[V]) Result() *BallotSet[V] { return p.Ballots }

func NewVotesOrAcceptsPreparedPredicate[V Value](ballots *BallotSet[V]) BallotSetPredicate[V] {
	return BallotSetPredicate[V]{
		Ballots: ballots,
		TestFn: func(m *Msg[V], cur *BallotSet[V]) *BallotSet[V] {
			out := NewBallotSet[V]()
			for _, b := range cur.Values() {
				if votesOrAcceptsPrepared(m, b) {
					out.Add(b)
				}
			}
			return out
		},
	}
}

func NewAcceptsPreparedPredicate[V Value](ballots *BallotSet[V]) BallotSetPredicate[V] {
	return BallotSetPredicate[V]{
		Ballots: ballots,
		TestFn: func(m *Msg[V], cur *BallotSet[V]) *BallotSet[V] {
			out := NewBallotSet[V]()
			for _, b := range cur.Values() {
				if acceptsPrepared(m, b) {
					out.Add(b)
				}
			}
			return out
		},
	}
}

func NewAcceptsCommitsPredicate[V Value](ballots *BallotSet[V]) BallotSetPredicate[V] {
	return BallotSetPredicate[V]{
		Ballots: ballots,
		TestFn: func(m *Msg[V], cur *BallotSet[V]) *BallotSet[V] {
			out := NewBallotSet[V]()
			for _, b := range cur.Values() {
				if acceptsCommits(m, b) {
					out.Add(b)
				}
			}
			return out
		},
	}
}

// BallotRange is a half-open [Min,Max] counter range attached to a fixed
// value list X, used by BallotRangePredicate to track "for which [cn,hn]
// ranges does this X remain prepared/committed".
type BallotRange struct {
	Min, Max uint32
}

// BallotRangePredicate narrows, per distinct value list X, the counter range
// still supported by every message seen. It is used when confirming a
// commit range rather than a single ballot.
type BallotRangePredicate[V Value] struct {
	Ranges map[string]BallotRange
	Lists  map[string][]V
	TestFn func(m *Msg[V], x []V, r BallotRange) (BallotRange, bool)
}

func (p BallotRangePredicate[V]) Test(m *Msg[V]) (Predicate[V, map[string]BallotRange], bool) {
	narrowed := make(map[string]BallotRange)
	lists := make(map[string][]V)
	for key, r := range p.Ranges {
		nr, ok := p.TestFn(m, p.Lists[key], r)
		if ok {
			narrowed[key] = nr
			lists[key] = p.Lists[key]
		}
	}
	if len(narrowed) == 0 {
		return p, false
	}
	return BallotRangePredicate[V]{Ranges: narrowed, Lists: lists, TestFn: p.TestFn}, true
}

func (p BallotRangePredicate[V]) Result() map[string]BallotRange { return p.Ranges }

// MinMaxPredicate tracks a single [min,max] counter range for one fixed value
// list, narrowing the range on every accepted message and exposing the
// highest surviving ballot via GetHighestBallot, used when confirming prepare
// and commit ranges per §4.2/§4.3.
type MinMaxPredicate[V Value] struct {
	Min, Max uint32
	X        []V
	TestFn   func(m *Msg[V], x []V, min, max uint32) (uint32, uint32, bool)
}

func (p MinMaxPredicate[V]) Test(m *Msg[V]) (Predicate[V, [2]uint32], bool) {
	min, max, ok := p.TestFn(m, p.X, p.Min, p.Max)
	if !ok {
		return p, false
	}
	return MinMaxPredicate[V]{Min: min, Max: max, X: p.X, TestFn: p.TestFn}, true
}

func (p MinMaxPredicate[V]) Result() [2]uint32 { return [2]uint32{p.Min, p.Max} }

// GetHighestBallot returns the ballot (p.Max, p.X), the highest surviving
// counter paired with the fixed value list, mirroring the Rust
// get_highest_ballot helper used once a MinMaxPredicate search concludes.
func (p MinMaxPredicate[V]) GetHighestBallot() Ballot[V] {
	return Ballot[V]{N: p.Max, X: p.X}
}

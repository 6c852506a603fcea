package consensus

import "github.com/davecgh/go-spew/spew"

// Dump renders a Slot's internal state for debugging, the same fallback the
// teacher's Chain.Log uses when no more specific summary is warranted.
func (s *Slot[V]) Dump() string {
	return spew.Sdump(s)
}

// AssertValid panics with a descriptive message if the slot's bookkeeping
// has drifted into a state the protocol should never produce. The teacher
// treats this class of bug as a hard stop (log.Fatalf) rather than a
// returned error; we keep that posture but panic instead of exiting the
// process, since a library should not call os.Exit on behalf of its caller.
func (s *Slot[V]) AssertValid() {
	if s.ballot.N == 0 && s.phase != PhaseNominate {
		panic(ErrInvalidState{Reason: "non-nominate phase with null current ballot"})
	}
	if !s.prepared.IsNull() && !s.prepared.Compatible(s.ballot) && s.phase != PhaseExternalize {
		if !s.preparedPrime.IsNull() && !s.preparedPrime.Compatible(s.prepared) {
			panic(ErrInvalidState{Reason: "prepared and prepared' carry incompatible value lists"})
		}
	}
	if s.hn != 0 && s.cn != 0 && s.cn > s.hn {
		panic(ErrInvalidState{Reason: "confirmed-prepared range has cn > hn"})
	}
}

package consensus

import "github.com/emirpasic/gods/sets/treeset"

// ValueSet is a deterministically ordered set of values, backed by the same
// red-black treeset the teacher uses for its transaction queue. Ordering
// matters here because federated-voting results (the X component of a
// nomination or ballot) must be combined into a canonical, reproducible
// value list across every node.
type ValueSet[V Value] struct {
	set *treeset.Set
}

func NewValueSet[V Value](values ...V) *ValueSet[V] {
	s := &ValueSet[V]{
		set: treeset.NewWith(func(a, b interface{}) int {
			return compareValues(a.(V), b.(V))
		}),
	}
	for _, v := range values {
		s.set.Add(v)
	}
	return s
}

func (s *ValueSet[V]) Add(v V) {
	s.set.Add(v)
}

func (s *ValueSet[V]) Contains(v V) bool {
	return s.set.Contains(v)
}

func (s *ValueSet[V]) Len() int {
	return s.set.Size()
}

// Values returns the set's contents in ascending order.
func (s *ValueSet[V]) Values() []V {
	out := make([]V, 0, s.set.Size())
	for _, v := range s.set.Values() {
		out = append(out, v.(V))
	}
	return out
}

func (s *ValueSet[V]) Equal(o *ValueSet[V]) bool {
	return equalValueLists(s.Values(), o.Values())
}

// Intersect returns the values present in both sets.
func (s *ValueSet[V]) Intersect(o *ValueSet[V]) *ValueSet[V] {
	out := NewValueSet[V]()
	for _, v := range s.Values() {
		if o.Contains(v) {
			out.Add(v)
		}
	}
	return out
}

// Union returns the values present in either set.
func (s *ValueSet[V]) Union(o *ValueSet[V]) *ValueSet[V] {
	out := NewValueSet[V](s.Values()...)
	for _, v := range o.Values() {
		out.Add(v)
	}
	return out
}

func (s *ValueSet[V]) String() string {
	return s.set.String()
}

// BallotSet is the same ordered-container idea applied to Ballot[V], used by
// BallotSetPredicate and by the slot's per-ballot message bookkeeping.
type BallotSet[V Value] struct {
	set *treeset.Set
}

func NewBallotSet[V Value](ballots ...Ballot[V]) *BallotSet[V] {
	s := &BallotSet[V]{
		set: treeset.NewWith(func(a, b interface{}) int {
			return compareBallots(a.(Ballot[V]), b.(Ballot[V]))
		}),
	}
	for _, b := range ballots {
		s.set.Add(b)
	}
	return s
}

func (s *BallotSet[V]) Add(b Ballot[V]) {
	s.set.Add(b)
}

func (s *BallotSet[V]) Contains(b Ballot[V]) bool {
	return s.set.Contains(b)
}

func (s *BallotSet[V]) Len() int {
	return s.set.Size()
}

func (s *BallotSet[V]) Values() []Ballot[V] {
	out := make([]Ballot[V], 0, s.set.Size())
	for _, v := range s.set.Values() {
		out = append(out, v.(Ballot[V]))
	}
	return out
}

// Intersect returns the ballots present in both sets.
func (s *BallotSet[V]) Intersect(o *BallotSet[V]) *BallotSet[V] {
	out := NewBallotSet[V]()
	for _, b := range s.Values() {
		if o.Contains(b) {
			out.Add(b)
		}
	}
	return out
}

func (s *BallotSet[V]) String() string {
	return s.set.String()
}

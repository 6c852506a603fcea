package consensus

// Value is the opaque application type that SCP reaches consensus over.
// The engine never inspects a Value beyond these three operations: it needs
// a total order (to pick a canonical combined value list), an equality test
// (to compare ballots for compatibility), and a canonical byte encoding (for
// digesting and for deterministic set iteration).
type Value interface {
	// Less reports whether the receiver sorts strictly before other under
	// the value's total order.
	Less(other Value) bool

	// Equal reports whether the receiver and other represent the same
	// application-level value.
	Equal(other Value) bool

	// Bytes returns the value's canonical serialization. Two equal values
	// must produce identical bytes; this is the only thing Digest and
	// ordered-set storage rely on.
	Bytes() []byte
}

// compareValues orders two values of the same concrete type, consulting
// Less/Equal rather than assuming any particular Go representation.
func compareValues[V Value](a, b V) int {
	if a.Equal(b) {
		return 0
	}
	if a.Less(b) {
		return -1
	}
	return 1
}

// compareValueLists orders two value lists lexicographically, element by
// element, falling back to length. Used for Ballot.X comparisons and for the
// tie-break rule in §4.2 ("maximize by (|node_set|, values) lexicographically").
func compareValueLists[V Value](a, b []V) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func equalValueLists[V Value](a, b []V) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

package consensus

import "testing"

func TestBallotCompatibleIgnoresCounter(t *testing.T) {
	a := Ballot[testBallotValue]{N: 1, X: []testBallotValue{1, 2}}
	b := Ballot[testBallotValue]{N: 5, X: []testBallotValue{1, 2}}
	c := Ballot[testBallotValue]{N: 1, X: []testBallotValue{3}}

	if !a.Compatible(b) {
		t.Errorf("expected ballots with equal X but different N to be compatible")
	}
	if a.Compatible(c) {
		t.Errorf("expected ballots with different X to be incompatible")
	}
}

func TestBallotCompareOrdersByCounterThenValue(t *testing.T) {
	low := Ballot[testBallotValue]{N: 1, X: []testBallotValue{9}}
	high := Ballot[testBallotValue]{N: 2, X: []testBallotValue{1}}
	if low.Compare(high) >= 0 {
		t.Errorf("expected lower counter to sort first regardless of X")
	}

	a := Ballot[testBallotValue]{N: 1, X: []testBallotValue{1, 2}}
	b := Ballot[testBallotValue]{N: 1, X: []testBallotValue{1, 3}}
	if a.Compare(b) >= 0 {
		t.Errorf("expected equal-counter ballots to fall back to value-list ordering")
	}
}

func TestNullBallotSortsBelowEverything(t *testing.T) {
	null := NullBallot[testBallotValue]()
	if !null.IsNull() {
		t.Fatal("expected NullBallot to report IsNull")
	}
	other := Ballot[testBallotValue]{N: 1, X: []testBallotValue{1}}
	if null.Compare(other) >= 0 {
		t.Errorf("expected null ballot to sort below a real ballot")
	}
}

func TestBallotEqualRequiresSameCounterAndValues(t *testing.T) {
	a := Ballot[testBallotValue]{N: 1, X: []testBallotValue{1}}
	b := Ballot[testBallotValue]{N: 1, X: []testBallotValue{1}}
	c := Ballot[testBallotValue]{N: 2, X: []testBallotValue{1}}
	if !a.Equal(b) {
		t.Errorf("expected identical ballots to be equal")
	}
	if a.Equal(c) {
		t.Errorf("expected ballots with different counters to be unequal")
	}
}

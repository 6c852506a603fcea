// Package scptest provides test-only fixtures for exercising the consensus
// package: a trivial Value implementation, the canonical small quorum-set
// topologies from the Stellar whitepaper and the mobilecoin SCP test suite,
// a hand-rolled parser/formatter for the "([N],...)" quorum-set shorthand,
// and an in-memory multi-node network harness. None of this is imported by
// the core engine; it exists so tests (and cmd/fedvoted's demo cluster) have
// something concrete to drive.
package scptest

import (
	"encoding/binary"
	"fmt"

	"github.com/rjwalters/fbascp/consensus"
)

// Value is a trivial consensus.Value backed by a plain integer, the
// generic-engine analogue of the Rust test suite's `u32` value type used
// throughout original_source/consensus/scp/src/test_utils.rs.
type Value uint32

func (v Value) Less(other consensus.Value) bool {
	return v < other.(Value)
}

func (v Value) Equal(other consensus.Value) bool {
	o, ok := other.(Value)
	return ok && v == o
}

func (v Value) Bytes() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func (v Value) String() string {
	return fmt.Sprintf("%d", uint32(v))
}

// TrivialValidity always accepts, matching test_utils.rs's trivial_validity_fn.
func TrivialValidity(Value) error { return nil }

// TrivialCombine returns the candidates unchanged (already an ordered list
// by construction, since consensus.ValueSet.Values() is sorted), matching
// test_utils.rs's trivial_combine_fn.
func TrivialCombine(candidates []Value) []Value {
	return candidates
}

// BoundedCombine caps the combined value list at maxElements, matching
// test_utils.rs's get_bounded_combine_fn.
func BoundedCombine(maxElements int) consensus.CombineFn[Value] {
	return func(candidates []Value) []Value {
		if len(candidates) <= maxElements {
			return candidates
		}
		return candidates[:maxElements]
	}
}

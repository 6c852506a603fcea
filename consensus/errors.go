package consensus

import "errors"

// Sentinel errors returned by the engine's external interfaces (§7). Internal
// invariant violations that should never happen given a correct caller use
// AssertValid's fatal-log convention instead, matching the teacher's style of
// treating "impossible" states as a logged fatal rather than a returned error.
var (
	// ErrInvalidQuorumSet is returned when a QuorumSet fails Validate.
	ErrInvalidQuorumSet = errors.New("consensus: invalid quorum set")

	// ErrUnknownSender is returned when a Msg's SenderQuorumSet is required
	// for a search but no message from that sender has been recorded.
	ErrUnknownSender = errors.New("consensus: no known quorum set for sender")

	// ErrStaleSlot is returned when a message's slot index is older than
	// the node's current slot.
	ErrStaleSlot = errors.New("consensus: message slot index is stale")

	// ErrFutureSlot is returned when a message's slot index is ahead of
	// the node's current slot by more than the node tolerates.
	ErrFutureSlot = errors.New("consensus: message slot index is in the future")

	// ErrInvalidValue is returned by a Slot's validity function rejecting
	// one or more externalized values.
	ErrInvalidValue = errors.New("consensus: value failed validation")

	// ErrSelfMessage is returned when Node.Handle receives a message
	// purportedly from itself.
	ErrSelfMessage = errors.New("consensus: refusing to handle message from self")
)

// ErrInvalidState is the value AssertValid panics with when a Slot's
// bookkeeping has drifted into a state the protocol should never produce.
// It is typed (rather than a bare string) so a caller recovering from the
// panic can distinguish a protocol-invariant violation from any other bug.
type ErrInvalidState struct {
	Reason string
}

func (e ErrInvalidState) Error() string {
	return "consensus: invariant violated: " + e.Reason
}

package consensus

// SlotMetrics is the point-in-time snapshot a Node exposes per slot (§2,
// component C9 in the expanded spec). It is deliberately a plain struct so
// that packages outside consensus (see package metrics) can project it onto
// whatever observability backend they like without this package depending on
// one.
type SlotMetrics struct {
	SlotIndex     SlotIndex
	Phase         Phase
	BallotCounter uint32
	CN, HN        uint32
	NominateCount int
	BallotCount   int
	MessagesSent  int
}

// MetricsSink receives notifications as a Slot processes messages. A nil
// sink is always safe to call through; Slot guards every call site so that
// wiring metrics is opt-in.
type MetricsSink interface {
	MessageReceived(phase Phase)
	MessageSent(phase Phase)
	Observe(m SlotMetrics)
}

// noopSink is used when a Slot is constructed without an explicit sink.
type noopSink struct{}

func (noopSink) MessageReceived(Phase)   {}
func (noopSink) MessageSent(Phase)       {}
func (noopSink) Observe(SlotMetrics)     {}

// Package metrics wires consensus.MetricsSink to Prometheus. It is kept
// separate from package consensus so the engine itself never imports a
// metrics backend directly -- only the SlotMetrics/MetricsSink shapes it
// defines -- matching the spec's ambient-observability component (C9)
// without coupling the core state machine to it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rjwalters/fbascp/consensus"
)

// PrometheusSink implements consensus.MetricsSink. Each instance registers
// its own metrics into the registry passed to New, so tests can use
// prometheus.NewRegistry() to avoid the double-registration panics that
// come from sharing the global DefaultRegisterer across nodes.
type PrometheusSink struct {
	nodeID string

	messagesReceived *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	phase            *prometheus.GaugeVec
	ballotCounter    prometheus.Gauge
	confirmedRange   *prometheus.GaugeVec
}

// New registers a PrometheusSink's metrics into reg under the given node
// label and returns the sink ready to pass to consensus.NewNode.
func New(reg prometheus.Registerer, nodeID string) (*PrometheusSink, error) {
	s := &PrometheusSink{
		nodeID: nodeID,
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fbascp",
			Name:      "messages_received_total",
			Help:      "Messages received by the slot state machine, labeled by phase.",
		}, []string{"node", "phase"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fbascp",
			Name:      "messages_sent_total",
			Help:      "Messages sent by the slot state machine, labeled by phase.",
		}, []string{"node", "phase"}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fbascp",
			Name:      "slot_phase",
			Help:      "1 if the node's live slot is currently in the labeled phase, else 0.",
		}, []string{"node", "phase"}),
		ballotCounter: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fbascp",
			Name:        "ballot_counter",
			Help:        "Current ballot counter (N) for the node's live slot.",
			ConstLabels: prometheus.Labels{"node": nodeID},
		}),
		confirmedRange: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fbascp",
			Name:      "confirmed_prepared_bound",
			Help:      "Confirmed-prepared bound (cn or hn) for the node's live slot.",
		}, []string{"node", "bound"}),
	}

	for _, c := range []prometheus.Collector{
		s.messagesReceived, s.messagesSent, s.phase, s.ballotCounter, s.confirmedRange,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusSink) MessageReceived(phase consensus.Phase) {
	s.messagesReceived.WithLabelValues(s.nodeID, phase.String()).Inc()
}

func (s *PrometheusSink) MessageSent(phase consensus.Phase) {
	s.messagesSent.WithLabelValues(s.nodeID, phase.String()).Inc()
}

func (s *PrometheusSink) Observe(m consensus.SlotMetrics) {
	for _, p := range []consensus.Phase{
		consensus.PhaseNominate, consensus.PhaseNominatePrepare,
		consensus.PhasePrepare, consensus.PhaseCommit, consensus.PhaseExternalize,
	} {
		v := 0.0
		if p == m.Phase {
			v = 1.0
		}
		s.phase.WithLabelValues(s.nodeID, p.String()).Set(v)
	}
	s.ballotCounter.Set(float64(m.BallotCounter))
	s.confirmedRange.WithLabelValues(s.nodeID, "cn").Set(float64(m.CN))
	s.confirmedRange.WithLabelValues(s.nodeID, "hn").Set(float64(m.HN))
}

package consensus

import (
	"encoding/json"
	"fmt"
)

// Codec is the wire-format boundary for Msg values (§6). The engine itself
// never serializes anything; transports (see package network) call Codec to
// turn a Msg into bytes for a peer and back, the same way the teacher keeps
// its own encode/decode helpers (util.EncodeOperation / DecodeOperation)
// outside the consensus state machine proper.
type Codec[V Value] interface {
	Encode(m *Msg[V]) ([]byte, error)
	Decode(data []byte) (*Msg[V], error)
}

// JSONCodec implements Codec using a tagged-union JSON envelope, mirroring
// the teacher's DecodedOperation{T, O} pattern: Topic is a closed sum type
// within this package, so rather than a reflect-based type registry (as the
// teacher uses for its open-ended Operation interface) the topic kind is
// just a short string tag switched over directly.
//
// NewValue must construct a zero V that json.Unmarshal can populate; callers
// typically pass a function returning a pointer to their concrete value
// type, e.g. func() consensus.Value { return &MyValue{} }.
type JSONCodec[V Value] struct {
	NewValue func() V
}

type wireMsg struct {
	SenderID NodeID          `json:"sender_id"`
	SenderQ  QuorumSet       `json:"sender_q"`
	Slot     SlotIndex       `json:"slot"`
	Kind     string          `json:"kind"`
	Topic    json.RawMessage `json:"topic"`
}

type wireNominate[V Value] struct {
	X []V `json:"x"`
	Y []V `json:"y"`
}

type wireNominatePrepare[V Value] struct {
	NominateX    []V `json:"nominate_x"`
	NominateY    []V `json:"nominate_y"`
	B, P, PPrime Ballot[V]
	CN, HN       uint32
}

type wirePrepare[V Value] struct {
	B, P, PPrime Ballot[V]
	CN, HN       uint32
}

type wireCommit[V Value] struct {
	B          Ballot[V]
	PN, CN, HN uint32
}

type wireExternalize[V Value] struct {
	C  Ballot[V]
	HN uint32
}

func (c JSONCodec[V]) Encode(m *Msg[V]) ([]byte, error) {
	var kind string
	var topicPayload any

	switch t := m.Topic.(type) {
	case NominateTopic[V]:
		kind = "nominate"
		topicPayload = wireNominate[V]{X: t.X.Values(), Y: t.Y.Values()}
	case NominatePrepareTopic[V]:
		kind = "nominate_prepare"
		topicPayload = wireNominatePrepare[V]{
			NominateX: t.Nominate.X.Values(), NominateY: t.Nominate.Y.Values(),
			B: t.B, P: t.P, PPrime: t.PPrime, CN: t.CN, HN: t.HN,
		}
	case PrepareTopic[V]:
		kind = "prepare"
		topicPayload = wirePrepare[V]{B: t.B, P: t.P, PPrime: t.PPrime, CN: t.CN, HN: t.HN}
	case CommitTopic[V]:
		kind = "commit"
		topicPayload = wireCommit[V]{B: t.B, PN: t.PN, CN: t.CN, HN: t.HN}
	case ExternalizeTopic[V]:
		kind = "externalize"
		topicPayload = wireExternalize[V]{C: t.C, HN: t.HN}
	default:
		return nil, fmt.Errorf("consensus: unknown topic type %T", m.Topic)
	}

	rawTopic, err := json.Marshal(topicPayload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMsg{
		SenderID: m.SenderID,
		SenderQ:  m.SenderQ,
		Slot:     m.Slot,
		Kind:     kind,
		Topic:    rawTopic,
	})
}

func (c JSONCodec[V]) Decode(data []byte) (*Msg[V], error) {
	var w wireMsg
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	var topic Topic[V]
	switch w.Kind {
	case "nominate":
		var p wireNominate[V]
		if err := json.Unmarshal(w.Topic, &p); err != nil {
			return nil, err
		}
		topic = NominateTopic[V]{X: NewValueSet(p.X...), Y: NewValueSet(p.Y...)}
	case "nominate_prepare":
		var p wireNominatePrepare[V]
		if err := json.Unmarshal(w.Topic, &p); err != nil {
			return nil, err
		}
		topic = NominatePrepareTopic[V]{
			Nominate: NominateTopic[V]{X: NewValueSet(p.NominateX...), Y: NewValueSet(p.NominateY...)},
			B:        p.B, P: p.P, PPrime: p.PPrime, CN: p.CN, HN: p.HN,
		}
	case "prepare":
		var p wirePrepare[V]
		if err := json.Unmarshal(w.Topic, &p); err != nil {
			return nil, err
		}
		topic = PrepareTopic[V]{B: p.B, P: p.P, PPrime: p.PPrime, CN: p.CN, HN: p.HN}
	case "commit":
		var p wireCommit[V]
		if err := json.Unmarshal(w.Topic, &p); err != nil {
			return nil, err
		}
		topic = CommitTopic[V]{B: p.B, PN: p.PN, CN: p.CN, HN: p.HN}
	case "externalize":
		var p wireExternalize[V]
		if err := json.Unmarshal(w.Topic, &p); err != nil {
			return nil, err
		}
		topic = ExternalizeTopic[V]{C: p.C, HN: p.HN}
	default:
		return nil, fmt.Errorf("consensus: unknown wire topic kind %q", w.Kind)
	}

	return &Msg[V]{SenderID: w.SenderID, SenderQ: w.SenderQ, Slot: w.Slot, Topic: topic}, nil
}

// EncodeThenDecode round-trips a message through the codec, used by tests in
// the same spirit as the teacher's EncodeThenDecodeMessage/EncodeThenDecodeOperation
// helpers (silberman-coinkit/util/operation.go, network/node_test.go).
func EncodeThenDecode[V Value](c Codec[V], m *Msg[V]) (*Msg[V], error) {
	data, err := c.Encode(m)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}

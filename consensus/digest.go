package consensus

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Digest is a 256-bit collision-resistant fingerprint of a Msg, used by Node
// to deduplicate messages it has already processed (§4.5, LAST_SEEN_HISTORY
// cache) without re-running the full federated-voting state machine.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// DigestMsg hashes the sender, slot, and topic contents of a message with
// SHA3-256, the same hash family the teacher's key pair machinery uses to
// derive signing entropy (util.KeyPair.NewKeyPairFromSecretPhrase).
func DigestMsg[V Value](m *Msg[V]) Digest {
	h := sha3.New256()
	h.Write([]byte(m.SenderID))

	var slotBuf [8]byte
	binary.BigEndian.PutUint64(slotBuf[:], uint64(m.Slot))
	h.Write(slotBuf[:])

	writeTopic(h, m.Topic)

	var out Digest
	h.Sum(out[:0])
	return out
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

func writeTopic[V Value](h byteWriter, t Topic[V]) {
	writeU32 := func(n uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], n)
		h.Write(b[:])
	}
	writeBallot := func(b Ballot[V]) {
		writeU32(b.N)
		for _, v := range b.X {
			h.Write(v.Bytes())
		}
	}
	writeValues := func(vs *ValueSet[V]) {
		for _, v := range vs.Values() {
			h.Write(v.Bytes())
		}
	}

	switch v := t.(type) {
	case NominateTopic[V]:
		h.Write([]byte("N"))
		writeValues(v.X)
		writeValues(v.Y)
	case NominatePrepareTopic[V]:
		h.Write([]byte("NP"))
		writeValues(v.Nominate.X)
		writeValues(v.Nominate.Y)
		writeBallot(v.B)
		writeBallot(v.P)
		writeBallot(v.PPrime)
		writeU32(v.CN)
		writeU32(v.HN)
	case PrepareTopic[V]:
		h.Write([]byte("P"))
		writeBallot(v.B)
		writeBallot(v.P)
		writeBallot(v.PPrime)
		writeU32(v.CN)
		writeU32(v.HN)
	case CommitTopic[V]:
		h.Write([]byte("C"))
		writeBallot(v.B)
		writeU32(v.PN)
		writeU32(v.CN)
		writeU32(v.HN)
	case ExternalizeTopic[V]:
		h.Write([]byte("X"))
		writeBallot(v.C)
		writeU32(v.HN)
	}
}

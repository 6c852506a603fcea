// Package identity provides the node-identity and message-signing layer
// sitting above the consensus engine: ed25519 keys, adapted from the
// teacher's util.KeyPair, generalized so a NodeID can be derived directly
// from a public key rather than assigned out of band.
package identity

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/rjwalters/fbascp/consensus"
)

// KeyPair is an ed25519 identity. Like the teacher's version, the private
// key never leaves the struct except through Sign.
type KeyPair struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// NewKeyPair generates a key pair at random.
func NewKeyPair() *KeyPair {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return &KeyPair{publicKey: pub, privateKey: priv}
}

// NewKeyPairFromSecretPhrase derives a deterministic key pair from a
// passphrase, for reproducible test/demo node identities (cmd/fedvoted uses
// this so a cluster's NodeIDs are stable across runs). ed25519 needs 32
// bytes of entropy; the phrase is stretched into that via SHA3-512, same as
// the teacher's NewKeyPairFromSecretPhrase.
func NewKeyPairFromSecretPhrase(phrase string) *KeyPair {
	h := sha3.New512()
	h.Write([]byte(phrase))
	checksum := h.Sum(nil)
	pub, priv, err := ed25519.GenerateKey(bytes.NewReader(checksum))
	if err != nil {
		panic(err)
	}
	return &KeyPair{publicKey: pub, privateKey: priv}
}

// PublicKey returns a transportable base64 form of the public key.
func (kp *KeyPair) PublicKey() string {
	return base64.RawStdEncoding.EncodeToString(kp.publicKey)
}

// NodeID derives the consensus.NodeID this key pair identifies itself as:
// simply its public key, so a quorum set referencing a peer by NodeID is
// referencing that peer's verification key directly.
func (kp *KeyPair) NodeID() consensus.NodeID {
	return consensus.NodeID(kp.PublicKey())
}

// Sign signs an arbitrary byte string (typically a Msg digest), returning
// the signature as base64.
func (kp *KeyPair) Sign(message []byte) string {
	signature, err := kp.privateKey.Sign(rand.Reader, message, crypto.Hash(0))
	if err != nil {
		panic(err)
	}
	return base64.RawStdEncoding.EncodeToString(signature)
}

// Verify checks a base64 signature against a base64 public key and a
// message, the external/stateless counterpart to Sign.
func Verify(publicKey string, message []byte, signature string) bool {
	pub, err := base64.RawStdEncoding.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.RawStdEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}

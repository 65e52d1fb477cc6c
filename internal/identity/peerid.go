// Package identity derives a node's long-lived PeerID and signing keypair:
// variable-length identity bytes formed as a multihash of an Ed25519
// public key, rather than a fixed-width network address.
package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// multihash code for sha2-256, as used by libp2p PeerIDs.
const sha2_256Code = 0x12

// PeerID is a variable-length identity derived from a public key: a
// multihash (code || length || digest) of the Ed25519 public key bytes.
type PeerID []byte

// PeerIDFromPublicKey derives a PeerID by SHA-256 hashing the raw public key
// and wrapping it in a minimal multihash envelope.
func PeerIDFromPublicKey(pub ed25519.PublicKey) PeerID {
	digest := cryptocore.SHA256(pub)
	out := make(PeerID, 0, 2+len(digest))
	out = append(out, sha2_256Code, byte(len(digest)))
	out = append(out, digest[:]...)
	return out
}

// String returns the hex-encoded PeerID.
func (p PeerID) String() string {
	return hex.EncodeToString(p)
}

// Equal reports whether two PeerIDs are byte-identical.
func (p PeerID) Equal(other PeerID) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// PeerIDFromHex parses a hex-encoded PeerID.
func PeerIDFromHex(s string) (PeerID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid hex peer ID: %w", err)
	}
	if len(b) < 2 {
		return nil, errors.New("identity: peer ID too short")
	}
	return PeerID(b), nil
}

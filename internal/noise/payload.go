package noise

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// staticKeySigPrefix is the domain-separation prefix the identity key
// signs over the Noise static public key.
const staticKeySigPrefix = "noise-libp2p-static-key:"

// ErrPeerMismatch is returned when a verified handshake payload's identity
// does not match the peer the caller expected.
type ErrPeerMismatch struct {
	Expected, Actual identity.PeerID
}

func (e *ErrPeerMismatch) Error() string {
	return fmt.Sprintf("noise: peer mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// ErrBadPayloadSignature is returned when a handshake payload's identity
// signature fails to verify against its claimed static key.
var ErrBadPayloadSignature = errors.New("noise: handshake payload signature invalid")

// HandshakePayload is the length-delimited, field-tagged handshake
// payload exchanged inside messages 2 and 3.
type HandshakePayload struct {
	IdentityKey ed25519.PublicKey
	IdentitySig []byte
	Data        []byte
}

// EncodeHandshakePayload serializes p using protobuf wire encoding:
// field 1 identityKey, field 2 identitySig, field 3 optional data.
func EncodeHandshakePayload(p HandshakePayload) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.IdentityKey)
	buf = protowire.AppendTag(buf, 2, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.IdentitySig)
	if len(p.Data) > 0 {
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendBytes(buf, p.Data)
	}
	return buf
}

// DecodeHandshakePayload parses bytes produced by EncodeHandshakePayload.
func DecodeHandshakePayload(buf []byte) (HandshakePayload, error) {
	var p HandshakePayload
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return p, errors.New("noise: bad handshake payload tag")
		}
		buf = buf[n:]
		if typ != protowire.BytesType {
			return p, errors.New("noise: unexpected handshake payload wire type")
		}
		val, n := protowire.ConsumeBytes(buf)
		if n < 0 {
			return p, errors.New("noise: bad handshake payload field")
		}
		buf = buf[n:]
		switch num {
		case 1:
			p.IdentityKey = ed25519.PublicKey(append([]byte(nil), val...))
		case 2:
			p.IdentitySig = append([]byte(nil), val...)
		case 3:
			p.Data = append([]byte(nil), val...)
		}
	}
	return p, nil
}

// SignStaticKey signs noiseStaticPublicKey under kp's identity key, domain
// separated by staticKeySigPrefix.
func SignStaticKey(kp *identity.KeyPair, noiseStaticPublicKey [32]byte) []byte {
	msg := append([]byte(staticKeySigPrefix), noiseStaticPublicKey[:]...)
	return kp.Sign(msg)
}

// VerifyPayload verifies payload's identitySig against its claimed
// identityKey and noiseStaticPublicKey, recovers the remote PeerID, and
// (if expectedPeer is non-nil) checks it matches.
func VerifyPayload(payload HandshakePayload, noiseStaticPublicKey [32]byte, expectedPeer identity.PeerID) (identity.PeerID, error) {
	msg := append([]byte(staticKeySigPrefix), noiseStaticPublicKey[:]...)
	if !identity.Verify(payload.IdentityKey, msg, payload.IdentitySig) {
		return nil, ErrBadPayloadSignature
	}
	actual := identity.PeerIDFromPublicKey(payload.IdentityKey)
	if expectedPeer != nil && !actual.Equal(expectedPeer) {
		return nil, &ErrPeerMismatch{Expected: expectedPeer, Actual: actual}
	}
	return actual, nil
}

// Package envelope implements the signed container that binds
// (domain, codec, payload) for domain-separated verification. It is used
// both to seal BeaconPeerRecords for Tier-3 beacons and, in principle,
// any other domain-separated signed record.
package envelope

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// ErrBadSignature is returned when an envelope's signature fails
// verification under the stated domain.
var ErrBadSignature = errors.New("envelope: signature verification failed")

// Codec identifies the payload's wire encoding, e.g. the BeaconPeerRecord
// multihash-style codec 0x03B0.
type Codec uint64

// Envelope is a signed container binding (domain, codec, payload) with an
// Ed25519 signature, verifiable standalone without any other context.
type Envelope struct {
	PublicKey ed25519.PublicKey
	Domain    string
	Codec     Codec
	Payload   []byte
	Signature []byte
}

// signedBytes reproduces the exact byte sequence that was signed:
// domain-length-prefixed domain string, then codec varint, then
// payload-length varint and payload.
// This mirrors libp2p's record envelope signing convention (domain
// separation string + payload), generalized here to also commit to the
// codec so envelopes cannot be replayed across codecs.
func signedBytes(domain string, codec Codec, payload []byte) []byte {
	buf := make([]byte, 0, len(domain)+len(payload)+16)
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(domain)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, domain...)
	n = binary.PutUvarint(lenBuf[:], uint64(codec))
	buf = append(buf, lenBuf[:n]...)
	n = binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, payload...)
	return buf
}

// Seal signs payload under domain and codec using kp's identity key,
// producing a standalone-verifiable Envelope.
func Seal(kp *identity.KeyPair, domain string, codec Codec, payload []byte) *Envelope {
	msg := signedBytes(domain, codec, payload)
	return &Envelope{
		PublicKey: kp.PublicKey,
		Domain:    domain,
		Codec:     codec,
		Payload:   payload,
		Signature: kp.Sign(msg),
	}
}

// Open verifies the envelope's signature under expectedDomain and returns
// the payload and signer public key. It fails closed: any domain mismatch
// or bad signature is an error, never a partial success.
func (e *Envelope) Open(expectedDomain string) ([]byte, ed25519.PublicKey, error) {
	if e.Domain != expectedDomain {
		return nil, nil, fmt.Errorf("envelope: domain mismatch: got %q want %q", e.Domain, expectedDomain)
	}
	msg := signedBytes(e.Domain, e.Codec, e.Payload)
	if !identity.Verify(e.PublicKey, msg, e.Signature) {
		return nil, nil, ErrBadSignature
	}
	return e.Payload, e.PublicKey, nil
}

// Marshal serializes the envelope to bytes:
// varint(len(pubkey)) || pubkey || varint(len(domain)) || domain ||
// varint(codec) || varint(len(payload)) || payload ||
// varint(len(sig)) || sig.
func (e *Envelope) Marshal() []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	buf := make([]byte, 0, len(e.PublicKey)+len(e.Domain)+len(e.Payload)+len(e.Signature)+32)

	n := binary.PutUvarint(lenBuf[:], uint64(len(e.PublicKey)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, e.PublicKey...)

	n = binary.PutUvarint(lenBuf[:], uint64(len(e.Domain)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, e.Domain...)

	n = binary.PutUvarint(lenBuf[:], uint64(e.Codec))
	buf = append(buf, lenBuf[:n]...)

	n = binary.PutUvarint(lenBuf[:], uint64(len(e.Payload)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, e.Payload...)

	n = binary.PutUvarint(lenBuf[:], uint64(len(e.Signature)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, e.Signature...)

	return buf
}

// Unmarshal parses an envelope previously produced by Marshal.
func Unmarshal(data []byte) (*Envelope, error) {
	r := data
	pub, rest, err := readVarBytes(r)
	if err != nil {
		return nil, fmt.Errorf("envelope: public key: %w", err)
	}
	domainBytes, rest, err := readVarBytes(rest)
	if err != nil {
		return nil, fmt.Errorf("envelope: domain: %w", err)
	}
	codec, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, errors.New("envelope: bad codec varint")
	}
	rest = rest[n:]
	payload, rest, err := readVarBytes(rest)
	if err != nil {
		return nil, fmt.Errorf("envelope: payload: %w", err)
	}
	sig, rest, err := readVarBytes(rest)
	if err != nil {
		return nil, fmt.Errorf("envelope: signature: %w", err)
	}
	if len(rest) != 0 {
		return nil, errors.New("envelope: trailing bytes after envelope")
	}
	return &Envelope{
		PublicKey: ed25519.PublicKey(pub),
		Domain:    string(domainBytes),
		Codec:     Codec(codec),
		Payload:   payload,
		Signature: sig,
	}, nil
}

func readVarBytes(buf []byte) (value, rest []byte, err error) {
	n, consumed := binary.Uvarint(buf)
	if consumed <= 0 {
		return nil, nil, errors.New("bad length varint")
	}
	buf = buf[consumed:]
	if uint64(len(buf)) < n {
		return nil, nil, errors.New("truncated field")
	}
	return buf[:n], buf[n:], nil
}

package noise

import (
	"errors"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// ErrHandshakeComplete reports a handshake that has already finished. The
// HandshakeState message methods do not return it: a call after completion
// fails with their own out-of-step error instead.
var ErrHandshakeComplete = errors.New("noise: handshake already complete")

// ErrHandshakeNotComplete is returned by Split before the handshake has
// produced transport keys.
var ErrHandshakeNotComplete = errors.New("noise: handshake not complete")

// step tracks which of the three XX messages comes next.
type step int

const (
	stepMessage1 step = iota
	stepMessage2
	stepMessage3
	stepDone
)

// HandshakeState drives one side of a Noise_XX_25519_ChaChaPoly_SHA256
// handshake.
type HandshakeState struct {
	ss *symmetricState

	localStaticPriv, localStaticPub       [32]byte
	localEphemeralPriv, localEphemeralPub [32]byte

	remoteStaticPub    [32]byte
	haveRemoteStatic   bool
	remoteEphemeralPub [32]byte

	identityKeyPair *identity.KeyPair
	expectedPeer    identity.PeerID
	isInitiator     bool
	step            step

	RemotePeerID identity.PeerID
}

// NewHandshakeState starts a handshake for one side of the connection.
// localStaticPriv is this node's X25519 static private key for this
// session; identityKeyPair signs it inside the handshake payload.
// expectedPeer, if non-nil, is checked against the verified remote
// identity.
func NewHandshakeState(isInitiator bool, localStaticPriv [32]byte, identityKeyPair *identity.KeyPair, expectedPeer identity.PeerID) (*HandshakeState, error) {
	staticPub, err := cryptocore.PublicFromPrivate(localStaticPriv)
	if err != nil {
		return nil, err
	}
	ephPriv, ephPub, err := cryptocore.GenerateX25519()
	if err != nil {
		return nil, err
	}
	return &HandshakeState{
		ss:                 newSymmetricState(),
		localStaticPriv:    localStaticPriv,
		localStaticPub:     staticPub,
		localEphemeralPriv: ephPriv,
		localEphemeralPub:  ephPub,
		identityKeyPair:    identityKeyPair,
		expectedPeer:       expectedPeer,
		isInitiator:        isInitiator,
		step:               stepMessage1,
	}, nil
}

func (h *HandshakeState) buildPayload() ([]byte, error) {
	sig := SignStaticKey(h.identityKeyPair, h.localStaticPub)
	payload := HandshakePayload{
		IdentityKey: h.identityKeyPair.PublicKey,
		IdentitySig: sig,
	}
	return EncodeHandshakePayload(payload), nil
}

// WriteMessage1 produces message 1 (initiator only): `-> e`.
func (h *HandshakeState) WriteMessage1() ([]byte, error) {
	if !h.isInitiator || h.step != stepMessage1 {
		return nil, errors.New("noise: WriteMessage1 only valid for initiator at step 1")
	}
	h.ss.mixHash(h.localEphemeralPub[:])
	// required for wire compatibility: mixes an empty ciphertext into h.
	if _, err := h.ss.encryptAndHash(nil); err != nil {
		return nil, err
	}
	h.step = stepMessage2
	out := make([]byte, 32)
	copy(out, h.localEphemeralPub[:])
	return out, nil
}

// ReadMessage1 consumes message 1 (responder only).
func (h *HandshakeState) ReadMessage1(msg []byte) error {
	if h.isInitiator || h.step != stepMessage1 {
		return errors.New("noise: ReadMessage1 only valid for responder at step 1")
	}
	if len(msg) != 32 {
		return errors.New("noise: malformed message 1")
	}
	copy(h.remoteEphemeralPub[:], msg)
	if cryptocore.IsSmallOrderPoint(h.remoteEphemeralPub) {
		return cryptocore.ErrInvalidKey
	}
	h.ss.mixHash(h.remoteEphemeralPub[:])
	if _, err := h.ss.decryptAndHash(nil); err != nil {
		return err
	}
	h.step = stepMessage2
	return nil
}

// WriteMessage2 produces message 2 (responder only):
// `<- e, ee, s, es`.
func (h *HandshakeState) WriteMessage2() ([]byte, error) {
	if h.isInitiator || h.step != stepMessage2 {
		return nil, errors.New("noise: WriteMessage2 only valid for responder at step 2")
	}
	h.ss.mixHash(h.localEphemeralPub[:])

	eeShared, err := cryptocore.X25519(h.localEphemeralPriv, h.remoteEphemeralPub)
	if err != nil {
		return nil, err
	}
	if err := h.ss.mixKey(eeShared[:]); err != nil {
		return nil, err
	}

	ct1, err := h.ss.encryptAndHash(h.localStaticPub[:])
	if err != nil {
		return nil, err
	}

	esShared, err := cryptocore.X25519(h.localStaticPriv, h.remoteEphemeralPub)
	if err != nil {
		return nil, err
	}
	if err := h.ss.mixKey(esShared[:]); err != nil {
		return nil, err
	}

	payload, err := h.buildPayload()
	if err != nil {
		return nil, err
	}
	ct2, err := h.ss.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}

	h.step = stepMessage3
	out := make([]byte, 0, 32+len(ct1)+len(ct2))
	out = append(out, h.localEphemeralPub[:]...)
	out = append(out, ct1...)
	out = append(out, ct2...)
	return out, nil
}

// ReadMessage2 consumes message 2 (initiator only).
func (h *HandshakeState) ReadMessage2(msg []byte) error {
	if !h.isInitiator || h.step != stepMessage2 {
		return errors.New("noise: ReadMessage2 only valid for initiator at step 2")
	}
	if len(msg) < 32 {
		return errors.New("noise: malformed message 2")
	}
	copy(h.remoteEphemeralPub[:], msg[:32])
	if cryptocore.IsSmallOrderPoint(h.remoteEphemeralPub) {
		return cryptocore.ErrInvalidKey
	}
	rest := msg[32:]
	h.ss.mixHash(h.remoteEphemeralPub[:])

	eeShared, err := cryptocore.X25519(h.localEphemeralPriv, h.remoteEphemeralPub)
	if err != nil {
		return err
	}
	if err := h.ss.mixKey(eeShared[:]); err != nil {
		return err
	}

	// ct1 length: 32 cleartext static if no cipher key yet... but a cipher
	// key was just set by mixKey above, so ct1 is AEAD-sized (32+tag).
	ct1Len := 32 + cryptocore.AEADTagSize
	if len(rest) < ct1Len {
		return errors.New("noise: truncated message 2")
	}
	staticPlain, err := h.ss.decryptAndHash(rest[:ct1Len])
	if err != nil {
		return err
	}
	copy(h.remoteStaticPub[:], staticPlain)
	if cryptocore.IsSmallOrderPoint(h.remoteStaticPub) {
		return cryptocore.ErrInvalidKey
	}
	h.haveRemoteStatic = true
	rest = rest[ct1Len:]

	esShared, err := cryptocore.X25519(h.localEphemeralPriv, h.remoteStaticPub)
	if err != nil {
		return err
	}
	if err := h.ss.mixKey(esShared[:]); err != nil {
		return err
	}

	payloadPlain, err := h.ss.decryptAndHash(rest)
	if err != nil {
		return err
	}
	payload, err := DecodeHandshakePayload(payloadPlain)
	if err != nil {
		return err
	}
	peerID, err := VerifyPayload(payload, h.remoteStaticPub, h.expectedPeer)
	if err != nil {
		return err
	}
	h.RemotePeerID = peerID

	h.step = stepMessage3
	return nil
}

// WriteMessage3 produces message 3 (initiator only): `-> s, se`.
func (h *HandshakeState) WriteMessage3() ([]byte, error) {
	if !h.isInitiator || h.step != stepMessage3 {
		return nil, errors.New("noise: WriteMessage3 only valid for initiator at step 3")
	}
	ct1, err := h.ss.encryptAndHash(h.localStaticPub[:])
	if err != nil {
		return nil, err
	}

	seShared, err := cryptocore.X25519(h.localStaticPriv, h.remoteEphemeralPub)
	if err != nil {
		return nil, err
	}
	if err := h.ss.mixKey(seShared[:]); err != nil {
		return nil, err
	}

	payload, err := h.buildPayload()
	if err != nil {
		return nil, err
	}
	ct2, err := h.ss.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}

	h.step = stepDone
	out := make([]byte, 0, len(ct1)+len(ct2))
	out = append(out, ct1...)
	out = append(out, ct2...)
	return out, nil
}

// ReadMessage3 consumes message 3 (responder only).
func (h *HandshakeState) ReadMessage3(msg []byte) error {
	if h.isInitiator || h.step != stepMessage3 {
		return errors.New("noise: ReadMessage3 only valid for responder at step 3")
	}
	ct1Len := 32 + cryptocore.AEADTagSize
	if len(msg) < ct1Len {
		return errors.New("noise: truncated message 3")
	}
	staticPlain, err := h.ss.decryptAndHash(msg[:ct1Len])
	if err != nil {
		return err
	}
	copy(h.remoteStaticPub[:], staticPlain)
	if cryptocore.IsSmallOrderPoint(h.remoteStaticPub) {
		return cryptocore.ErrInvalidKey
	}
	h.haveRemoteStatic = true
	rest := msg[ct1Len:]

	seShared, err := cryptocore.X25519(h.localEphemeralPriv, h.remoteStaticPub)
	if err != nil {
		return err
	}
	if err := h.ss.mixKey(seShared[:]); err != nil {
		return err
	}

	payloadPlain, err := h.ss.decryptAndHash(rest)
	if err != nil {
		return err
	}
	payload, err := DecodeHandshakePayload(payloadPlain)
	if err != nil {
		return err
	}
	peerID, err := VerifyPayload(payload, h.remoteStaticPub, h.expectedPeer)
	if err != nil {
		return err
	}
	h.RemotePeerID = peerID

	h.step = stepDone
	return nil
}

// Split finalizes the handshake, returning (send, recv) transport cipher
// keys. Initiator takes (k1, k2); responder takes (k2, k1).
func (h *HandshakeState) Split() (send, recv [cryptocore.AEADKeySize]byte, err error) {
	if h.step != stepDone {
		return send, recv, ErrHandshakeNotComplete
	}
	k1, k2, err := h.ss.split()
	if err != nil {
		return send, recv, err
	}
	if h.isInitiator {
		return k1, k2, nil
	}
	return k2, k1, nil
}

// Package noise implements the Noise_XX_25519_ChaChaPoly_SHA256 handshake
// pattern and its transport-mode secured connection: a full three-message
// XX pattern with libp2p-style identity-signed handshake payloads.
package noise

import (
	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// ProtocolName is the Noise protocol label identifying this handshake's
// pattern and primitive suite.
const ProtocolName = "Noise_XX_25519_ChaChaPoly_SHA256"

// cipherState holds the AEAD key currently negotiated by a symmetricState,
// or none before the first mixKey.
type cipherState struct {
	hasKey bool
	key    [cryptocore.AEADKeySize]byte
	nonce  uint64
}

func (c *cipherState) setKey(key [cryptocore.AEADKeySize]byte) {
	c.hasKey = true
	c.key = key
	c.nonce = 0
}

func (c *cipherState) encryptWithAD(ad, plaintext []byte) ([]byte, error) {
	var nonceBuf [12]byte
	putNonce(&nonceBuf, c.nonce)
	ct, err := cryptocore.Seal(c.key, nonceBuf, ad, plaintext)
	if err != nil {
		return nil, err
	}
	c.nonce++
	return ct, nil
}

func (c *cipherState) decryptWithAD(ad, ciphertext []byte) ([]byte, error) {
	var nonceBuf [12]byte
	putNonce(&nonceBuf, c.nonce)
	pt, err := cryptocore.Open(c.key, nonceBuf, ad, ciphertext)
	if err != nil {
		return nil, err
	}
	c.nonce++
	return pt, nil
}

func putNonce(buf *[12]byte, n uint64) {
	for i := 0; i < 8; i++ {
		buf[4+i] = byte(n >> (8 * i))
	}
}

// symmetricState tracks the chaining key, running handshake hash, and
// current cipher state across a Noise XX handshake.
type symmetricState struct {
	ck     [32]byte
	h      [32]byte
	cipher cipherState
}

// newSymmetricState initializes h from protocolName (padded with zeros to
// 32 bytes, or SHA256'd if longer), sets ck = h, and mixes in an empty
// prologue.
func newSymmetricState() *symmetricState {
	s := &symmetricState{}
	label := []byte(ProtocolName)
	if len(label) <= 32 {
		copy(s.h[:], label)
	} else {
		s.h = cryptocore.SHA256(label)
	}
	s.ck = s.h
	s.mixHash(nil)
	return s
}

// mixHash updates h = SHA256(h || d).
func (s *symmetricState) mixHash(d []byte) {
	s.h = cryptocore.SHA256(s.h[:], d)
}

// mixKey derives a new chaining key and cipher key from ikm via
// HKDF-SHA256(salt=ck, info=empty, len=64): first 32 bytes -> new ck, last
// 32 -> new cipher key (with nonce reset).
func (s *symmetricState) mixKey(ikm []byte) error {
	out, err := cryptocore.HKDFSHA256(s.ck[:], ikm, nil, 64)
	if err != nil {
		return err
	}
	copy(s.ck[:], out[:32])
	var key [cryptocore.AEADKeySize]byte
	copy(key[:], out[32:64])
	s.cipher.setKey(key)
	return nil
}

// encryptAndHash encrypts p (if a cipher key is set) or passes it through,
// mixing the output into h either way.
func (s *symmetricState) encryptAndHash(p []byte) ([]byte, error) {
	if !s.cipher.hasKey {
		s.mixHash(p)
		return p, nil
	}
	c, err := s.cipher.encryptWithAD(s.h[:], p)
	if err != nil {
		return nil, err
	}
	s.mixHash(c)
	return c, nil
}

// decryptAndHash is encryptAndHash's inverse.
func (s *symmetricState) decryptAndHash(c []byte) ([]byte, error) {
	if !s.cipher.hasKey {
		s.mixHash(c)
		return c, nil
	}
	p, err := s.cipher.decryptWithAD(s.h[:], c)
	if err != nil {
		return nil, err
	}
	s.mixHash(c)
	return p, nil
}

// split derives two transport cipher keys from the final chaining key via
// HKDF-SHA256(salt=ck, ikm=empty, len=64): first 32 -> k1, last 32 -> k2.
func (s *symmetricState) split() (k1, k2 [cryptocore.AEADKeySize]byte, err error) {
	out, err := cryptocore.HKDFSHA256(s.ck[:], nil, nil, 64)
	if err != nil {
		return k1, k2, err
	}
	copy(k1[:], out[:32])
	copy(k2[:], out[32:64])
	return k1, k2, nil
}

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// KeyPair holds a node's long-lived Ed25519 identity key (signing) and the
// PeerID derived from it. The Noise handshake layer holds a separate
// X25519 static key, signed under this identity key as part of its
// handshake payload: signing and key agreement use distinct curves, the
// split libp2p's Noise transport uses.
type KeyPair struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	PeerID     PeerID
}

// Generate creates a fresh random identity keypair.
func Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		PeerID:     PeerIDFromPublicKey(pub),
	}, nil
}

// FromSeed recreates a keypair from a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		PeerID:     PeerIDFromPublicKey(pub),
	}, nil
}

// LoadOrGenerate loads a keypair seed from path, or generates and persists a
// new one.
func LoadOrGenerate(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) == ed25519.SeedSize {
		return FromSeed(data)
	}
	kp, err := Generate()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("identity: create directory: %w", err)
	}
	seed := kp.PrivateKey.Seed()
	if err := os.WriteFile(path, seed, 0600); err != nil {
		return nil, fmt.Errorf("identity: save identity: %w", err)
	}
	return kp, nil
}

// Sign signs msg with the identity private key.
func (kp *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, msg)
}

// Verify checks a signature made by the holder of pub.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(pub, msg, sig)
}

// String returns a human-readable identity summary.
func (kp *KeyPair) String() string {
	return fmt.Sprintf("KeyPair{peer=%s}", kp.PeerID)
}

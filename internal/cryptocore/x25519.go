package cryptocore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// ErrInvalidKey is returned when a remote X25519 public key is a known
// small-order point, or when a computed shared secret is all-zero.
var ErrInvalidKey = errors.New("cryptocore: invalid X25519 key")

// smallOrderPointsHex holds the eight known X25519 small-order public keys
// (points of order 1, 2, 4, 8, and two twist-insecure counterparts), as
// 32-byte little-endian hex, kept unclamped to match the wire
// representation — see DESIGN.md on comparing unclamped wire bytes. The two
// twist forms are the order-8 points plus p (2^255 - 19), with bit 255 set.
var smallOrderPointsHex = []string{
	"0000000000000000000000000000000000000000000000000000000000000000", // order 1 (zero)
	"0100000000000000000000000000000000000000000000000000000000000000", // order 1
	"e0eb7a7c3b41b8ae1656e3faf19fc46ada098deb9c32b1fd866205165f49b800",   // order 8
	"5f9c95bca3508c24b1d0b1559c83ef5b04445cc4581c8e86d8224eddd09f1157",   // order 8
	"ecffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff7f",  // order 4
	"edffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff7f",  // order 2
	"4c9c95bca3508c24b1d0b1559c83ef5b04445cc4581c8e86d8224eddd09f11d7", // order 8, twist
	"cdeb7a7c3b41b8ae1656e3faf19fc46ada098deb9c32b1fd866205165f49b880",   // order 8, twist
}

// smallOrderPoints is the decoded form of smallOrderPointsHex, built once at
// package init.
var smallOrderPoints = decodeSmallOrderPoints()

func decodeSmallOrderPoints() [][32]byte {
	out := make([][32]byte, len(smallOrderPointsHex))
	for i, s := range smallOrderPointsHex {
		out[i] = hexPoint(s)
	}
	return out
}

func hexPoint(s string) [32]byte {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		panic("cryptocore: malformed small-order constant")
	}
	copy(out[:], b)
	return out
}

// IsSmallOrderPoint reports whether pub is one of the fixed eight
// small-order X25519 public keys: any received public key must be
// rejected if it appears in this set before being used.
func IsSmallOrderPoint(pub [32]byte) bool {
	for _, p := range smallOrderPoints {
		if p == pub {
			return true
		}
	}
	return false
}

// GenerateX25519 creates a clamped Curve25519 private key and its public key.
func GenerateX25519() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, err
	}
	clamp(&priv)
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], p)
	return priv, pub, nil
}

func clamp(k *[32]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

// PublicFromPrivate derives the public key for a clamped private key.
func PublicFromPrivate(priv [32]byte) ([32]byte, error) {
	var pub [32]byte
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], p)
	return pub, nil
}

// X25519 performs Diffie-Hellman key agreement, rejecting small-order remote
// public keys and all-zero shared secrets.
func X25519(priv, remotePub [32]byte) ([32]byte, error) {
	var shared [32]byte
	if IsSmallOrderPoint(remotePub) {
		return shared, ErrInvalidKey
	}
	s, err := curve25519.X25519(priv[:], remotePub[:])
	if err != nil {
		return shared, err
	}
	copy(shared[:], s)
	if shared == ([32]byte{}) {
		return shared, ErrInvalidKey
	}
	return shared, nil
}

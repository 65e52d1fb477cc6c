package cryptocore

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNonceOverflow is returned when a strictly-increasing nonce counter
// would wrap past its maximum value: overflow at u64::MAX is a hard
// error, never a silent wrap.
var ErrNonceOverflow = errors.New("cryptocore: nonce counter overflow")

// AEADKeySize and AEADTagSize mirror chacha20poly1305's constants, named
// here so callers never import the crypto package directly.
const (
	AEADKeySize = chacha20poly1305.KeySize
	AEADTagSize = chacha20poly1305.Overhead
)

// Seal encrypts plaintext under key with a 12-byte nonce and associated data,
// appending the 16-byte Poly1305 tag.
func Seal(key [AEADKeySize]byte, nonce [chacha20poly1305.NonceSize]byte, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, ad), nil
}

// Open decrypts and authenticates ciphertext produced by Seal.
func Open(key [AEADKeySize]byte, nonce [chacha20poly1305.NonceSize]byte, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce[:], ciphertext, ad)
}

// NonceCounter is a strictly-increasing u64 nonce counter, starting at 0, as
// used by Noise transport cipher states. It never wraps silently: once
// u64::MAX has been issued, Next fails forever.
type NonceCounter struct {
	next      uint64
	exhausted bool
}

// Next returns the next nonce value and advances the counter, or
// ErrNonceOverflow once u64::MAX has already been issued.
func (c *NonceCounter) Next() (uint64, error) {
	if c.exhausted {
		return 0, ErrNonceOverflow
	}
	v := c.next
	if v == ^uint64(0) {
		c.exhausted = true
	} else {
		c.next = v + 1
	}
	return v, nil
}

// Peek returns the last value that would be issued next, without advancing.
func (c *NonceCounter) Peek() uint64 {
	return c.next
}

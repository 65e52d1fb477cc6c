package cryptocore

import (
	"golang.org/x/crypto/salsa20/salsa"
)

// This file wraps golang.org/x/crypto/salsa20 to provide the XSalsa20
// keystream used by the private-network protector: HSalsa20(key,
// nonce[0:16]) derives a subkey, then Salsa20 runs with that subkey and a
// block input built from nonce[16:24] || an 8-byte little-endian counter.
// Verified against the libsodium "stream3" known-answer test.

// XSalsa20Cipher is a resumable keystream generator. salsa20.XORKeyStream
// itself is stateless per call (it always starts at counter 0), so this
// type buffers one 64-byte block at a time to support streaming writes
// across multiple XORKeyStream calls, the way a cipher.Stream would.
type XSalsa20Cipher struct {
	subkey   [32]byte
	prefix   [16]byte // nonce[16:24] padded with an 8-byte counter
	counter  uint64
	block    [64]byte
	blockOff int
}

// NewXSalsa20 builds a keystream generator from a 32-byte key and 24-byte
// nonce, matching XSalsa20's HSalsa20-then-Salsa20 construction.
func NewXSalsa20(key [32]byte, nonce [24]byte) *XSalsa20Cipher {
	var hNonce [16]byte
	copy(hNonce[:], nonce[:16])

	var subkey [32]byte
	salsa.HSalsa20(&subkey, &hNonce, &key, &salsa.Sigma)

	c := &XSalsa20Cipher{subkey: subkey, blockOff: SalsaBlockSize}
	copy(c.prefix[:8], nonce[16:24])
	return c
}

func (c *XSalsa20Cipher) nextBlock() {
	var in [16]byte
	copy(in[:8], c.prefix[:8])
	// Salsa20's 16-byte block input is an 8-byte nonce followed by an
	// 8-byte little-endian block counter.
	ctr := c.counter
	for i := 0; i < 8; i++ {
		in[8+i] = byte(ctr)
		ctr >>= 8
	}
	var zero [64]byte
	salsa.XORKeyStream(c.block[:], zero[:], &in, &c.subkey)
	c.counter++
	c.blockOff = 0
}

// XORKeyStream XORs the XSalsa20 keystream into dst, consuming len(src)
// bytes of stream state. dst and src may overlap exactly.
func (c *XSalsa20Cipher) XORKeyStream(dst, src []byte) {
	for i := 0; i < len(src); i++ {
		if c.blockOff == SalsaBlockSize {
			c.nextBlock()
		}
		dst[i] = src[i] ^ c.block[c.blockOff]
		c.blockOff++
	}
}

// Keystream returns n bytes of raw keystream (as if XORed against an
// all-zero source), used for known-answer tests.
func (c *XSalsa20Cipher) Keystream(n int) []byte {
	out := make([]byte, n)
	zero := make([]byte, n)
	c.XORKeyStream(out, zero)
	return out
}

// SalsaBlockSize is the Salsa20 block size in bytes.
const SalsaBlockSize = 64

package beacon

import (
	"bytes"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// TeslaChain implements micro-TESLA delayed key disclosure:
// the sender commits to K[n] = SHA256(seed), derives K[i] = SHA256(K[i+1])
// for i from n-1 down to 0, and uses K[n-epoch] as epoch's signing key —
// disclosing each key only once the next epoch has begun so a receiver can
// verify K[n-epoch+1] hashes forward to K[n-epoch].
type TeslaChain struct {
	keys  []cryptocore.Sha256Digest // keys[i], length n+1
	n     int
	epoch int
}

// NewTeslaChain builds a chain of n+1 keys from seed.
func NewTeslaChain(seed [32]byte, n int) *TeslaChain {
	keys := make([]cryptocore.Sha256Digest, n+1)
	keys[n] = cryptocore.SHA256(seed[:])
	for i := n - 1; i >= 0; i-- {
		keys[i] = cryptocore.SHA256(keys[i+1][:])
	}
	return &TeslaChain{keys: keys, n: n, epoch: 0}
}

// Epoch returns the chain's current epoch index.
func (c *TeslaChain) Epoch() int {
	return c.epoch
}

// CurrentKey returns the signing key for the current epoch: K[n-epoch].
func (c *TeslaChain) CurrentKey() cryptocore.Sha256Digest {
	return c.keys[c.n-c.epoch]
}

// PreviousKey returns the first 8 bytes of the key used in the prior
// epoch, or 8 zero bytes at epoch 0.
func (c *TeslaChain) PreviousKey() [8]byte {
	var out [8]byte
	if c.epoch == 0 {
		return out
	}
	copy(out[:], c.keys[c.n-c.epoch+1][:8])
	return out
}

// AdvanceEpoch moves to the next epoch, returning false once the chain is
// exhausted (epoch n-1 already reached).
func (c *TeslaChain) AdvanceEpoch() bool {
	if c.epoch >= c.n-1 {
		return false
	}
	c.epoch++
	return true
}

// VerifyChain checks that SHA256(previousDisclosed) truncated to
// len(currentKey) equals currentKey, authenticating a disclosed key
// against the previously committed one.
func VerifyChain(currentKey []byte, previousDisclosed cryptocore.Sha256Digest) bool {
	h := cryptocore.SHA256(previousDisclosed[:])
	if len(currentKey) > len(h) {
		return false
	}
	return bytes.Equal(h[:len(currentKey)], currentKey)
}
